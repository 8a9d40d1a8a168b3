package server

import (
	"encoding/json"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleSchemaGet(e echo.Context) error {
	ref := e.QueryParam("ref")
	if ref == "" {
		return helpers.InputError(e, to.StringPtr("MissingRef"))
	}

	doc, err := s.schemas.Get(e.Request().Context(), ref)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"ref":      ref,
		"document": json.RawMessage(doc),
	})
}
