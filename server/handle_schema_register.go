package server

import (
	"encoding/json"
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type SchemaRegisterRequest struct {
	Document json.RawMessage `json:"document" validate:"required"`
}

// handleSchemaRegister stores a claim schema and returns its
// content-addressed ref. Registering the same document twice returns
// the same ref.
func (s *Server) handleSchemaRegister(e echo.Context) error {
	var request SchemaRegisterRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "schemas.register", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Document" {
			return helpers.InputError(e, to.StringPtr("MissingDocument"))
		}
		return helpers.InputError(e, nil)
	}

	ref, err := s.schemas.Register(e.Request().Context(), s.caller(e), request.Document)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"ref": ref,
	})
}
