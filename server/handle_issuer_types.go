package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleIssuerTypes(e echo.Context) error {
	types, err := s.issuers.Types(e.Request().Context())
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"types": types,
	})
}
