package server

import (
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/registry"
)

func (s *Server) handleIdentityActive(e echo.Context) error {
	addr, ok := registry.ParseAddr(e.QueryParam("address"))
	if !ok {
		return helpers.InputError(e, to.StringPtr("InvalidAddress"))
	}

	active, err := s.identities.HasActive(e.Request().Context(), addr)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"address": addr.Hex(),
		"active":  active,
	})
}
