package server

import (
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/registry"
)

func (s *Server) handleIssuerGet(e echo.Context) error {
	addr, ok := registry.ParseAddr(e.QueryParam("address"))
	if !ok {
		return helpers.InputError(e, to.StringPtr("InvalidAddress"))
	}

	issuer, err := s.issuers.Get(e.Request().Context(), addr)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"address":    addr.Hex(),
		"did":        issuer.Did,
		"authorized": issuer.Authorized,
		"updatedAt":  issuer.UpdatedAt.Unix(),
	})
}
