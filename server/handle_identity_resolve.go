package server

import (
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/registry"
)

// handleIdentityResolve resolves a document by did or by controller
// address. Exactly one of the two query params must be set.
func (s *Server) handleIdentityResolve(e echo.Context) error {
	did := e.QueryParam("did")
	address := e.QueryParam("address")

	if did != "" {
		doc, err := s.identities.ResolveByDID(e.Request().Context(), did)
		if err != nil {
			return helpers.StoreError(e, err)
		}
		return e.JSON(200, doc)
	}

	if address != "" {
		addr, ok := registry.ParseAddr(address)
		if !ok {
			return helpers.InputError(e, to.StringPtr("InvalidAddress"))
		}
		doc, err := s.identities.ResolveByAddress(e.Request().Context(), addr)
		if err != nil {
			return helpers.StoreError(e, err)
		}
		return e.JSON(200, doc)
	}

	return helpers.InputError(e, to.StringPtr("MissingQuery"))
}
