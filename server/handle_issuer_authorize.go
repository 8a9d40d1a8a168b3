package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/registry"
)

type IssuerAuthorizeRequest struct {
	Address string `json:"address" validate:"required,eth-address"`
	Did     string `json:"did" validate:"required,did"`
}

func (s *Server) handleIssuerAuthorize(e echo.Context) error {
	var request IssuerAuthorizeRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "issuers.authorize", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			switch verr.Field {
			case "Address":
				return helpers.InputError(e, to.StringPtr("InvalidAddress"))
			case "Did":
				return helpers.InputError(e, to.StringPtr("InvalidDid"))
			}
		}
		return helpers.InputError(e, nil)
	}

	addr, _ := registry.ParseAddr(request.Address)

	if err := s.issuers.Authorize(e.Request().Context(), s.caller(e), addr, request.Did); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"address":    addr.Hex(),
		"did":        request.Did,
		"authorized": true,
	})
}
