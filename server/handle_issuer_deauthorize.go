package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/registry"
)

type IssuerDeauthorizeRequest struct {
	Address string `json:"address" validate:"required,eth-address"`
}

func (s *Server) handleIssuerDeauthorize(e echo.Context) error {
	var request IssuerDeauthorizeRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "issuers.deauthorize", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Address" {
			return helpers.InputError(e, to.StringPtr("InvalidAddress"))
		}
		return helpers.InputError(e, nil)
	}

	addr, _ := registry.ParseAddr(request.Address)

	if err := s.issuers.Deauthorize(e.Request().Context(), s.caller(e), addr); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"address":    addr.Hex(),
		"authorized": false,
	})
}
