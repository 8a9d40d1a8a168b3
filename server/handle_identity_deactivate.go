package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type IdentityDeactivateRequest struct {
	Did string `json:"did" validate:"required,did"`
}

func (s *Server) handleIdentityDeactivate(e echo.Context) error {
	var request IdentityDeactivateRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "identity.deactivate", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Did" {
			return helpers.InputError(e, to.StringPtr("InvalidDid"))
		}
		return helpers.InputError(e, nil)
	}

	if err := s.identities.Deactivate(e.Request().Context(), s.caller(e), request.Did); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"did":    request.Did,
		"active": false,
	})
}
