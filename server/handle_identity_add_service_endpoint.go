package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type IdentityAddServiceEndpointRequest struct {
	Did             string `json:"did" validate:"required,did"`
	ServiceEndpoint string `json:"serviceEndpoint" validate:"required"`
}

func (s *Server) handleIdentityAddServiceEndpoint(e echo.Context) error {
	var request IdentityAddServiceEndpointRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "identity.addServiceEndpoint", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			switch verr.Field {
			case "Did":
				return helpers.InputError(e, to.StringPtr("InvalidDid"))
			case "ServiceEndpoint":
				return helpers.InputError(e, to.StringPtr("MissingServiceEndpoint"))
			}
		}
		return helpers.InputError(e, nil)
	}

	doc, err := s.identities.AddServiceEndpoint(e.Request().Context(), s.caller(e), request.Did, request.ServiceEndpoint)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, doc)
}
