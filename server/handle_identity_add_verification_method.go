package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type IdentityAddVerificationMethodRequest struct {
	Did                string `json:"did" validate:"required,did"`
	VerificationMethod string `json:"verificationMethod" validate:"required"`
}

func (s *Server) handleIdentityAddVerificationMethod(e echo.Context) error {
	var request IdentityAddVerificationMethodRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "identity.addVerificationMethod", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			switch verr.Field {
			case "Did":
				return helpers.InputError(e, to.StringPtr("InvalidDid"))
			case "VerificationMethod":
				return helpers.InputError(e, to.StringPtr("MissingVerificationMethod"))
			}
		}
		return helpers.InputError(e, nil)
	}

	doc, err := s.identities.AddVerificationMethod(e.Request().Context(), s.caller(e), request.Did, request.VerificationMethod)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, doc)
}
