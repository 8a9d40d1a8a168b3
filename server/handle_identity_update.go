package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type IdentityUpdateRequest struct {
	Did                 string   `json:"did" validate:"required,did"`
	Contexts            []string `json:"contexts"`
	VerificationMethods []string `json:"verificationMethods"`
}

// handleIdentityUpdate replaces the document's contexts and
// verification methods. Appended service endpoints survive updates.
func (s *Server) handleIdentityUpdate(e echo.Context) error {
	var request IdentityUpdateRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "identity.update", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Did" {
			return helpers.InputError(e, to.StringPtr("InvalidDid"))
		}
		return helpers.InputError(e, nil)
	}

	doc, err := s.identities.Update(e.Request().Context(), s.caller(e), request.Did, request.Contexts, request.VerificationMethods)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, doc)
}
