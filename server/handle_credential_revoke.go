package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

type CredentialRevokeRequest struct {
	Id     string `json:"id" validate:"required"`
	Reason string `json:"reason"`
}

func (s *Server) handleCredentialRevoke(e echo.Context) error {
	var request CredentialRevokeRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "credentials.revoke", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Id" {
			return helpers.InputError(e, to.StringPtr("MissingId"))
		}
		return helpers.InputError(e, nil)
	}

	seq, err := credential.ParseID(request.Id)
	if err != nil {
		return helpers.InputError(e, to.StringPtr("InvalidId"))
	}

	if err := s.credentials.Revoke(e.Request().Context(), s.caller(e), seq, request.Reason); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"id":     credential.StringID(seq),
		"status": credential.StatusRevoked,
	})
}
