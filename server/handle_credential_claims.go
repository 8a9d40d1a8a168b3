package server

import (
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleCredentialClaims(e echo.Context) error {
	seq, err := credential.ParseID(e.QueryParam("id"))
	if err != nil {
		return helpers.InputError(e, to.StringPtr("InvalidId"))
	}

	claims, err := s.credentials.Claims(e.Request().Context(), seq)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"id":     credential.StringID(seq),
		"claims": claims,
	})
}
