package server

import (
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleCredentialClaim(e echo.Context) error {
	seq, err := credential.ParseID(e.QueryParam("id"))
	if err != nil {
		return helpers.InputError(e, to.StringPtr("InvalidId"))
	}

	key := e.QueryParam("key")
	if key == "" {
		return helpers.InputError(e, to.StringPtr("MissingKey"))
	}

	value, err := s.credentials.Claim(e.Request().Context(), seq, key)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"id":    credential.StringID(seq),
		"key":   key,
		"value": value,
	})
}
