package server

import (
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

// handleCredentialVerify reports whether a credential is active and
// unexpired. Unknown credentials are a 404, not an invalid result.
func (s *Server) handleCredentialVerify(e echo.Context) error {
	seq, err := credential.ParseID(e.QueryParam("id"))
	if err != nil {
		return helpers.InputError(e, to.StringPtr("InvalidId"))
	}

	valid, err := s.credentials.Verify(e.Request().Context(), seq)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"id":    credential.StringID(seq),
		"valid": valid,
	})
}
