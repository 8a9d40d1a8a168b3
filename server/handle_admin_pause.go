package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

// handleAdminPause halts all registry writes until unpause. Reads and
// verification keep working while paused.
func (s *Server) handleAdminPause(e echo.Context) error {
	if err := s.guard.Pause(e.Request().Context(), s.caller(e)); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"paused": true,
	})
}
