package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleAdminUnpause(e echo.Context) error {
	if err := s.guard.Unpause(e.Request().Context(), s.caller(e)); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"paused": false,
	})
}
