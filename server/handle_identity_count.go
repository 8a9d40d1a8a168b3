package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleIdentityCount(e echo.Context) error {
	count, err := s.identities.Count(e.Request().Context())
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"count": count,
	})
}
