package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type AuthGetSessionResponse struct {
	Address      string `json:"address"`
	Did          string `json:"did,omitempty"`
	HasActiveDid bool   `json:"hasActiveDid"`
}

func (s *Server) handleAuthGetSession(e echo.Context) error {
	addr := s.caller(e)
	key, _ := e.Get("address").(string)

	did := ""
	if doc, err := s.identities.ResolveByAddress(e.Request().Context(), addr); err == nil {
		did = doc.Id
	}

	active, err := s.identities.HasActive(e.Request().Context(), addr)
	if err != nil {
		s.logger.Error("error checking for active document", "error", err)
		return helpers.ServerError(e, nil)
	}

	return e.JSON(200, AuthGetSessionResponse{
		Address:      key,
		Did:          did,
		HasActiveDid: active,
	})
}
