package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/models"
)

type AuthRefreshSessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Address    string `json:"address"`
}

func (s *Server) handleAuthRefreshSession(e echo.Context) error {
	token := e.Get("token").(string)
	address, _ := e.Get("address").(string)

	var rtok models.RefreshToken
	if err := s.db.Raw("DELETE FROM refresh_tokens WHERE token = ? RETURNING *", token).Scan(&rtok).Error; err != nil {
		s.logger.Error("error deleting refresh token from db", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := s.db.Exec("DELETE FROM tokens WHERE refresh_token = ?", token).Error; err != nil {
		s.logger.Error("error deleting access tokens from db", "error", err)
		return helpers.ServerError(e, nil)
	}

	sess, err := s.createSession(address)
	if err != nil {
		s.logger.Error("error creating new session", "error", err)
		return helpers.ServerError(e, nil)
	}

	return e.JSON(200, AuthRefreshSessionResponse{
		AccessJwt:  sess.AccessToken,
		RefreshJwt: sess.RefreshToken,
		Address:    address,
	})
}
