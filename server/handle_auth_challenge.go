package server

import (
	"errors"
	"time"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

type AuthChallengeRequest struct {
	Address string `json:"address" validate:"required,eth-address"`
}

type AuthChallengeResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (s *Server) handleAuthChallenge(e echo.Context) error {
	var request AuthChallengeRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "auth.challenge", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Address" {
			return helpers.InputError(e, to.StringPtr("InvalidAddress"))
		}
		return helpers.InputError(e, nil)
	}

	addr, _ := registry.ParseAddr(request.Address)
	now := time.Now().UTC()

	challenge := models.AuthChallenge{
		Nonce:     uuid.NewString(),
		Address:   registry.AddrKey(addr),
		CreatedAt: now,
		ExpiresAt: now.Add(challengeTTL),
	}

	if err := s.db.Create(&challenge).Error; err != nil {
		s.logger.Error("error storing auth challenge", "error", err)
		return helpers.ServerError(e, nil)
	}

	return e.JSON(200, AuthChallengeResponse{
		Nonce:     challenge.Nonce,
		ExpiresAt: challenge.ExpiresAt.Unix(),
	})
}
