package server

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/models"
)

type session struct {
	AccessToken  string
	RefreshToken string
}

func (s *Server) createSession(address string) (*session, error) {
	now := time.Now().UTC()
	accessExpires := now.Add(accessTokenTTL)
	refreshExpires := now.Add(refreshTokenTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"sub":   address,
		"scope": scopeAccess,
		"iat":   now.Unix(),
		"exp":   accessExpires.Unix(),
		"jti":   uuid.NewString(),
	})

	accessstr, err := access.SignedString(s.privateKey)
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"sub":   address,
		"scope": scopeRefresh,
		"iat":   now.Unix(),
		"exp":   refreshExpires.Unix(),
		"jti":   uuid.NewString(),
	})

	refreshstr, err := refresh.SignedString(s.privateKey)
	if err != nil {
		return nil, err
	}

	if err := s.db.Create(&models.Token{
		Token:        accessstr,
		Address:      address,
		RefreshToken: refreshstr,
		CreatedAt:    now,
		ExpiresAt:    accessExpires,
	}).Error; err != nil {
		return nil, err
	}

	if err := s.db.Create(&models.RefreshToken{
		Token:     refreshstr,
		Address:   address,
		CreatedAt: now,
		ExpiresAt: refreshExpires,
	}).Error; err != nil {
		return nil, err
	}

	return &session{AccessToken: accessstr, RefreshToken: refreshstr}, nil
}

// caller returns the address the session middleware authenticated.
func (s *Server) caller(e echo.Context) common.Address {
	addr, _ := e.Get("caller").(common.Address)
	return addr
}

func (s *Server) getAccountByAddress(address string) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, "address = ?", address).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
