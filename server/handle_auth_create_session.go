package server

import (
	"errors"
	"time"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

type AuthCreateSessionRequest struct {
	Address   string `json:"address" validate:"required,eth-address"`
	Signature string `json:"signature" validate:"required"`
}

type AuthCreateSessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Address    string `json:"address"`
	Did        string `json:"did,omitempty"`
}

// handleAuthCreateSession turns a signed challenge nonce into a session.
// The signature is an EIP-191 personal-sign over the nonce string.
func (s *Server) handleAuthCreateSession(e echo.Context) error {
	var request AuthCreateSessionRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "auth.createSession", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			if verr.Field == "Address" {
				return helpers.InputError(e, to.StringPtr("InvalidAddress"))
			}
			if verr.Field == "Signature" {
				return helpers.InputError(e, to.StringPtr("InvalidSignature"))
			}
		}
		return helpers.InputError(e, nil)
	}

	addr, _ := registry.ParseAddr(request.Address)
	key := registry.AddrKey(addr)

	var challenge models.AuthChallenge
	if err := s.db.Where("address = ?", key).Order("created_at desc").First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helpers.InputError(e, to.StringPtr("NoChallenge"))
		}
		s.logger.Error("error fetching challenge", "error", err)
		return helpers.ServerError(e, nil)
	}

	if time.Now().UTC().After(challenge.ExpiresAt) {
		return helpers.InputError(e, to.StringPtr("ExpiredChallenge"))
	}

	sig, err := hexutil.Decode(request.Signature)
	if err != nil || len(sig) != 65 {
		return helpers.InputError(e, to.StringPtr("InvalidSignature"))
	}

	// wallets emit 27/28 recovery ids, geth wants 0/1
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubkey, err := crypto.SigToPub(accounts.TextHash([]byte(challenge.Nonce)), sig)
	if err != nil {
		return helpers.InputError(e, to.StringPtr("InvalidSignature"))
	}

	if crypto.PubkeyToAddress(*pubkey) != addr {
		return helpers.AuthError(e, to.StringPtr("SignatureMismatch"))
	}

	if err := s.db.Exec("DELETE FROM auth_challenges WHERE nonce = ?", challenge.Nonce).Error; err != nil {
		s.logger.Error("error deleting used challenge", "error", err)
		return helpers.ServerError(e, nil)
	}

	if _, err := s.getAccountByAddress(key); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("error fetching account", "error", err)
			return helpers.ServerError(e, nil)
		}

		account := models.Account{
			Address:   key,
			PublicKey: crypto.FromECDSAPub(pubkey),
			FirstSeen: time.Now().UTC(),
		}
		if err := s.db.Create(&account).Error; err != nil {
			s.logger.Error("error creating account", "error", err)
			return helpers.ServerError(e, nil)
		}
	}

	sess, err := s.createSession(key)
	if err != nil {
		s.logger.Error("error creating new session", "error", err)
		return helpers.ServerError(e, nil)
	}

	did := ""
	if doc, err := s.identities.ResolveByAddress(e.Request().Context(), addr); err == nil {
		did = doc.Id
	}

	return e.JSON(200, AuthCreateSessionResponse{
		AccessJwt:  sess.AccessToken,
		RefreshJwt: sess.RefreshToken,
		Address:    key,
		Did:        did,
	})
}
