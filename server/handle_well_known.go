package server

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

func (s *Server) handleWellKnown(e echo.Context) error {
	pubkey, err := s.serviceKey.PublicKey()
	if err != nil {
		s.logger.Error("error deriving service public key", "error", err)
		return helpers.ServerError(e, nil)
	}

	return e.JSON(200, map[string]any{
		"@context": []string{
			"https://www.w3.org/ns/did/v1",
		},
		"id": s.config.Did,
		"verificationMethod": []map[string]string{
			{
				"id":                 s.config.Did + "#signet",
				"type":               "Multikey",
				"controller":         s.config.Did,
				"publicKeyMultibase": strings.TrimPrefix(pubkey.DIDKey(), "did:key:"),
			},
		},
		"service": []map[string]string{
			{
				"id":              "#signet_registry",
				"type":            "SignetRegistry",
				"serviceEndpoint": "https://" + s.config.Hostname,
			},
		},
	})
}
