package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

type CredentialIssueZKRequest struct {
	Subject    string `json:"subject" validate:"required,did"`
	Type       string `json:"type" validate:"required"`
	ZkProof    string `json:"zkProof" validate:"required"`
	Proof      string `json:"proof"`
	Expiration int64  `json:"expiration"`
	Schema     string `json:"schema"`
}

// handleCredentialIssueZK issues a selective disclosure credential. The
// claims stay with the holder; only the zk proof is recorded.
func (s *Server) handleCredentialIssueZK(e echo.Context) error {
	var request CredentialIssueZKRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "credentials.issueWithZkProof", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			switch verr.Field {
			case "Subject":
				return helpers.InputError(e, to.StringPtr("InvalidSubject"))
			case "Type":
				return helpers.InputError(e, to.StringPtr("MissingType"))
			case "ZkProof":
				return helpers.InputError(e, to.StringPtr("MissingZkProof"))
			}
		}
		return helpers.InputError(e, nil)
	}

	cred, err := s.credentials.IssueWithZKProof(e.Request().Context(), s.caller(e), credential.ZKIssueParams{
		Subject:    request.Subject,
		Type:       request.Type,
		ZKProof:    request.ZkProof,
		Proof:      request.Proof,
		Expiration: request.Expiration,
		SchemaRef:  request.Schema,
	})
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, cred)
}
