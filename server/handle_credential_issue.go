package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

type CredentialIssueRequest struct {
	Subject     string   `json:"subject" validate:"required,did"`
	Type        string   `json:"type" validate:"required"`
	ClaimKeys   []string `json:"claimKeys"`
	ClaimValues []string `json:"claimValues"`
	Expiration  int64    `json:"expiration"`
	Schema      string   `json:"schema"`
	Proof       string   `json:"proof"`
}

func (s *Server) handleCredentialIssue(e echo.Context) error {
	var request CredentialIssueRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "credentials.issue", "error", err)
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
			}
		}
		return helpers.InputError(e, nil)
	}

	cred, err := s.credentials.Issue(e.Request().Context(), s.caller(e), credential.IssueParams{
		Subject:     request.Subject,
		Type:        request.Type,
		ClaimKeys:   request.ClaimKeys,
		ClaimValues: request.ClaimValues,
		Expiration:  request.Expiration,
		SchemaRef:   request.Schema,
		Proof:       request.Proof,
	})
	if err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, cred)
}
