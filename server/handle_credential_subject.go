package server

import (
	"errors"
	"strconv"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/internal/helpers"
)

type CredentialSubjectRequest struct {
	Did    string `query:"did" validate:"required,did"`
	Cursor string `query:"cursor"`
	Limit  string `query:"limit"`
}

// handleCredentialSubject lists the ids held by a subject in issuance
// order. Pass the last seq seen as cursor to page forward.
func (s *Server) handleCredentialSubject(e echo.Context) error {
	var request CredentialSubjectRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "credentials.subject", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) && verr.Field == "Did" {
			return helpers.InputError(e, to.StringPtr("InvalidDid"))
		}
		return helpers.InputError(e, nil)
	}

	cursor := int64(-1)
	if request.Cursor != "" {
		parsed, err := strconv.ParseInt(request.Cursor, 10, 64)
		if err != nil || parsed < 0 {
			return helpers.InputError(e, to.StringPtr("InvalidCursor"))
		}
		cursor = parsed
	}

	limit := 0
	if request.Limit != "" {
		parsed, err := strconv.Atoi(request.Limit)
		if err != nil || parsed < 0 {
			return helpers.InputError(e, to.StringPtr("InvalidLimit"))
		}
		limit = parsed
	}

	seqs, err := s.credentials.BySubject(e.Request().Context(), request.Did, cursor, limit)
	if err != nil {
		return helpers.StoreError(e, err)
	}

	ids := make([]string, 0, len(seqs))
	for _, seq := range seqs {
		ids = append(ids, credential.StringID(seq))
	}

	resp := map[string]any{
		"subject": request.Did,
		"ids":     ids,
	}
	if len(seqs) > 0 {
		resp["cursor"] = seqs[len(seqs)-1]
	}

	return e.JSON(200, resp)
}
