package server

import (
	"errors"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type IssuerSetTypeRequest struct {
	Name      string `json:"name" validate:"required"`
	Supported *bool  `json:"supported" validate:"required"`
}

func (s *Server) handleIssuerSetType(e echo.Context) error {
	var request IssuerSetTypeRequest

	if err := e.Bind(&request); err != nil {
		s.logger.Error("error receiving request", "endpoint", "issuers.setType", "error", err)
		return helpers.ServerError(e, nil)
	}

	if err := e.Validate(request); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			switch verr.Field {
			case "Name":
				return helpers.InputError(e, to.StringPtr("MissingName"))
			case "Supported":
				return helpers.InputError(e, to.StringPtr("MissingSupported"))
			}
		}
		return helpers.InputError(e, nil)
	}

	if err := s.issuers.SetTypeSupport(e.Request().Context(), s.caller(e), request.Name, *request.Supported); err != nil {
		return helpers.StoreError(e, err)
	}

	return e.JSON(200, map[string]any{
		"name":      request.Name,
		"supported": *request.Supported,
	})
}
