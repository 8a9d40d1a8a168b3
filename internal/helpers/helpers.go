package helpers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/registry"
)

func InputError(e echo.Context, custom *string) error {
	msg := "InvalidRequest"
	if custom != nil {
		msg = *custom
	}
	return genericError(e, 400, msg, "")
}

func AuthError(e echo.Context, custom *string) error {
	msg := "NotAuthorized"
	if custom != nil {
		msg = *custom
	}
	return genericError(e, 403, msg, "")
}

func ServerError(e echo.Context, suffix *string) error {
	msg := "InternalServerError"
	if suffix != nil {
		msg += ". " + *suffix
	}
	return genericError(e, 500, msg, "")
}

// StoreError maps a store failure onto the wire by its error class.
// Anything that carries no class is a server fault.
func StoreError(e echo.Context, err error) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return genericError(e, 404, "NotFound", err.Error())
	case errors.Is(err, registry.ErrUnauthorized):
		return genericError(e, 403, "NotAuthorized", err.Error())
	case errors.Is(err, registry.ErrState):
		return genericError(e, 409, "InvalidState", err.Error())
	case errors.Is(err, registry.ErrUnavailable):
		return genericError(e, 503, "RegistryPaused", err.Error())
	case errors.Is(err, registry.ErrValidation):
		return genericError(e, 400, "InvalidRequest", err.Error())
	default:
		return ServerError(e, nil)
	}
}

func genericError(e echo.Context, code int, msg string, detail string) error {
	body := map[string]string{
		"error": msg,
	}
	if detail != "" {
		body["message"] = detail
	}
	return e.JSON(code, body)
}
