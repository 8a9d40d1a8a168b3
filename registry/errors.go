package registry

import "errors"

// Error classes. Every failure a store returns wraps exactly one of
// these, so callers and the transport layer can classify with errors.Is
// without knowing the specific sentinel.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrState        = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
