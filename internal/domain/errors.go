package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrModelNotFound      = errors.New("model not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendTimeout     = errors.New("backend timeout")
	ErrStorage            = errors.New("storage failure")
	ErrActiveRequest      = errors.New("active request exists")
)

// Invalid wraps ErrValidation with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
