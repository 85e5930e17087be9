package session_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a session id that
// does not exist in the registry.
var ErrNotFound = errors.New("session not found")

// ErrNotConnected is returned when an action requires a connected session
// but the session is in another state.
var ErrNotConnected = errors.New("session is not connected")

// ValidationError rejects malformed input before the registry is touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failure reported by the external transport. The
// underlying message is preserved opaquely for diagnostics.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failure to read or write session state on the
// storage backend.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence error: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
