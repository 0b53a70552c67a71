package models

import "errors"

// Sentinel errors shared across the repository and service layers.
// Handlers map these onto HTTP status codes; anything else is treated
// as an unexpected storage failure.
var (
	// ErrNotFound means no row matched the id under the caller's ownership scope.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a unique constraint (username or email) was violated.
	ErrConflict = errors.New("already exists")

	// ErrInvalidCredentials means the username/password pair did not check out.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries a user-visible message about malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}
