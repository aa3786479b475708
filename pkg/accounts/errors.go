package accounts

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound is returned when no account matches the identifier
	ErrAccountNotFound = errors.New("account not found")

	// ErrUsernameTaken is returned when registering a username that already exists
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidPassword is returned when the supplied password does not match
	ErrInvalidPassword = errors.New("invalid password")

	// ErrResetTokenInvalid is returned for unknown, expired or already used reset tokens
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")

	// ErrPlatformRegistration is returned when the platform rejects a new profile
	ErrPlatformRegistration = errors.New("platform registration failed")
)

// ValidationError reports a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
