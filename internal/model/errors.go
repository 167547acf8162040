package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so the API
// layer can map it without knowing the specific error.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrTherapistNotFound = fmt.Errorf("therapist %w", ErrNotFound)
	ErrUsernameTaken     = fmt.Errorf("username already exists: %w", ErrConflict)

	// Session errors
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)

	// Auth errors
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
	ErrApprovalPending    = fmt.Errorf("therapist approval pending: %w", ErrForbidden)
	ErrNotPermitted       = fmt.Errorf("operation not permitted: %w", ErrForbidden)
)

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
