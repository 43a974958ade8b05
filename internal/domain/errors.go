package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the booking core. Handlers map these to HTTP statuses
// and machine-checkable codes in internal/http/response.

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError names the offending input field. Validation always runs
// before any database access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamAuthError wraps a failed identity-provider exchange. It carries the
// provider's diagnostic text and maps to 502, not 400.
type UpstreamAuthError struct {
	Detail string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("upstream auth failure: %s", e.Detail)
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflict codes
const (
	ConflictSlotTaken      = "SLOT_TAKEN"
	ConflictUsernameExists = "USERNAME_EXISTS"
	ConflictEmailExists    = "EMAIL_EXISTS"
)
