package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized signals a missing, malformed, or expired credential.
	ErrUnauthorized = errors.New("portal: unauthorized")
	// ErrForbidden signals an authenticated caller acting on a resource it does not own.
	ErrForbidden = errors.New("portal: forbidden")
	// ErrNotFound signals the referenced record does not exist.
	ErrNotFound = errors.New("portal: not found")
	// ErrConflict signals a unique-constraint violation.
	ErrConflict = errors.New("portal: conflict")
	// ErrProvider signals a third-party dependency failure.
	ErrProvider = errors.New("portal: provider error")
	// ErrConfiguration signals a missing required secret. Not user-recoverable.
	ErrConfiguration = errors.New("portal: configuration error")
)

// ValidationError reports malformed input with per-field details.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "invalid request"
	}
	return fmt.Sprintf("invalid request: %s", strings.Join(e.Details, "; "))
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}
