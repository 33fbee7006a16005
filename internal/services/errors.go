package services

import (
	"errors"
	"fmt"

	"github.com/campusdocs/proof-archive/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrIdentityMismatch   = errors.New("client identity does not match session")
	ErrConflict           = errors.New("conflict")

	// Upload
	ErrNoFile          = errors.New("no file uploaded")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedFile = errors.New("unsupported file")

	// Lookups
	ErrProofNotFound = fmt.Errorf("proof %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrFileNotFound  = fmt.Errorf("file %w", ErrNotFound)

	ErrInvalidFileName = errors.New("invalid file name")
)

// ValidationErrors is returned for request payloads that fail field rules
type ValidationErrors = validator.ValidationErrors

// PermissionError reports that the caller's role may not perform an action.
// It matches ErrForbidden with errors.Is.
type PermissionError struct {
	UserID   uint
	Resource string
	Action   string
	Reason   string
}

func NewPermissionError(userID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// validationFailed wraps field errors so both errors.As(ValidationErrors)
// and errors.Is(ErrValidationFailed) match
func validationFailed(errs ValidationErrors) error {
	return &validationError{errs: errs}
}

type validationError struct {
	errs ValidationErrors
}

func (e *validationError) Error() string { return e.errs.Error() }

func (e *validationError) Unwrap() []error {
	return []error{ErrValidationFailed, e.errs}
}

// fieldError builds a single-field validation failure
func fieldError(field, message string, value interface{}, rule string) error {
	return validationFailed(ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    rule,
	}})
}
