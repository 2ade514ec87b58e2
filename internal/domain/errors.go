package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a write would break referential integrity
	ErrConflict = errors.New("conflict occurred")

	// ErrUnauthorized is returned when a bearer token is missing or invalid
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller may not act on behalf of another user
	ErrForbidden = errors.New("forbidden")

	// ErrTransient marks storage failures that are safe to retry
	ErrTransient = errors.New("transient storage failure")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// Validation error codes exposed to API clients.
const (
	CodeInvalidItemID   = "INVALID_ITEM_ID"
	CodeInvalidUserID   = "INVALID_USER_ID"
	CodeInvalidRating   = "INVALID_RATING"
	CodeMissingTitle    = "MISSING_TITLE"
	CodeInvalidID       = "INVALID_ID"
	CodeInvalidTitle    = "INVALID_TITLE"
	CodeInvalidBody     = "INVALID_BODY"
	CodeMissingName     = "MISSING_NAME"
	CodeMissingCategory = "MISSING_CATEGORY"
)

// ValidationError describes malformed or out-of-range input. It is always
// raised before anything is written.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every validation error
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConsistencyError reports that recomputation could not find the item it
// was asked to update. Reviews can only be written under the item's lock,
// so this means the data was changed outside the application.
type ConsistencyError struct {
	ItemID int64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("aggregate target item %d does not exist", e.ItemID)
}

// StorageError wraps a failure of the underlying store. The operation that
// returned it was rolled back as a whole.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
