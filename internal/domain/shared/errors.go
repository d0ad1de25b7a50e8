package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure so callers can branch on it instead of
// inspecting codes or messages.
type ErrorKind string

const (
	// KindValidation is malformed or out-of-range input. Never retried automatically.
	KindValidation ErrorKind = "VALIDATION"
	// KindNotFound is a missing tenant, product, invoice or customer.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindConflict covers duplicate keys, insufficient stock, overpayment and
	// repeated terminal transitions. The caller must resolve it before retrying.
	KindConflict ErrorKind = "CONFLICT"
	// KindForbidden is returned for suspended tenants.
	KindForbidden ErrorKind = "FORBIDDEN"
	// KindStorage is an underlying store failure or a corrupt payload.
	KindStorage ErrorKind = "STORAGE_FAILURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind      ErrorKind `json:"kind"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same kind and code.
// This lets errors.Is(err, ErrNotFound) match any not-found error created with
// the NOT_FOUND code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

// NewConflictError creates a conflict error
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(code, message string) *DomainError {
	return NewDomainError(KindForbidden, code, message)
}

// NewStorageError wraps a store failure. retryable marks failures that are safe
// to retry, such as timeouts on reads or lock acquisition.
func NewStorageError(code, message string, cause error, retryable bool) *DomainError {
	return &DomainError{
		Kind:      KindStorage,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		cause:     cause,
	}
}

// KindOf returns the kind of err, or KindStorage for errors that did not come
// from the domain (they are treated as infrastructure failures).
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindStorage
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Kind == kind
}

// Common domain errors
var (
	ErrNotFound          = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists     = NewConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput      = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrForbidden         = NewForbiddenError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState      = NewValidationError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock = NewConflictError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrLockNotObtained   = NewStorageError("LOCK_NOT_OBTAINED", "Could not obtain lock", nil, true)
)
