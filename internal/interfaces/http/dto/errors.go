package dto

import (
	"errors"
	"net/http"

	"github.com/ledger/backend/internal/domain/shared"
)

// Error codes produced by the HTTP layer itself. Domain failures keep the
// code carried by their shared.DomainError.
const (
	ErrCodeInternal       = "ERR_INTERNAL"
	ErrCodeValidation     = "ERR_VALIDATION"
	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON    = "ERR_INVALID_JSON"
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeBodyTooLarge   = "ERR_BODY_TOO_LARGE"
)

// HTTPStatusForKind maps an error kind to its HTTP status
func HTTPStatusForKind(kind shared.ErrorKind, retryable bool) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindStorage:
		if retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponseFor converts err into an HTTP status and error envelope.
// Errors that are not domain errors are reported without their message.
func ErrorResponseFor(err error, requestID string) (int, Response) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID)
	}

	status := HTTPStatusForKind(domainErr.Kind, domainErr.Retryable)
	resp := NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, requestID)
	resp.Error.Retryable = domainErr.Retryable
	return status, resp
}
