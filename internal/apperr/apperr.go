// Package apperr classifies failures at the edges of the application so the
// HTTP layer and the chat front-ends can react to them uniformly.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class.
type Code string

const (
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeDatabaseError        Code = "DATABASE_ERROR"
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
)

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error class to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Code {
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeExternalServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports input that was rejected before any state changed.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Storage wraps a persistence failure for the named operation.
func Storage(op string, cause error) *Error {
	return &Error{Code: CodeDatabaseError, Message: "failed to " + op, Cause: cause}
}

// Generation wraps a failure of the generative model for the named operation.
func Generation(op string, cause error) *Error {
	return &Error{Code: CodeExternalServiceError, Message: "failed to " + op, Cause: cause}
}

// CodeOf returns the code of the first classified error in the chain, or ""
// when the chain carries none.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// StatusCode returns the HTTP status for any error; unclassified errors are 500.
func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
