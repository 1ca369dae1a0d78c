package http

import (
	"fmt"
	"net/http"
)

// Codes carried in the code field of an error body.
const (
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeUnavailable = "ERR_UNAVAILABLE"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error that knows the HTTP status it maps to. Err is kept
// for logs and never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates an error answered with status.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message)
}

// UnavailableError creates a 503 error, used while no listener is running.
func UnavailableError(message string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, CodeUnavailable, message)
}

// InternalError creates a 500 error for a failed op, wrapping err.
func InternalError(op string, err error) *AppError {
	e := NewAppError(http.StatusInternalServerError, CodeInternal, fmt.Sprintf("%s failed", op))
	e.Err = err
	return e
}
