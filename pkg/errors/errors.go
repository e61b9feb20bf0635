package errors

import (
	"errors"
	"fmt"
)

// Request-level errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound             = errors.New("endpoint not found")
	ErrMethodNotAllowed     = errors.New("method not allowed")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrBadRequest           = errors.New("bad request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInternalServer       = errors.New("internal server error")
)

var sentinels = []error{
	ErrNotFound,
	ErrMethodNotAllowed,
	ErrUnsupportedMediaType,
	ErrBadRequest,
	ErrUnauthorized,
	ErrInternalServer,
}

func isSentinel(err error) bool {
	for _, sentinel := range sentinels {
		if err == sentinel {
			return true
		}
	}
	return false
}

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error returns the message. A cause other than the package sentinels is
// appended to it.
func (e *AppError) Error() string {
	if e.Err == nil || isSentinel(e.Err) || e.Err.Error() == e.Message {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func MethodNotAllowed(msg string) *AppError {
	return &AppError{Code: "METHOD_NOT_ALLOWED", Message: msg, Err: ErrMethodNotAllowed}
}

func UnsupportedMediaType(msg string) *AppError {
	return &AppError{Code: "UNSUPPORTED_MEDIA_TYPE", Message: msg, Err: ErrUnsupportedMediaType}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func InternalServer(msg string, err error) *AppError {
	if err == nil {
		err = ErrInternalServer
	}
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}
