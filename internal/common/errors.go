package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors. ErrInvalidInput is the only one that surfaces to
// callers as a hard failure; backend errors are retried at the invocation layer
// and schema failures are absorbed by the repair loop.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTransport    = errors.New("model backend unreachable")
	ErrTimeout      = errors.New("model backend timed out")
	ErrRateLimited  = errors.New("model backend throttled")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsBackendError reports whether err is a transport-layer failure from the
// model backend (any of timeout, connectivity, throttling).
func IsBackendError(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
