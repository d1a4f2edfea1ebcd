package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrTimeout      = errors.New("upstream timeout")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation error")
)

// AppError represents an application error with context. Every caller-visible
// failure carries a machine-readable code, a human-readable message and an
// actionable suggestion.
type AppError struct {
	Err        error  `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Suggestion string `json:"suggestion,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ConflictingVitals rejects a request whose vitals fail plausibility checks.
func ConflictingVitals(message, suggestion string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "CONFLICTING_VITALS",
		Suggestion: suggestion,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// InconclusiveSymptoms rejects a request with no usable symptoms. Used for
// empty submissions (400) and for model self-reported inconclusiveness (422).
func InconclusiveSymptoms(message, suggestion string, status int) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "INCONCLUSIVE_SYMPTOMS",
		Suggestion: suggestion,
		HTTPStatus: status,
	}
}

// APITimeout signals that the AI provider exceeded its deadline.
func APITimeout(message string) *AppError {
	return &AppError{
		Err:        ErrTimeout,
		Message:    message,
		Code:       "API_TIMEOUT",
		Suggestion: "Please try again in a few moments.",
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// ServerError hides technical detail behind a generic message; the wrapped
// error is for server-side logs only.
func ServerError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred while processing your request.",
		Code:       "SERVER_ERROR",
		Suggestion: "Please try again later.",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		Suggestion: fmt.Sprintf("Check that %s %q exists and belongs to you.", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		Suggestion: "Sign in and retry with a valid token.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		HTTPStatus: http.StatusForbidden,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		Suggestion: "Check the request body and retry.",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}
