package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors shared by the service, repository and handler layers.
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("authentication failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPageRequest = errors.New("invalid page request")

	// Store errors
	ErrRecordNotFound   = errors.New("record not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Collaborator errors
	ErrWeatherUnavailable = errors.New("weather unavailable")
)

// AppError wraps errors with additional context
type AppError struct {
	Err     error
	Message string
	Code    int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(err error, message string, code int) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// Invalid reports a validation failure with a client-facing message.
func Invalid(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, 400)
}

// Store wraps a driver error so callers can match ErrStoreUnavailable while
// keeping the original error reachable.
func Store(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// Body is the JSON error envelope: {"status":"NOT_FOUND","code":404,"message":"..."}.
type Body struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewBody derives Status from the HTTP status text, e.g. 404 -> NOT_FOUND.
func NewBody(code int, message string) Body {
	status := strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	return Body{Status: status, Code: code, Message: message}
}
