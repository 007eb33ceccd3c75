package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category reported in the "type" field of error bodies.
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInput         ErrorType = "input"
	ErrorTypeGeneration    ErrorType = "generation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:    http.StatusBadRequest,
	ErrorTypeInput:         http.StatusBadRequest,
	ErrorTypeGeneration:    http.StatusBadGateway,
	ErrorTypeConfiguration: http.StatusInternalServerError,
	ErrorTypeConflict:      http.StatusConflict,
	ErrorTypeNetwork:       http.StatusBadGateway,
	ErrorTypeTimeout:       http.StatusGatewayTimeout,
	ErrorTypeNotFound:      http.StatusNotFound,
	ErrorTypeInternal:      http.StatusInternalServerError,
}

// AppError carries everything the transport layer needs to render a failure.
// Reason is a machine-readable tag such as "off_topic"; Details is free text
// and, for off-topic goals, the suggested preset.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

func newError(t ErrorType, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusByType[t], Cause: cause}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithReason returns a tagged copy; the receiver is left untouched.
func (e *AppError) WithReason(reason string) *AppError {
	tagged := *e
	tagged.Reason = reason
	return &tagged
}

// WithDetails returns a copy carrying extra detail text.
func (e *AppError) WithDetails(details string) *AppError {
	detailed := *e
	detailed.Details = details
	return &detailed
}

// NewValidationError is used for goals that fail the empty, content or domain checks.
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, message, cause)
}

// NewInputError is used when a required image is missing or unusable.
func NewInputError(message string, cause error) *AppError {
	return newError(ErrorTypeInput, message, cause)
}

// NewGenerationError wraps any failure of the structured generation round trip.
func NewGenerationError(message string, cause error) *AppError {
	return newError(ErrorTypeGeneration, message, cause)
}

// NewConfigurationError is fatal at startup.
func NewConfigurationError(message string, cause error) *AppError {
	return newError(ErrorTypeConfiguration, message, cause)
}

// NewConflictError reports a session that is busy generating.
func NewConflictError(message string, cause error) *AppError {
	return newError(ErrorTypeConflict, message, cause)
}

// NewNetworkError reports an image reference that could not be fetched.
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, message, cause)
}

func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, message, cause)
}

// NewNotFoundError reports an unknown session, slot or phase.
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, message, cause)
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}

// IsType reports whether err wraps an AppError of category t.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// GetStatusCode maps err to an HTTP status; plain errors are 500.
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
