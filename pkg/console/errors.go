package console

import (
	"errors"
	"fmt"
)

// Common error variables
var (
	ErrSessionExpired        = errors.New("session expired")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrValidationFailed      = errors.New("validation failed")
	ErrActionInFlight        = errors.New("action already in flight")
	ErrViewClosed            = errors.New("view closed")
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeAuthorization     ErrorType = "authorization"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeTransport         ErrorType = "transport"
)

// ConsoleError represents a classified error with additional context.
type ConsoleError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Status is the HTTP status of the failed call, 0 when no response arrived.
	Status int   `json:"status,omitempty"`
	Cause  error `json:"-"`
}

// Error implements the error interface. Only the human readable message is
// returned so that it can be shown as-is next to the failing view.
func (e *ConsoleError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Code
}

// Unwrap returns the underlying cause
func (e *ConsoleError) Unwrap() error {
	return e.Cause
}

// Detail renders code, status and cause for logs.
func (e *ConsoleError) Detail() string {
	s := fmt.Sprintf("%s/%s: %s", e.Type, e.Code, e.Error())
	if e.Status != 0 {
		s = fmt.Sprintf("%s (status %d)", s, e.Status)
	}
	return s
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *ConsoleError {
	return &ConsoleError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Cause:   ErrValidationFailed,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string, cause error) *ConsoleError {
	return &ConsoleError{
		Type:    ErrorTypeAuthorization,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewMalformedResponseError creates a new malformed response error
func NewMalformedResponseError(code, message string, cause error) *ConsoleError {
	if cause == nil {
		cause = ErrMalformedResponse
	} else if !errors.Is(cause, ErrMalformedResponse) {
		cause = fmt.Errorf("%w: %w", ErrMalformedResponse, cause)
	}
	return &ConsoleError{
		Type:    ErrorTypeMalformedResponse,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError creates a new transport error
func NewTransportError(code, message string, status int, cause error) *ConsoleError {
	return &ConsoleError{
		Type:    ErrorTypeTransport,
		Code:    code,
		Message: message,
		Status:  status,
		Cause:   cause,
	}
}

func errorType(err error) (ErrorType, bool) {
	var consoleErr *ConsoleError
	if errors.As(err, &consoleErr) {
		return consoleErr.Type, true
	}
	return "", false
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	if t, ok := errorType(err); ok {
		return t == ErrorTypeValidation
	}
	return errors.Is(err, ErrValidationFailed)
}

// IsAuthorizationError checks if the error is an authorization error
func IsAuthorizationError(err error) bool {
	if t, ok := errorType(err); ok {
		return t == ErrorTypeAuthorization
	}
	return errors.Is(err, ErrInsufficientPrivilege) || errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated)
}

// IsMalformedResponseError checks if the error is a malformed response error
func IsMalformedResponseError(err error) bool {
	if t, ok := errorType(err); ok {
		return t == ErrorTypeMalformedResponse
	}
	return errors.Is(err, ErrMalformedResponse)
}

// IsTransportError checks if the error is a transport error
func IsTransportError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeTransport
}

// IsSessionExpired reports whether err was caused by a lost session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
