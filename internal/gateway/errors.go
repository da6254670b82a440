package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/songzhibin97/adminconsole/pkg/console"
)

// ResponseError is returned for backend responses with status 400 or above.
type ResponseError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
	// Message is the backend's own explanation, "" when it gave none.
	Message  string
	AuthCall bool
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Text())
}

// Text returns the backend message, falling back to the status text.
func (e *ResponseError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return "request failed"
}

// Classify maps any error returned by the gateway, the normalizer or a
// controller into the console error taxonomy. It returns nil for nil.
func Classify(err error) *console.ConsoleError {
	if err == nil {
		return nil
	}

	var consoleErr *console.ConsoleError
	if errors.As(err, &consoleErr) {
		return consoleErr
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return classifyResponse(respErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return console.NewTransportError("TIMEOUT", "the server did not respond in time", 0, err)
	case errors.Is(err, context.Canceled):
		return console.NewTransportError("CANCELED", "request canceled", 0, err)
	case errors.Is(err, console.ErrSessionExpired):
		return console.NewAuthorizationError("SESSION_EXPIRED", "session expired, please sign in again", err)
	case errors.Is(err, console.ErrNotAuthenticated):
		return console.NewAuthorizationError("NOT_AUTHENTICATED", "sign in required", err)
	case errors.Is(err, console.ErrInsufficientPrivilege):
		return console.NewAuthorizationError("FORBIDDEN", "administrator access required", err)
	}

	return console.NewTransportError("NETWORK", err.Error(), 0, err)
}

func classifyResponse(e *ResponseError) *console.ConsoleError {
	switch {
	case e.StatusCode == http.StatusUnauthorized && e.AuthCall:
		return console.NewAuthorizationError("INVALID_CREDENTIALS", e.Text(), e)
	case e.StatusCode == http.StatusUnauthorized:
		return console.NewAuthorizationError("SESSION_EXPIRED", e.Text(), fmt.Errorf("%w: %w", console.ErrSessionExpired, e))
	case e.StatusCode == http.StatusForbidden:
		return console.NewAuthorizationError("FORBIDDEN", e.Text(), fmt.Errorf("%w: %w", console.ErrInsufficientPrivilege, e))
	case e.StatusCode == http.StatusNotFound:
		return console.NewTransportError("NOT_FOUND", e.Text(), e.StatusCode, e)
	case e.StatusCode == http.StatusConflict:
		return console.NewTransportError("CONFLICT", e.Text(), e.StatusCode, e)
	case e.StatusCode >= http.StatusInternalServerError:
		return console.NewTransportError("SERVER_ERROR", e.Text(), e.StatusCode, e)
	default:
		return console.NewTransportError("REQUEST_REJECTED", e.Text(), e.StatusCode, e)
	}
}
