package gameapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error wraps a game API failure with operation context. Message holds the
// server-reported business error verbatim when there is one; those messages
// are shown to players unmodified.
type Error struct {
	// Op is the operation that failed, e.g. "cases.open".
	Op string

	// Status is the HTTP status code (0 for transport failures).
	Status int

	// Message is the server-provided error message, verbatim.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: [%d] %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ServerMessage returns the upstream business error text, or "" when the
// failure was transport-level.
func (e *Error) ServerMessage() string {
	if e.Status != 0 {
		return e.Message
	}
	return ""
}

// WrapError wraps a transport-level error with operation context.
func WrapError(op string, err error) *Error {
	return &Error{Op: op, Err: err, Message: err.Error()}
}

// NewServerError builds an Error from an upstream status and message.
func NewServerError(op string, status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Op: op, Status: status, Message: message}
}

// IsServerError reports whether err carries a server-reported business error
// (as opposed to a transport failure), and returns its verbatim message.
func IsServerError(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 && e.Status < 500 {
		return e.Message, true
	}
	return "", false
}

// IsRetryable reports whether err is likely transient. Business errors
// (4xx) are never retried; 5xx, timeouts, and connection failures are.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		if e.Status != 0 {
			return e.Status >= 500 || e.Status == 429
		}
		err = e.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
