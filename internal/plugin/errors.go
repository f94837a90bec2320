package plugin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of a failed plugin action
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, unreachable)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the action did not finish in time
	ErrTypeTimeout
	// ErrTypeAuth indicates the remote rejected our credentials
	ErrTypeAuth
	// ErrTypeHTTP indicates a non-2xx HTTP status
	ErrTypeHTTP
	// ErrTypeCommand indicates a shell command exited non-zero
	ErrTypeCommand
	// ErrTypeRemote indicates a remote API (MQTT, Home Assistant) reported failure
	ErrTypeRemote
	// ErrTypeConfig indicates the device configuration cannot perform the action
	ErrTypeConfig
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "network error"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeAuth:
		return "authentication error"
	case ErrTypeHTTP:
		return "HTTP error"
	case ErrTypeCommand:
		return "command failed"
	case ErrTypeRemote:
		return "remote error"
	case ErrTypeConfig:
		return "configuration error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error describes why a plugin could not complete an action.
type Error struct {
	Type       ErrorType
	Device     string // device name
	Op         string // "on", "off", "state", "connect"
	Message    string
	StatusCode int // HTTP status or process exit code, when applicable
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s: %s", e.Device, e.Op, e.Type, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNetworkError classifies a transport error from an HTTP, MQTT or
// websocket client.
func NewNetworkError(device, op string, err error) *Error {
	e := &Error{
		Type:      ErrTypeNetwork,
		Device:    device,
		Op:        op,
		Message:   "request failed",
		Err:       err,
		Retryable: true,
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		e.Type = ErrTypeTimeout
		e.Message = "request timed out"
	case errors.Is(err, context.Canceled):
		e.Message = "request canceled"
		e.Retryable = false
	case errors.As(err, &dnsErr):
		e.Message = fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
		e.Retryable = false
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		e.Message = "connection refused"
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EHOSTUNREACH):
		e.Message = "host unreachable"
	}
	return e
}

// NewHTTPError creates an error for an unexpected HTTP status
func NewHTTPError(device, op string, statusCode int) *Error {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return &Error{
			Type:       ErrTypeAuth,
			Device:     device,
			Op:         op,
			Message:    fmt.Sprintf("rejected with status %d (check credentials)", statusCode),
			StatusCode: statusCode,
		}
	}
	return &Error{
		Type:       ErrTypeHTTP,
		Device:     device,
		Op:         op,
		Message:    fmt.Sprintf("unexpected status %d", statusCode),
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewCommandError creates an error for a command that exited non-zero
func NewCommandError(device, op string, exitCode int, err error) *Error {
	return &Error{
		Type:       ErrTypeCommand,
		Device:     device,
		Op:         op,
		Message:    fmt.Sprintf("exit status %d", exitCode),
		StatusCode: exitCode,
		Err:        err,
	}
}

// NewRemoteError creates an error reported by a remote API
func NewRemoteError(device, op, message string) *Error {
	return &Error{
		Type:    ErrTypeRemote,
		Device:  device,
		Op:      op,
		Message: message,
	}
}

// NewConfigError creates an error for an action the device is not configured for
func NewConfigError(device, op, message string) *Error {
	return &Error{
		Type:    ErrTypeConfig,
		Device:  device,
		Op:      op,
		Message: message,
	}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Retryable
	}
	return false
}

// IsType reports whether err is a plugin error of the given type
func IsType(err error, t ErrorType) bool {
	var pErr *Error
	return errors.As(err, &pErr) && pErr.Type == t
}
