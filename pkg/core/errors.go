// Package core holds types shared across the voice client: the error
// taxonomy used by the transport, capture, and session layers.
package core

import (
	"errors"
	"fmt"
)

// Error represents a session-level error.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`

	// Cause is the underlying error, if any. Not serialized; exposed via
	// Unwrap for errors.Is/As chains.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error { return e.Cause }

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConfiguration means a required credential or setting is missing.
	// Fatal: the session never starts.
	ErrConfiguration ErrorType = "configuration_error"

	// ErrDeviceUnavailable means the microphone could not be acquired
	// (permission denied, no device). Fatal to the connect attempt,
	// recoverable by retry.
	ErrDeviceUnavailable ErrorType = "device_unavailable"

	// ErrConnection means the transport handshake or network setup failed.
	ErrConnection ErrorType = "connection_error"

	// ErrTransportClosed means the remote side closed the channel without
	// an explicit user action.
	ErrTransportClosed ErrorType = "transport_closed_unexpectedly"

	// ErrDecode means a payload could not be decoded. The offending
	// payload is dropped; the session continues.
	ErrDecode ErrorType = "decode_error"
)

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Type: ErrConfiguration, Message: message}
}

// NewDeviceUnavailableError creates a device acquisition error.
func NewDeviceUnavailableError(message string, cause error) *Error {
	return &Error{Type: ErrDeviceUnavailable, Message: message, Cause: cause}
}

// NewConnectionError creates a handshake/network error.
func NewConnectionError(message string, cause error) *Error {
	return &Error{Type: ErrConnection, Message: message, Cause: cause}
}

// NewTransportClosedError creates an unexpected-close error.
func NewTransportClosedError(cause error) *Error {
	return &Error{Type: ErrTransportClosed, Message: "connection lost", Cause: cause}
}

// NewDecodeError creates a payload decode error.
func NewDecodeError(message string, cause error) *Error {
	return &Error{Type: ErrDecode, Message: message, Cause: cause}
}

// IsRetryable returns true if a new connect attempt may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrDeviceUnavailable, ErrConnection, ErrTransportClosed:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or the empty string if err is not
// a session Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}
