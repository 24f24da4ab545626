// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes the failure modes a Session can surface.
type ErrorKind int

const (
	// ErrTransportClosed indicates a read or write hit EOF or a reset connection.
	ErrTransportClosed ErrorKind = iota
	// ErrHandshakeRejected indicates the server refused at security negotiation.
	ErrHandshakeRejected
	// ErrAuthUnsupported indicates no acceptable security type was on offer for the supplied credentials.
	ErrAuthUnsupported
	// ErrAuthFailed indicates the server rejected credentials after exchange.
	ErrAuthFailed
	// ErrProtocol indicates a malformed message, unknown encoding, or inconsistent length.
	ErrProtocol
	// ErrCrypto indicates a DH public key out of range or a decrypt failure.
	ErrCrypto
	// ErrValidation indicates caller-supplied input failed validation.
	ErrValidation
	// ErrTimeout indicates a context deadline or cancellation.
	ErrTimeout
	// ErrConfiguration indicates a caller misconfiguration. Missing credentials
	// for the offered security types surface as ErrAuthUnsupported instead.
	ErrConfiguration
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrTransportClosed:
		return "transport_closed"
	case ErrHandshakeRejected:
		return "handshake_rejected"
	case ErrAuthUnsupported:
		return "auth_unsupported"
	case ErrAuthFailed:
		return "auth_failed"
	case ErrProtocol:
		return "protocol"
	case ErrCrypto:
		return "crypto"
	case ErrValidation:
		return "validation"
	case ErrTimeout:
		return "timeout"
	case ErrConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// VNCError provides structured error information with operation context,
// an error kind, and message wrapping for comprehensive error handling.
type VNCError struct {
	Op      string
	Kind    ErrorKind
	Message string
	Err     error
}

// Error returns the formatted error message.
func (e *VNCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vnc %s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("vnc %s: %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *VNCError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
func (e *VNCError) Is(target error) bool {
	var vncErr *VNCError
	if errors.As(target, &vncErr) {
		return e.Kind == vncErr.Kind
	}
	return false
}

// NewVNCError creates a new VNCError with the specified parameters.
func NewVNCError(op string, kind ErrorKind, message string, err error) *VNCError {
	return &VNCError{Op: op, Kind: kind, Message: message, Err: err}
}

// WrapError wraps an existing error with VNC-specific context.
// Returns nil if the input error is nil.
func WrapError(op string, kind ErrorKind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &VNCError{Op: op, Kind: kind, Message: message, Err: err}
}

// IsVNCError checks if an error is a VNCError and optionally matches specific kinds.
func IsVNCError(err error, kinds ...ErrorKind) bool {
	var vncErr *VNCError
	if !errors.As(err, &vncErr) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if vncErr.Kind == k {
			return true
		}
	}
	return false
}

// GetErrorKind extracts the error kind from a VNCError, or -1 if err is not one.
func GetErrorKind(err error) ErrorKind {
	var vncErr *VNCError
	if errors.As(err, &vncErr) {
		return vncErr.Kind
	}
	return ErrorKind(-1)
}

func transportClosedError(op, message string, err error) error {
	return NewVNCError(op, ErrTransportClosed, message, err)
}

func handshakeRejectedError(op, message string, err error) error {
	return NewVNCError(op, ErrHandshakeRejected, message, err)
}

func authUnsupportedError(op, message string, err error) error {
	return NewVNCError(op, ErrAuthUnsupported, message, err)
}

func authFailedError(op, message string, err error) error {
	return NewVNCError(op, ErrAuthFailed, message, err)
}

func protocolError(op, message string, err error) error {
	return NewVNCError(op, ErrProtocol, message, err)
}

func cryptoError(op, message string, err error) error {
	return NewVNCError(op, ErrCrypto, message, err)
}

func validationError(op, message string, err error) error {
	return NewVNCError(op, ErrValidation, message, err)
}

func timeoutError(op, message string, err error) error {
	return NewVNCError(op, ErrTimeout, message, err)
}

func configurationError(op, message string, err error) error {
	return NewVNCError(op, ErrConfiguration, message, err)
}
