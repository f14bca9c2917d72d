package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrInvalidResponse    = errors.New("invalid backend response")
	ErrBackendMissing     = errors.New("backend not initialised")
	ErrUnsupportedKind    = errors.New("unsupported request kind")
	ErrResponseTooLarge   = errors.New("backend response exceeds gateway limit")

	// ErrClientGone is returned by a stream sink whose client stopped reading
	ErrClientGone = errors.New("client went away")

	ErrSessionClosed   = errors.New("session has been destroyed")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidEntry    = errors.New("cache entry key and value must be non-nil")
	ErrCacheFull       = errors.New("session cache budget exhausted")
)

// BackendError wraps a failure talking to an inference backend with enough
// context to render a client facing message.
type BackendError struct {
	Err     error
	Op      string
	Backend string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed for backend %s: %v", e.Op, e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func NewBackendError(op, backend string, err error) *BackendError {
	return &BackendError{
		Op:      op,
		Backend: backend,
		Err:     err,
	}
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s=%v: %s", e.Field, e.Value, e.Reason)
}

// SessionError ties a cache failure to the session it happened in
type SessionError struct {
	Err       error
	SessionID string
	Op        string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
