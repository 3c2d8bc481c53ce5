package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common server error conditions.
var (
	// ErrAlreadyRunning is returned by Start when the server is already running.
	ErrAlreadyRunning = errors.New("server: already running")

	// ErrNotRunning is returned by operations that require a running server.
	ErrNotRunning = errors.New("server: not running")

	// ErrConnectionClosed is returned when an operation is attempted on a
	// closed WebSocket connection.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrSendBufferFull is reported when a client's outbound queue is full
	// and a message had to be dropped.
	ErrSendBufferFull = errors.New("server: send buffer full")
)

// BindError wraps a failure to bind the listening socket.
// It is fatal to Start and surfaced synchronously; the server does not retry.
type BindError struct {
	Port      uint16
	Interface string
	Err       error
}

// Error returns the error message with bind context.
func (e *BindError) Error() string {
	if e.Interface == "" {
		return fmt.Sprintf("server: bind port %d: %v", e.Port, e.Err)
	}
	return fmt.Sprintf("server: bind %s:%d: %v", e.Interface, e.Port, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *BindError) Unwrap() error {
	return e.Err
}
