package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for connection and server operations.
var (
	// ErrConnectionNotFound is returned when a connection id does not exist.
	ErrConnectionNotFound = errors.New("server: connection not found")

	// ErrConnectionClosed is returned when writing to a closed connection.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrServerClosed is returned after Shutdown.
	ErrServerClosed = errors.New("server: server closed")

	// ErrSendQueueFull is returned when a connection's outbound queue is
	// full and a message is dropped.
	ErrSendQueueFull = errors.New("server: send queue full")

	// ErrCallTimeout is returned when a server-to-client call gets no
	// acknowledgement in time.
	ErrCallTimeout = errors.New("server: call timed out")

	// ErrTooManyConnections is returned when the connection limit is
	// reached.
	ErrTooManyConnections = errors.New("server: too many connections")
)

// ConnError wraps an error with connection context for debugging.
type ConnError struct {
	SID string
	Op  string
	Err error
}

// Error returns the error message with connection context.
func (e *ConnError) Error() string {
	if e.SID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: connection %s: %s: %v", e.SID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnError) Unwrap() error {
	return e.Err
}
