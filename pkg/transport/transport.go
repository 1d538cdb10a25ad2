// Package transport defines the typed surface the dispatch engine
// consumes from the underlying connection layer. The engine depends only
// on this interface, never on packet framing or connection bookkeeping.
package transport

import (
	"context"
	"time"

	"github.com/duplex-dev/duplexio/pkg/wire"
)

// EmitOptions addresses an outbound event.
type EmitOptions struct {
	// To is the target room or connection id. Empty means every
	// connection.
	To string

	// SkipSID excludes one connection from the delivery.
	SkipSID string
}

// Server is the typed transport surface. Implementations are safe for
// concurrent use.
type Server interface {
	// Emit pushes a named event to the addressed connections.
	Emit(ctx context.Context, event string, data wire.Data, opts EmitOptions) error

	// Send pushes an unnamed message, delivered as the "message" event.
	Send(ctx context.Context, data wire.Data, opts EmitOptions) error

	// Call round-trips an event to a single connection and returns its
	// acknowledgement.
	Call(ctx context.Context, event string, data wire.Data, sid string, timeout time.Duration) (wire.Data, error)

	// EnterRoom adds the connection to a named room.
	EnterRoom(sid, room string) error

	// LeaveRoom removes the connection from a named room.
	LeaveRoom(sid, room string) error

	// Rooms lists the rooms the connection belongs to.
	Rooms(sid string) []string

	// CloseRoom removes every connection from a named room.
	CloseRoom(ctx context.Context, room string) error

	// GetSession returns a copy of the connection's session data.
	GetSession(ctx context.Context, sid string) (map[string]any, error)

	// SaveSession replaces the connection's session data.
	SaveSession(ctx context.Context, sid string, session map[string]any) error

	// Disconnect closes the connection.
	Disconnect(ctx context.Context, sid string) error
}
