package transport

import (
	"context"
	"time"

	"github.com/duplex-dev/duplexio/pkg/wire"
)

// Socket binds a Server to one connection id, giving handler code a
// connection-scoped view of the transport.
type Socket struct {
	server Server
	sid    string
}

// NewSocket binds a server to the given connection id.
func NewSocket(server Server, sid string) *Socket {
	return &Socket{server: server, sid: sid}
}

// SID returns the bound connection id.
func (s *Socket) SID() string {
	return s.sid
}

// Server returns the underlying transport.
func (s *Socket) Server() Server {
	return s.server
}

// Emit pushes a named event. An empty target addresses every connection;
// excludeSelf skips the bound connection.
func (s *Socket) Emit(ctx context.Context, event string, data wire.Data, to string, excludeSelf bool) error {
	return s.server.Emit(ctx, event, data, s.opts(to, excludeSelf))
}

// Send pushes an unnamed message.
func (s *Socket) Send(ctx context.Context, data wire.Data, to string, excludeSelf bool) error {
	return s.server.Send(ctx, data, s.opts(to, excludeSelf))
}

// Call round-trips an event to the bound connection.
func (s *Socket) Call(ctx context.Context, event string, data wire.Data, timeout time.Duration) (wire.Data, error) {
	return s.server.Call(ctx, event, data, s.sid, timeout)
}

// EnterRoom adds the bound connection to a room.
func (s *Socket) EnterRoom(room string) error {
	return s.server.EnterRoom(s.sid, room)
}

// LeaveRoom removes the bound connection from a room.
func (s *Socket) LeaveRoom(room string) error {
	return s.server.LeaveRoom(s.sid, room)
}

// Rooms lists the rooms the bound connection belongs to.
func (s *Socket) Rooms() []string {
	return s.server.Rooms(s.sid)
}

// GetSession returns a copy of the bound connection's session data.
func (s *Socket) GetSession(ctx context.Context) (map[string]any, error) {
	return s.server.GetSession(ctx, s.sid)
}

// SaveSession replaces the bound connection's session data.
func (s *Socket) SaveSession(ctx context.Context, session map[string]any) error {
	return s.server.SaveSession(ctx, s.sid, session)
}

// Disconnect closes the bound connection.
func (s *Socket) Disconnect(ctx context.Context) error {
	return s.server.Disconnect(ctx, s.sid)
}

func (s *Socket) opts(to string, excludeSelf bool) EmitOptions {
	opts := EmitOptions{To: to}
	if excludeSelf {
		opts.SkipSID = s.sid
	}
	return opts
}
