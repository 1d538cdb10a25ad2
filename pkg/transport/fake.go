package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/duplex-dev/duplexio/pkg/wire"
)

// ErrNoCallFunc is returned by Fake.Call when no CallFunc is installed.
var ErrNoCallFunc = errors.New("transport: fake has no call func")

// RecordedEmit is one outbound event captured by the fake transport.
type RecordedEmit struct {
	Event   string
	Data    wire.Data
	To      string
	SkipSID string
}

// Fake is an in-memory Server for tests. It records emits and tracks
// room and session state without any real connections.
type Fake struct {
	mu sync.Mutex

	emits        []RecordedEmit
	rooms        map[string]map[string]struct{}
	sessions     map[string]map[string]any
	disconnected []string

	// CallFunc, when set, answers Call round-trips.
	CallFunc func(event string, data wire.Data, sid string) (wire.Data, error)
}

// NewFake creates an empty fake transport.
func NewFake() *Fake {
	return &Fake{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]map[string]any),
	}
}

// Emit implements Server.
func (f *Fake) Emit(_ context.Context, event string, data wire.Data, opts EmitOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, RecordedEmit{Event: event, Data: data, To: opts.To, SkipSID: opts.SkipSID})
	return nil
}

// Send implements Server.
func (f *Fake) Send(ctx context.Context, data wire.Data, opts EmitOptions) error {
	return f.Emit(ctx, "message", data, opts)
}

// Call implements Server.
func (f *Fake) Call(_ context.Context, event string, data wire.Data, sid string, _ time.Duration) (wire.Data, error) {
	f.mu.Lock()
	fn := f.CallFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, ErrNoCallFunc
	}
	return fn(event, data, sid)
}

// EnterRoom implements Server.
func (f *Fake) EnterRoom(sid, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		f.rooms[room] = members
	}
	members[sid] = struct{}{}
	return nil
}

// LeaveRoom implements Server.
func (f *Fake) LeaveRoom(sid, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if members, ok := f.rooms[room]; ok {
		delete(members, sid)
		if len(members) == 0 {
			delete(f.rooms, room)
		}
	}
	return nil
}

// Rooms implements Server.
func (f *Fake) Rooms(sid string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rooms []string
	for room, members := range f.rooms {
		if _, ok := members[sid]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// CloseRoom implements Server.
func (f *Fake) CloseRoom(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, room)
	return nil
}

// GetSession implements Server.
func (f *Fake) GetSession(_ context.Context, sid string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := make(map[string]any, len(f.sessions[sid]))
	for k, v := range f.sessions[sid] {
		session[k] = v
	}
	return session, nil
}

// SaveSession implements Server.
func (f *Fake) SaveSession(_ context.Context, sid string, session map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string]any, len(session))
	for k, v := range session {
		copied[k] = v
	}
	f.sessions[sid] = copied
	return nil
}

// Disconnect implements Server.
func (f *Fake) Disconnect(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, sid)
	for room, members := range f.rooms {
		delete(members, sid)
		if len(members) == 0 {
			delete(f.rooms, room)
		}
	}
	return nil
}

// Emits returns the recorded emits for an event name, or all emits when
// event is empty.
func (f *Fake) Emits(event string) []RecordedEmit {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RecordedEmit
	for _, e := range f.emits {
		if event == "" || e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// EmitCount returns the total number of recorded emits.
func (f *Fake) EmitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emits)
}

// InRoom reports whether the connection is currently in the room.
func (f *Fake) InRoom(sid, room string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[room][sid]
	return ok
}

// Disconnected reports whether Disconnect was called for the connection.
func (f *Fake) Disconnected(sid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.disconnected {
		if s == sid {
			return true
		}
	}
	return false
}

// Reset clears all recorded emits.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = nil
}
