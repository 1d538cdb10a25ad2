package dispatch

import (
	"context"

	"github.com/duplex-dev/duplexio/pkg/transport"
)

// ServerEmitter pushes additional named events to an explicit target
// (connection or room), packaging the data with its configured packager.
// It does not exclude the invoking connection by default.
type ServerEmitter struct {
	socket      *transport.Socket
	event       string
	packager    Packager
	excludeSelf bool
}

// NewServerEmitter binds an emitter for the given event name to the
// invoking connection's socket. A nil packager defaults to NoopPackager.
func NewServerEmitter(socket *transport.Socket, event string, p Packager) *ServerEmitter {
	if p == nil {
		p = NoopPackager{}
	}
	return &ServerEmitter{socket: socket, event: event, packager: p}
}

// Event returns the event name this emitter pushes.
func (e *ServerEmitter) Event() string {
	return e.event
}

// Emit packages data and pushes it to the target connection or room,
// applying the emitter's default self-exclusion.
func (e *ServerEmitter) Emit(ctx context.Context, data any, target string) error {
	return e.EmitExcluding(ctx, data, target, e.excludeSelf)
}

// EmitExcluding is Emit with explicit control over excluding the
// invoking connection.
func (e *ServerEmitter) EmitExcluding(ctx context.Context, data any, target string, excludeSelf bool) error {
	p, err := e.packager.Pack(data)
	if err != nil {
		return err
	}
	return e.socket.Emit(ctx, e.event, p.Value(), target, excludeSelf)
}

// DuplexEmitter is a ServerEmitter that excludes the invoking connection
// by default, for notifying every other member of a room.
type DuplexEmitter struct {
	ServerEmitter
}

// NewDuplexEmitter binds a duplex emitter to the invoking connection's
// socket. A nil packager defaults to NoopPackager.
func NewDuplexEmitter(socket *transport.Socket, event string, p Packager) *DuplexEmitter {
	if p == nil {
		p = NoopPackager{}
	}
	return &DuplexEmitter{ServerEmitter{
		socket:      socket,
		event:       event,
		packager:    p,
		excludeSelf: true,
	}}
}
