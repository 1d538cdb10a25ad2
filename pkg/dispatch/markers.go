package dispatch

import "reflect"

// Marker is a stateless strategy extracting one piece of ambient context
// from the per-request Request. Binding a parameter to a Marker is the
// only way ambient state enters a handler or dependency.
type Marker interface {
	Extract(req *Request) any
}

type sessionIDMarker struct{}

func (sessionIDMarker) Extract(req *Request) any { return req.SID }

type eventNameMarker struct{}

func (eventNameMarker) Extract(req *Request) any { return req.Event }

type requestMarker struct{}

func (requestMarker) Extract(req *Request) any { return req }

type socketMarker struct{}

func (socketMarker) Extract(req *Request) any { return req.Socket }

type serverMarker struct{}

func (serverMarker) Extract(req *Request) any { return req.Socket.Server() }

// Built-in markers for ambient request context.
var (
	// SessionID injects the connection id as a string.
	SessionID Marker = sessionIDMarker{}

	// EventName injects the event name as a string.
	EventName Marker = eventNameMarker{}

	// RequestValue injects the *Request itself.
	RequestValue Marker = requestMarker{}

	// SocketValue injects the connection-bound *transport.Socket.
	SocketValue Marker = socketMarker{}

	// ServerValue injects the transport.Server.
	ServerValue Marker = serverMarker{}
)

// EmitterMarker injects a ServerEmitter bound to a fixed event name.
type EmitterMarker struct {
	event    string
	packager Packager
}

// Emitter returns a marker injecting a *ServerEmitter for the given
// event name, packaging emitted data with p.
func Emitter(event string, p Packager) *EmitterMarker {
	return &EmitterMarker{event: event, packager: p}
}

// Extract implements Marker.
func (m *EmitterMarker) Extract(req *Request) any {
	return NewServerEmitter(req.Socket, m.event, m.packager)
}

// DuplexMarker injects a DuplexEmitter bound to the request's own event
// name.
type DuplexMarker struct {
	packager Packager
}

// Duplex returns a marker injecting a *DuplexEmitter, the dominant
// pattern for notifying every other member of a room.
func Duplex(p Packager) *DuplexMarker {
	return &DuplexMarker{packager: p}
}

// Extract implements Marker.
func (m *DuplexMarker) Extract(req *Request) any {
	return NewDuplexEmitter(req.Socket, req.Event, m.packager)
}

// sameMarker reports whether two markers are the same injection point.
// Pointer markers compare by identity; comparable value markers by
// equality. Incomparable markers are never merged.
func sameMarker(a, b Marker) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	if ra.Kind() == reflect.Pointer {
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}
