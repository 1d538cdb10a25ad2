package dispatch

import (
	"encoding/json"

	"github.com/duplex-dev/duplexio/pkg/transport"
)

// Request is the per-call context: connection id, event name, the raw
// argument tuple, and the transport handle. It is created per incoming
// event and discarded after dispatch.
type Request struct {
	SID    string
	Event  string
	Args   []json.RawMessage
	Socket *transport.Socket
}

// NewRequest builds the per-call context for one incoming event.
func NewRequest(server transport.Server, event, sid string, args []json.RawMessage) *Request {
	return &Request{
		SID:    sid,
		Event:  event,
		Args:   args,
		Socket: transport.NewSocket(server, sid),
	}
}
