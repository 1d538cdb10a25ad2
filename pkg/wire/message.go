package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies the kind of wire message.
type MessageType string

const (
	// MessageEvent is a named event with positional arguments. A non-zero
	// ID requests an acknowledgement from the receiving side.
	MessageEvent MessageType = "event"

	// MessageAck is the single reply to an event with the matching ID.
	MessageAck MessageType = "ack"

	// MessageError reports a failure outside any acknowledgement, such as
	// a malformed frame or a handler panic.
	MessageError MessageType = "error"
)

// Sentinel errors for message decoding.
var (
	// ErrMalformedMessage indicates the raw bytes were not a valid message.
	ErrMalformedMessage = errors.New("wire: malformed message")

	// ErrUnknownMessageType indicates an unrecognized message type tag.
	ErrUnknownMessageType = errors.New("wire: unknown message type")

	// ErrMissingEventName indicates an event message without a name.
	ErrMissingEventName = errors.New("wire: missing event name")
)

// Message is the JSON envelope exchanged over the connection.
type Message struct {
	Type  MessageType       `json:"t"`
	ID    uint64            `json:"id,omitempty"`
	Event string            `json:"event,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
	Code  int               `json:"code,omitempty"`
	Data  json.RawMessage   `json:"data,omitempty"`
}

// EncodeMessage encodes a Message to bytes.
func EncodeMessage(m *Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode message: %w", err)
	}
	return data, nil
}

// DecodeMessage decodes and validates a Message from bytes.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch m.Type {
	case MessageEvent:
		if m.Event == "" {
			return nil, ErrMissingEventName
		}
	case MessageAck, MessageError:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}

	return &m, nil
}

// NewEventMessage builds an event message carrying the given argument
// tuple. A non-zero id requests an acknowledgement.
func NewEventMessage(id uint64, event string, args ...Data) (*Message, error) {
	raw, err := Args(args...)
	if err != nil {
		return nil, err
	}
	return &Message{Type: MessageEvent, ID: id, Event: event, Args: raw}, nil
}

// NewAckMessage builds the acknowledgement for the event with the given id.
func NewAckMessage(id uint64, p Payload) (*Message, error) {
	m := &Message{Type: MessageAck, ID: id, Code: p.Code}
	if p.Data != nil {
		data, err := json.Marshal(p.Data)
		if err != nil {
			return nil, fmt.Errorf("wire: encode ack data: %w", err)
		}
		m.Data = data
	}
	return m, nil
}

// NewErrorMessage builds an error message with a status code and detail.
func NewErrorMessage(code int, detail string) *Message {
	data, _ := json.Marshal(detail)
	return &Message{Type: MessageError, Code: code, Data: data}
}

// Payload extracts the acknowledgement payload from an ack message.
func (m *Message) Payload() (Payload, error) {
	p := Payload{Code: m.Code}
	if len(m.Data) > 0 {
		if err := json.Unmarshal(m.Data, &p.Data); err != nil {
			return Payload{}, fmt.Errorf("%w: ack data: %v", ErrMalformedMessage, err)
		}
	}
	return p, nil
}

// Args marshals an argument tuple into its raw wire form.
func Args(vals ...Data) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("wire: encode argument %d: %w", i, err)
		}
		raw[i] = data
	}
	return raw, nil
}

// MustArgs is like Args but panics on a marshal failure. Intended for
// tests and static argument tuples.
func MustArgs(vals ...Data) []json.RawMessage {
	raw, err := Args(vals...)
	if err != nil {
		panic(err)
	}
	return raw
}
