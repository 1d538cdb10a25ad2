package dispatch

import "github.com/duplex-dev/duplexio/pkg/wire"

// Packager converts a handler return value into a wire payload.
type Packager interface {
	Pack(v any) (wire.Payload, error)
}

// ErrorPackager converts a domain error into a wire payload.
type ErrorPackager interface {
	PackError(e *Error) wire.Payload
}

// NoopPackager passes a pre-shaped value through unchanged.
type NoopPackager struct{}

// Pack implements Packager.
func (NoopPackager) Pack(v any) (wire.Payload, error) {
	if p, ok := v.(wire.Payload); ok {
		return p, nil
	}
	return wire.Payload{Data: v}, nil
}

// SchemaPackager validates and re-serializes a value against a declared
// response schema, dropping unknown fields. This is the default
// contract-enforced response shape.
type SchemaPackager struct {
	proto func() any
}

// NewSchemaPackager creates a packager for the schema prototype. The
// proto func must return a pointer to a fresh schema instance.
func NewSchemaPackager(proto func() any) *SchemaPackager {
	return &SchemaPackager{proto: proto}
}

// Pack implements Packager.
func (p *SchemaPackager) Pack(v any) (wire.Payload, error) {
	data, err := reshape(p.proto, v)
	if err != nil {
		return wire.Payload{}, err
	}
	return wire.Payload{Data: data}, nil
}

// AckPackager packages a schema value together with a fixed status code.
type AckPackager struct {
	proto func() any
	code  int
}

// NewAckPackager creates a packager pairing the schema with the given
// status code.
func NewAckPackager(proto func() any, code int) *AckPackager {
	return &AckPackager{proto: proto, code: code}
}

// Pack implements Packager.
func (p *AckPackager) Pack(v any) (wire.Payload, error) {
	data, err := reshape(p.proto, v)
	if err != nil {
		return wire.Payload{}, err
	}
	return wire.Payload{Code: p.code, Data: data}, nil
}

// CodePackager discards the handler value and acknowledges with a bare
// status code.
type CodePackager struct {
	code int
}

// NewCodePackager creates a packager answering with the given code only.
func NewCodePackager(code int) CodePackager {
	return CodePackager{code: code}
}

// Pack implements Packager.
func (p CodePackager) Pack(any) (wire.Payload, error) {
	return wire.Payload{Code: p.code}, nil
}

// CodeErrorPackager maps a domain error to a (code, {reason, detail})
// acknowledgement, mirroring HTTP status semantics on the single ack
// channel.
type CodeErrorPackager struct{}

// PackError implements ErrorPackager.
func (CodeErrorPackager) PackError(e *Error) wire.Payload {
	body := map[string]any{"reason": e.Reason}
	if e.Detail != nil {
		body["detail"] = e.Detail
	}
	return wire.Payload{Code: e.Code, Data: body}
}
