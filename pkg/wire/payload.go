package wire

// Data is any JSON-compatible value carried by an event argument,
// acknowledgement, or push.
type Data = any

// Payload is the single acknowledgement value returned to an event's
// caller. A zero Code means a bare payload; a non-zero Code pairs the
// data with an HTTP-like status.
type Payload struct {
	Code int  `json:"code,omitempty"`
	Data Data `json:"data,omitempty"`
}

// IsBare reports whether the payload carries no status code.
func (p Payload) IsBare() bool {
	return p.Code == 0
}

// Value returns the payload as a single wire value: the data itself for
// a bare payload, or a {code, data} object for a coded one.
func (p Payload) Value() Data {
	if p.IsBare() {
		return p.Data
	}
	if p.Data == nil {
		return map[string]any{"code": p.Code}
	}
	return map[string]any{"code": p.Code, "data": p.Data}
}
