package dispatch

import (
	"errors"
	"fmt"
)

// HTTP-like status codes multiplexed onto the acknowledgement channel.
const (
	CodeOK            = 200
	CodeCreated       = 201
	CodeNoContent     = 204
	CodeBadRequest    = 400
	CodeNotFound      = 404
	CodeUnprocessable = 422
	CodeInternal      = 500
)

// Error is the structured domain error. It is the only error type the
// dispatch engine translates into a wire payload; anything else
// propagates to the hosting transport as a fatal failure.
type Error struct {
	Code   int
	Reason string
	Detail any
}

// NewError creates a domain error with the given status code and reason.
func NewError(code int, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// WithDetail returns a copy of the error carrying extra detail.
func (e *Error) WithDetail(detail any) *Error {
	clone := *e
	clone.Detail = detail
	return &clone
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("event error %d: %s: %v", e.Code, e.Reason, e.Detail)
	}
	return fmt.Sprintf("event error %d: %s", e.Code, e.Reason)
}

// AsError extracts a domain error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Sentinel errors for registration-time failures. These surface from
// HandlerBuilder.Build and never reach request time.
var (
	// ErrNilHandlerFunc indicates NewHandler was given a nil function.
	ErrNilHandlerFunc = errors.New("dispatch: handler func is nil")

	// ErrNilDependency indicates a nil dependency was bound to a parameter.
	ErrNilDependency = errors.New("dispatch: dependency is nil")

	// ErrNilMarker indicates a nil marker was bound to a parameter.
	ErrNilMarker = errors.New("dispatch: marker is nil")

	// ErrNilPrototype indicates an argument slot or injected field was
	// declared without a prototype.
	ErrNilPrototype = errors.New("dispatch: prototype func is nil")

	// ErrDependencyCycle indicates the declared dependency graph is not
	// acyclic.
	ErrDependencyCycle = errors.New("dispatch: dependency cycle detected")

	// ErrNoExpandableSlot indicates an injected field was declared but the
	// handler has no structured argument slot to carry it.
	ErrNoExpandableSlot = errors.New("dispatch: no expandable argument slot")

	// ErrSlotNotExpandable indicates an indexed field points at a slot
	// that cannot carry injected fields.
	ErrSlotNotExpandable = errors.New("dispatch: argument slot is not expandable")

	// ErrSlotOutOfRange indicates an indexed field points past the
	// declared argument slots.
	ErrSlotOutOfRange = errors.New("dispatch: argument slot index out of range")

	// ErrAmbiguousField indicates one consumer declared the same field
	// name twice.
	ErrAmbiguousField = errors.New("dispatch: ambiguous field binding")
)
