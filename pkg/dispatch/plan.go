package dispatch

import "context"

// HandlerFunc is the application callable behind one event. args holds
// the validated positional slot values in declaration order (pointers to
// the slot prototypes); v holds the marker, dependency, and injected
// field values declared for the handler.
type HandlerFunc func(ctx context.Context, args []any, v Values) (any, error)

// HandlerBuilder declares one event handler. All declarations are
// evaluated once by Build; the resulting ClientHandler is immutable.
type HandlerBuilder struct {
	fn          HandlerFunc
	slots       []slotSpec
	params      []paramSpec
	result      Packager
	errPackager ErrorPackager
}

type slotSpec struct {
	structured bool
	proto      func() any
}

// NewHandler starts declaring a handler for the given callable.
func NewHandler(fn HandlerFunc) *HandlerBuilder {
	return &HandlerBuilder{fn: fn}
}

// Struct appends a structured (JSON object) positional argument slot.
// The proto func must return a pointer to a fresh schema struct. The
// first structured slot is the expandable one: it may carry injected
// fields declared via Field/FieldAt.
func (b *HandlerBuilder) Struct(proto func() any) *HandlerBuilder {
	b.slots = append(b.slots, slotSpec{structured: true, proto: proto})
	return b
}

// Scalar appends a scalar positional argument slot. The proto func must
// return a pointer to a fresh scalar value.
func (b *HandlerBuilder) Scalar(proto func() any) *HandlerBuilder {
	b.slots = append(b.slots, slotSpec{structured: false, proto: proto})
	return b
}

// Marker binds a marker extraction to the named handler parameter.
func (b *HandlerBuilder) Marker(field string, m Marker) *HandlerBuilder {
	b.params = append(b.params, paramSpec{field: field, source: srcMarker, marker: m})
	return b
}

// Use binds a dependency's resolved value to the named handler
// parameter.
func (b *HandlerBuilder) Use(field string, dep *Dependency) *HandlerBuilder {
	b.params = append(b.params, paramSpec{field: field, source: srcDependency, dep: dep})
	return b
}

// Field declares a wire field riding the first expandable argument slot,
// bound to the named handler parameter.
func (b *HandlerBuilder) Field(field string, proto func() any) *HandlerBuilder {
	b.params = append(b.params, paramSpec{field: field, source: srcField, proto: proto})
	return b
}

// FieldAt is Field targeting an explicit argument slot index.
func (b *HandlerBuilder) FieldAt(slot int, field string, proto func() any) *HandlerBuilder {
	b.params = append(b.params, paramSpec{field: field, source: srcIndexedField, proto: proto, slot: slot})
	return b
}

// Result sets the result packager. Default: NoopPackager.
func (b *HandlerBuilder) Result(p Packager) *HandlerBuilder {
	b.result = p
	return b
}

// Errors sets the error packager. Default: CodeErrorPackager.
func (b *HandlerBuilder) Errors(p ErrorPackager) *HandlerBuilder {
	b.errPackager = p
	return b
}

// ClientHandler is the compiled execution plan for one event: argument
// slot schemas, marker fan-out, the topologically sorted dependency
// order, and the packagers. It is built once at registration, holds no
// per-request state, and is shared read-only across concurrent requests.
type ClientHandler struct {
	fn          HandlerFunc
	slots       []argSlot
	expandable  int // index of the expandable slot, -1 when none
	markers     []markerEntry
	order       []*depNode
	consumers   int
	result      Packager
	errPackager ErrorPackager
}

// argSlot is one compiled positional argument slot. fields is non-empty
// only on the expandable slot.
type argSlot struct {
	structured bool
	proto      func() any
	fields     []injectedField
}

// injectedField is one sidecar field riding the expandable slot: decoded
// from the same wire object as the base schema but fanned out to
// consumers instead of appearing in the base struct.
type injectedField struct {
	name  string
	proto func() any
	dests []fieldDest
}

// fieldDest addresses one consumer parameter. Consumer 0 is the handler;
// dependency nodes follow in creation order.
type fieldDest struct {
	consumer int
	field    string
}

// markerEntry maps one distinct marker to every parameter needing its
// value. The marker is extracted exactly once per request.
type markerEntry struct {
	marker Marker
	dests  []fieldDest
}

// depNode is one compiled dependency graph node.
type depNode struct {
	dep      *Dependency
	consumer int
	dests    []fieldDest
	needs    []*depNode
}

// ArgCount returns the number of declared positional argument slots.
func (h *ClientHandler) ArgCount() int {
	return len(h.slots)
}

// DependencyCount returns the number of distinct dependency nodes in the
// compiled plan.
func (h *ClientHandler) DependencyCount() int {
	return len(h.order)
}
