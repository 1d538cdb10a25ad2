package dispatch

import "context"

// Values holds the named arguments accumulated for one callable: marker
// extractions, resolved dependency values, and injected argument fields.
// A fresh Values is allocated per consumer per request.
type Values map[string]any

// Get returns the named value typed as T, or T's zero value when the
// name is absent or holds a different type.
func Get[T any](v Values, name string) T {
	val, _ := v[name].(T)
	return val
}

// Func is a plain dependency callable: called once per request, its
// return value shared by every declared consumer.
type Func func(ctx context.Context, v Values) (any, error)

// ReleaseFunc tears down a scoped resource.
type ReleaseFunc func() error

// ScopedFunc is a scoped dependency callable: it acquires a resource and
// returns it together with its release func. Release is guaranteed to
// run on every exit path, in reverse acquisition order.
type ScopedFunc func(ctx context.Context, v Values) (any, ReleaseFunc, error)

// ContextReleaseFunc tears down a scoped resource that needs a context
// for its own teardown I/O.
type ContextReleaseFunc func(ctx context.Context) error

// ScopedContextFunc is ScopedFunc for resources with context-aware
// teardown.
type ScopedContextFunc func(ctx context.Context, v Values) (any, ContextReleaseFunc, error)

// depKind tags the dependency callable shape, fixed at construction.
type depKind uint8

const (
	depPlain depKind = iota
	depScoped
	depScopedContext
)

func (k depKind) String() string {
	switch k {
	case depPlain:
		return "plain"
	case depScoped:
		return "scoped"
	case depScopedContext:
		return "scoped-context"
	default:
		return "unknown"
	}
}

// Dependency declares one dependency callable and its parameter
// bindings. The same *Dependency registered at several parameters of one
// handler resolves to a single graph node: the callable runs once per
// request and its value fans out to every consumer.
//
// Dependencies take no positional arguments; everything they consume
// arrives through markers, injected argument fields, or other
// dependencies.
type Dependency struct {
	name      string
	kind      depKind
	plain     Func
	scoped    ScopedFunc
	scopedCtx ScopedContextFunc
	params    []paramSpec
}

// paramSource classifies one declared parameter binding.
type paramSource uint8

const (
	srcMarker paramSource = iota
	srcDependency
	srcField        // injected into the first expandable slot
	srcIndexedField // injected into an explicit slot index
)

// paramSpec is one declared parameter of a handler or dependency.
type paramSpec struct {
	field  string
	source paramSource
	marker Marker
	dep    *Dependency
	proto  func() any
	slot   int
}

// NewDependency declares a plain dependency callable.
func NewDependency(name string, fn Func) *Dependency {
	return &Dependency{name: name, kind: depPlain, plain: fn}
}

// NewScoped declares a scoped dependency callable with synchronous
// teardown.
func NewScoped(name string, fn ScopedFunc) *Dependency {
	return &Dependency{name: name, kind: depScoped, scoped: fn}
}

// NewScopedContext declares a scoped dependency callable with
// context-aware teardown.
func NewScopedContext(name string, fn ScopedContextFunc) *Dependency {
	return &Dependency{name: name, kind: depScopedContext, scopedCtx: fn}
}

// Name returns the diagnostic name of the dependency.
func (d *Dependency) Name() string {
	return d.name
}

// Marker binds a marker extraction to the named parameter.
func (d *Dependency) Marker(field string, m Marker) *Dependency {
	d.params = append(d.params, paramSpec{field: field, source: srcMarker, marker: m})
	return d
}

// Use binds another dependency's resolved value to the named parameter.
func (d *Dependency) Use(field string, dep *Dependency) *Dependency {
	d.params = append(d.params, paramSpec{field: field, source: srcDependency, dep: dep})
	return d
}

// Field declares a wire field riding the handler's first expandable
// argument slot, decoded into the prototype and bound to the named
// parameter.
func (d *Dependency) Field(field string, proto func() any) *Dependency {
	d.params = append(d.params, paramSpec{field: field, source: srcField, proto: proto})
	return d
}

// FieldAt is Field targeting an explicit argument slot index.
func (d *Dependency) FieldAt(slot int, field string, proto func() any) *Dependency {
	d.params = append(d.params, paramSpec{field: field, source: srcIndexedField, proto: proto, slot: slot})
	return d
}
