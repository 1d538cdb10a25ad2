// Package dispatch implements the event dispatch engine: compiled
// handler plans, dependency resolution, marker injection, and
// result/error packaging.
//
// A handler is declared once at startup through a builder:
//
//	h, err := dispatch.NewHandler(fn).
//		Struct(func() any { return new(CreateArgs) }).
//		Marker("sid", dispatch.SessionID).
//		Use("record", recordDep).
//		Result(dispatch.NewAckPackager(func() any { return new(createAck) }, dispatch.CodeCreated)).
//		Build()
//
// Build compiles the declarations into an immutable ClientHandler: one
// validated argument slot per Struct/Scalar call, a topologically sorted
// dependency execution order, and the marker fan-out table. Every
// registration-time problem (unknown slot index, conflicting field
// binding, dependency cycle) fails Build; nothing is deferred to request
// time.
//
// Per request, Handle validates the raw argument tuple, fills markers,
// resolves dependencies in plan order (each callable at most once, its
// value fanned out to every declared consumer), invokes the handler, and
// packages the result. All per-request state lives in a request-scoped
// arena; the compiled plan is shared read-only across concurrent
// requests. Scoped dependencies are released in reverse acquisition
// order on every exit path.
//
// A *Error returned by a dependency or handler is translated into an
// error payload. Any other error propagates to the hosting transport
// untouched.
package dispatch
