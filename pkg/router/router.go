// Package router maps event names to compiled dispatch plans and
// adapts incoming events into per-request dispatch contexts.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/duplex-dev/duplexio/pkg/dispatch"
	"github.com/duplex-dev/duplexio/pkg/transport"
	"github.com/duplex-dev/duplexio/pkg/wire"
)

// Sentinel errors for registration and dispatch.
var (
	// ErrDuplicateEvent is returned when an event name is registered twice.
	ErrDuplicateEvent = errors.New("router: event already registered")

	// ErrUnknownEvent is returned when no handler exists for an event.
	ErrUnknownEvent = errors.New("router: no handler registered for event")
)

// EventRouter holds the compiled plan for every registered event name.
// All registration happens at startup; dispatch reads the map without
// locking.
type EventRouter struct {
	handlers map[string]*dispatch.ClientHandler
	tracer   trace.Tracer
}

// New creates an empty router.
func New() *EventRouter {
	return &EventRouter{
		handlers: make(map[string]*dispatch.ClientHandler),
		tracer:   otel.Tracer("github.com/duplex-dev/duplexio/pkg/router"),
	}
}

// On compiles the handler declaration and registers it under the event
// name. Compilation failures and duplicate names fail here, at startup.
func (r *EventRouter) On(event string, b *dispatch.HandlerBuilder) error {
	if _, dup := r.handlers[event]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateEvent, event)
	}
	h, err := b.Build()
	if err != nil {
		return fmt.Errorf("router: compile handler for %q: %w", event, err)
	}
	r.handlers[event] = h
	return nil
}

// MustOn is On but panics on failure, for static registration tables.
func (r *EventRouter) MustOn(event string, b *dispatch.HandlerBuilder) *EventRouter {
	if err := r.On(event, b); err != nil {
		panic(err)
	}
	return r
}

// Include merges another router's handlers into this one.
func (r *EventRouter) Include(other *EventRouter) error {
	for event := range other.handlers {
		if _, dup := r.handlers[event]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateEvent, event)
		}
	}
	for event, h := range other.handlers {
		r.handlers[event] = h
	}
	return nil
}

// Handler returns the compiled plan for an event name.
func (r *EventRouter) Handler(event string) (*dispatch.ClientHandler, bool) {
	h, ok := r.handlers[event]
	return h, ok
}

// Events lists the registered event names, sorted.
func (r *EventRouter) Events() []string {
	events := make([]string, 0, len(r.handlers))
	for event := range r.handlers {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// Dispatch builds the per-request context and runs the compiled plan for
// the named event. The returned error is either ErrUnknownEvent or a
// fatal failure from the plan; domain errors are already packaged into
// the payload.
func (r *EventRouter) Dispatch(ctx context.Context, srv transport.Server, sid, event string, args []json.RawMessage) (wire.Payload, error) {
	h, ok := r.handlers[event]
	if !ok {
		return wire.Payload{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	ctx, span := r.tracer.Start(ctx, "event "+event, trace.WithAttributes(
		attribute.String("event.name", event),
		attribute.String("session.id", sid),
	))
	defer span.End()

	req := dispatch.NewRequest(srv, event, sid, args)
	p, err := h.Handle(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return wire.Payload{}, err
	}
	if p.Code != 0 {
		span.SetAttributes(attribute.Int("ack.code", p.Code))
	}
	return p, nil
}
