package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/duplex-dev/duplexio/pkg/wire"
)

// Handle runs the compiled plan against one incoming event and returns
// the acknowledgement payload. Argument-shape problems and domain errors
// become error payloads; any other error is a fatal failure and is
// returned to the hosting transport untranslated.
func (h *ClientHandler) Handle(ctx context.Context, req *Request) (wire.Payload, error) {
	if len(req.Args) != len(h.slots) {
		reason := fmt.Sprintf("event requires exactly %s, but %s received",
			countArguments(len(h.slots)), countArguments(len(req.Args))+" "+wasWere(len(req.Args)))
		return h.errPackager.PackError(NewError(CodeUnprocessable, reason)), nil
	}

	ar := newArena(h.consumers)

	args, derr := h.decodeArgs(req.Args, ar)
	if derr != nil {
		return h.errPackager.PackError(derr), nil
	}

	// Each distinct marker is extracted exactly once, then fanned out.
	for _, me := range h.markers {
		value := me.marker.Extract(req)
		for _, d := range me.dests {
			ar.set(d, value)
		}
	}

	value, err := h.run(ctx, args, ar)
	if err != nil {
		if de, ok := AsError(err); ok {
			return h.errPackager.PackError(de), nil
		}
		return wire.Payload{}, err
	}

	p, err := h.result.Pack(value)
	if err != nil {
		return wire.Payload{}, fmt.Errorf("dispatch: pack result for %q: %w", req.Event, err)
	}
	return p, nil
}

// decodeArgs validates each raw argument against its slot schema and
// scatters injected sidecar fields to their consumers.
func (h *ClientHandler) decodeArgs(raw []json.RawMessage, ar *arena) ([]any, *Error) {
	args := make([]any, len(h.slots))
	for i, slot := range h.slots {
		target := slot.proto()
		if err := json.Unmarshal(raw[i], target); err != nil {
			return nil, badArguments(i, err)
		}
		if slot.structured {
			if err := validateSchema(target); err != nil {
				return nil, badArguments(i, err)
			}
		}
		args[i] = target

		if len(slot.fields) == 0 {
			continue
		}

		var sidecar map[string]json.RawMessage
		if err := json.Unmarshal(raw[i], &sidecar); err != nil {
			return nil, badArguments(i, err)
		}
		for _, f := range slot.fields {
			fr, ok := sidecar[f.name]
			if !ok {
				return nil, badArguments(i, fmt.Errorf("missing field %q", f.name))
			}
			fv := f.proto()
			if err := json.Unmarshal(fr, fv); err != nil {
				return nil, badArguments(i, fmt.Errorf("field %q: %w", f.name, err))
			}
			value := indirect(fv)
			for _, d := range f.dests {
				ar.set(d, value)
			}
		}
	}
	return args, nil
}

func badArguments(slot int, err error) *Error {
	return NewError(CodeUnprocessable, "bad arguments").
		WithDetail(fmt.Sprintf("argument %d: %v", slot, err))
}

func countArguments(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

// run resolves dependencies in plan order and invokes the handler.
// Scoped resources acquired along the way are released in reverse order
// on every exit path.
func (h *ClientHandler) run(ctx context.Context, args []any, ar *arena) (_ any, err error) {
	defer func() {
		relErr := ar.release(ctx)
		if relErr == nil {
			return
		}
		if err == nil {
			err = relErr
			return
		}
		// The request already failed and that error wins; teardown
		// failures still have to be observable.
		slog.Error("scoped release failed after request error", "error", relErr)
	}()

	for _, node := range h.order {
		var value any
		switch node.dep.kind {
		case depPlain:
			value, err = node.dep.plain(ctx, ar.values[node.consumer])

		case depScoped:
			var release ReleaseFunc
			value, release, err = node.dep.scoped(ctx, ar.values[node.consumer])
			if err == nil && release != nil {
				ar.push(func(context.Context) error { return release() })
			}

		case depScopedContext:
			var release ContextReleaseFunc
			value, release, err = node.dep.scopedCtx(ctx, ar.values[node.consumer])
			if err == nil && release != nil {
				ar.push(release)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("resolve dependency %q: %w", node.dep.name, err)
		}

		for _, d := range node.dests {
			ar.set(d, value)
		}
	}

	return h.fn(ctx, args, ar.values[0])
}

// arena is the request-scoped store for consumer argument bindings and
// acquired scopes. The compiled plan is never written to; every request
// gets its own arena.
type arena struct {
	values []Values
	scopes []ContextReleaseFunc
}

func newArena(consumers int) *arena {
	values := make([]Values, consumers)
	for i := range values {
		values[i] = make(Values)
	}
	return &arena{values: values}
}

func (a *arena) set(d fieldDest, v any) {
	a.values[d.consumer][d.field] = v
}

func (a *arena) push(release ContextReleaseFunc) {
	a.scopes = append(a.scopes, release)
}

// release tears down acquired scopes in reverse acquisition order. All
// releases run even when some fail; failures are joined.
func (a *arena) release(ctx context.Context) error {
	var errs []error
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if err := a.scopes[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.scopes = nil
	return errors.Join(errs...)
}
