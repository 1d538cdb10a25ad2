package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplex-dev/duplexio/pkg/dispatch"
	"github.com/duplex-dev/duplexio/pkg/transport"
)

func okHandler(code int) *dispatch.HandlerBuilder {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		return nil, nil
	}
	return dispatch.NewHandler(fn).Result(dispatch.NewCodePackager(code))
}

func TestOnRejectsDuplicateEvent(t *testing.T) {
	r := New()
	require.NoError(t, r.On("ping", okHandler(200)))
	assert.ErrorIs(t, r.On("ping", okHandler(200)), ErrDuplicateEvent)
}

func TestOnSurfacesCompileErrors(t *testing.T) {
	r := New()
	err := r.On("broken", dispatch.NewHandler(nil))
	assert.ErrorIs(t, err, dispatch.ErrNilHandlerFunc)
}

func TestMustOnPanicsOnFailure(t *testing.T) {
	r := New()
	assert.Panics(t, func() {
		r.MustOn("broken", dispatch.NewHandler(nil))
	})
}

func TestInclude(t *testing.T) {
	a := New()
	require.NoError(t, a.On("ping", okHandler(200)))

	b := New()
	require.NoError(t, b.On("pong", okHandler(200)))
	require.NoError(t, a.Include(b))
	assert.Equal(t, []string{"ping", "pong"}, a.Events())

	// A colliding merge leaves the destination untouched.
	c := New()
	require.NoError(t, c.On("ping", okHandler(204)))
	assert.ErrorIs(t, a.Include(c), ErrDuplicateEvent)
}

func TestDispatchUnknownEvent(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), transport.NewFake(), "sid", "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDispatchRunsHandler(t *testing.T) {
	var sawSID, sawEvent string
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		sawSID = dispatch.Get[string](v, "sid")
		sawEvent = dispatch.Get[string](v, "event")
		return nil, nil
	}
	b := dispatch.NewHandler(fn).
		Marker("sid", dispatch.SessionID).
		Marker("event", dispatch.EventName).
		Result(dispatch.NewCodePackager(200))

	r := New()
	require.NoError(t, r.On("probe", b))

	p, err := r.Dispatch(context.Background(), transport.NewFake(), "sid-3", "probe", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, p.Code)
	assert.Equal(t, "sid-3", sawSID)
	assert.Equal(t, "probe", sawEvent)
}

func TestDispatchPackagesDomainErrors(t *testing.T) {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		return nil, dispatch.NewError(dispatch.CodeNotFound, "not found")
	}
	r := New()
	require.NoError(t, r.On("lookup", dispatch.NewHandler(fn)))

	p, err := r.Dispatch(context.Background(), transport.NewFake(), "sid", "lookup", nil)
	require.NoError(t, err, "domain errors become payloads, not dispatch failures")
	assert.Equal(t, dispatch.CodeNotFound, p.Code)
}

func TestHandlerLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.On("ping", okHandler(200)))

	h, ok := r.Handler("ping")
	assert.True(t, ok)
	assert.NotNil(t, h)

	_, ok = r.Handler("nope")
	assert.False(t, ok)
}
