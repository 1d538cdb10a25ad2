package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(ctx context.Context, args []any, v Values) (any, error) {
	return nil, nil
}

func TestBuildRejectsNilHandlerFunc(t *testing.T) {
	_, err := NewHandler(nil).Build()
	assert.ErrorIs(t, err, ErrNilHandlerFunc)
}

func TestBuildRejectsNilSlotPrototype(t *testing.T) {
	_, err := NewHandler(nopHandler).Struct(nil).Build()
	assert.ErrorIs(t, err, ErrNilPrototype)
}

func TestBuildRejectsNilMarker(t *testing.T) {
	_, err := NewHandler(nopHandler).Marker("sid", nil).Build()
	assert.ErrorIs(t, err, ErrNilMarker)
}

func TestBuildRejectsNilDependency(t *testing.T) {
	_, err := NewHandler(nopHandler).Use("db", nil).Build()
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestBuildRejectsFieldWithoutExpandableSlot(t *testing.T) {
	// Only a scalar slot: nothing can carry an injected field.
	_, err := NewHandler(nopHandler).
		Scalar(func() any { return new(int) }).
		Field("file_id", func() any { return new(string) }).
		Build()
	assert.ErrorIs(t, err, ErrNoExpandableSlot)
}

func TestBuildRejectsIndexedFieldOutOfRange(t *testing.T) {
	_, err := NewHandler(nopHandler).
		Struct(func() any { return &struct{}{} }).
		FieldAt(3, "file_id", func() any { return new(string) }).
		Build()
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}

func TestBuildRejectsIndexedFieldOnScalarSlot(t *testing.T) {
	_, err := NewHandler(nopHandler).
		Struct(func() any { return &struct{}{} }).
		Scalar(func() any { return new(int) }).
		FieldAt(1, "file_id", func() any { return new(string) }).
		Build()
	assert.ErrorIs(t, err, ErrSlotNotExpandable)
}

func TestBuildRejectsAmbiguousFieldBinding(t *testing.T) {
	_, err := NewHandler(nopHandler).
		Marker("sid", SessionID).
		Marker("sid", EventName).
		Build()
	assert.ErrorIs(t, err, ErrAmbiguousField)
}

func TestBuildSharesDependencyNode(t *testing.T) {
	shared := NewDependency("shared", func(ctx context.Context, v Values) (any, error) {
		return 1, nil
	})
	left := NewDependency("left", func(ctx context.Context, v Values) (any, error) {
		return 2, nil
	}).Use("s", shared)
	right := NewDependency("right", func(ctx context.Context, v Values) (any, error) {
		return 3, nil
	}).Use("s", shared)

	h, err := NewHandler(nopHandler).
		Use("l", left).
		Use("r", right).
		Build()
	require.NoError(t, err)

	// One node per distinct *Dependency: shared, left, right.
	assert.Equal(t, 3, h.DependencyCount())
}

func TestBuildRejectsDependencyCycle(t *testing.T) {
	a := NewDependency("a", func(ctx context.Context, v Values) (any, error) { return nil, nil })
	b := NewDependency("b", func(ctx context.Context, v Values) (any, error) { return nil, nil })
	a.Use("b", b)
	b.Use("a", a)

	_, err := NewHandler(nopHandler).Use("a", a).Build()
	assert.ErrorIs(t, err, ErrDependencyCycle)
}

func TestBuildOrdersDependenciesByLayer(t *testing.T) {
	var order []string
	record := func(name string) Func {
		return func(ctx context.Context, v Values) (any, error) {
			order = append(order, name)
			return name, nil
		}
	}

	base := NewDependency("base", record("base"))
	mid := NewDependency("mid", record("mid")).Use("base", base)
	top := NewDependency("top", record("top")).Use("mid", mid)

	h, err := NewHandler(nopHandler).Use("top", top).Build()
	require.NoError(t, err)
	require.Equal(t, 3, h.DependencyCount())

	fake := newFakeServer()
	_, err = h.Handle(context.Background(), NewRequest(fake, "x", "sid", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "mid", "top"}, order)
}

func TestBuildCoalescesIdenticalMarkers(t *testing.T) {
	seen := map[string]string{}
	fn := func(ctx context.Context, args []any, v Values) (any, error) {
		seen["a"] = Get[string](v, "a")
		seen["b"] = Get[string](v, "b")
		return nil, nil
	}

	h, err := NewHandler(fn).
		Marker("a", SessionID).
		Marker("b", SessionID).
		Build()
	require.NoError(t, err)

	fake := newFakeServer()
	_, err = h.Handle(context.Background(), NewRequest(fake, "x", "sid-9", nil))
	require.NoError(t, err)
	assert.Equal(t, "sid-9", seen["a"])
	assert.Equal(t, "sid-9", seen["b"])
}

func TestBuildArgCount(t *testing.T) {
	h, err := NewHandler(nopHandler).
		Struct(func() any { return &struct{}{} }).
		Scalar(func() any { return new(string) }).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 2, h.ArgCount())
}
