package relay

import (
	"context"

	"github.com/google/uuid"

	"github.com/duplex-dev/duplexio/pkg/dispatch"
	"github.com/duplex-dev/duplexio/pkg/router"
	"github.com/duplex-dev/duplexio/pkg/transport"
)

// CreateArgs announces a new transfer.
type CreateArgs struct {
	FileName string `json:"file_name" validate:"required"`
}

// SubscribeArgs carries no fields of its own; the transfer id rides the
// slot as an injected field consumed by the open-transfer dependency.
type SubscribeArgs struct{}

// SendArgs pushes one chunk of an ongoing transfer.
type SendArgs struct {
	FileID string `json:"file_id" validate:"required"`
	Chunk  string `json:"chunk" validate:"required"`
}

// ConfirmArgs acknowledges receipt of one chunk.
type ConfirmArgs struct {
	FileID  string `json:"file_id" validate:"required"`
	ChunkID string `json:"chunk_id" validate:"required"`
}

// FinishArgs completes a transfer.
type FinishArgs struct {
	FileID string `json:"file_id" validate:"required"`
}

type createAck struct {
	FileID string `json:"file_id"`
}

type chunkAck struct {
	ChunkID string `json:"chunk_id"`
}

// chunkNotice is the push payload relayed between rooms. It always
// names the transfer so clients in several transfers can route it.
type chunkNotice struct {
	FileID  string `json:"file_id"`
	ChunkID string `json:"chunk_id"`
}

// Router assembles the relay event table over the given store.
func Router(store Store) (*router.EventRouter, error) {
	r := router.New()
	table := map[string]*dispatch.HandlerBuilder{
		"create":    createHandler(store),
		"subscribe": subscribeHandler(store),
		"send":      sendHandler(store),
		"confirm":   confirmHandler(store),
		"finish":    finishHandler(store),
	}
	for event, b := range table {
		if err := r.On(event, b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// createHandler announces a transfer and parks the publisher in the
// transfer's publishers room until a subscriber arrives.
func createHandler(store Store) *dispatch.HandlerBuilder {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		in := args[0].(*CreateArgs)
		socket := dispatch.Get[*transport.Socket](v, "socket")

		t := NewTransfer(in.FileName)
		if err := store.Save(ctx, t); err != nil {
			return nil, err
		}
		if err := socket.EnterRoom(PublishersRoom(t.FileID)); err != nil {
			return nil, err
		}
		return createAck{FileID: t.FileID}, nil
	}
	return dispatch.NewHandler(fn).
		Struct(func() any { return &CreateArgs{} }).
		Marker("socket", dispatch.SocketValue).
		Result(dispatch.NewAckPackager(func() any { return &createAck{} }, dispatch.CodeCreated))
}

// openTransfer resolves the transfer named by the injected file_id field
// and requires it to still be open.
func openTransfer(store Store) *dispatch.Dependency {
	fn := func(ctx context.Context, v dispatch.Values) (any, error) {
		fileID := dispatch.Get[string](v, "file_id")
		return FindWithStatus(ctx, store, fileID, StatusOpen)
	}
	return dispatch.NewDependency("open_transfer", fn).
		Field("file_id", func() any { return new(string) })
}

// subscribeHandler claims an open transfer for the caller: the transfer
// moves to full, the caller joins the subscribers room, and the
// publishers room is notified over the same event name.
func subscribeHandler(store Store) *dispatch.HandlerBuilder {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		t := dispatch.Get[*Transfer](v, "transfer")
		socket := dispatch.Get[*transport.Socket](v, "socket")
		notify := dispatch.Get[*dispatch.DuplexEmitter](v, "notify")

		if _, err := TransferStatus(ctx, store, t.FileID, StatusFull, StatusOpen); err != nil {
			return nil, err
		}
		t.Status = StatusFull
		if err := socket.EnterRoom(SubscribersRoom(t.FileID)); err != nil {
			return nil, err
		}
		if err := notify.Emit(ctx, t, PublishersRoom(t.FileID)); err != nil {
			return nil, err
		}
		return t, nil
	}
	return dispatch.NewHandler(fn).
		Struct(func() any { return &SubscribeArgs{} }).
		Use("transfer", openTransfer(store)).
		Marker("socket", dispatch.SocketValue).
		Marker("notify", dispatch.Duplex(dispatch.NewSchemaPackager(func() any { return &Transfer{} }))).
		Result(dispatch.NewAckPackager(func() any { return &Transfer{} }, dispatch.CodeOK))
}

// sendHandler relays one chunk to the subscribers room, excluding the
// sending publisher, and marks the transfer in flight.
func sendHandler(store Store) *dispatch.HandlerBuilder {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		in := args[0].(*SendArgs)
		notify := dispatch.Get[*dispatch.DuplexEmitter](v, "notify")

		if _, err := TransferStatus(ctx, store, in.FileID, StatusSent, StatusFull, StatusConfirmed); err != nil {
			return nil, err
		}
		chunkID := uuid.NewString()
		payload := map[string]any{"file_id": in.FileID, "chunk_id": chunkID, "chunk": in.Chunk}
		if err := notify.Emit(ctx, payload, SubscribersRoom(in.FileID)); err != nil {
			return nil, err
		}
		return chunkAck{ChunkID: chunkID}, nil
	}
	return dispatch.NewHandler(fn).
		Struct(func() any { return &SendArgs{} }).
		Marker("notify", dispatch.Duplex(nil)).
		Result(dispatch.NewAckPackager(func() any { return &chunkAck{} }, dispatch.CodeOK))
}

// confirmHandler marks the in-flight chunk received and echoes the
// confirmation back to the publishers room.
func confirmHandler(store Store) *dispatch.HandlerBuilder {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		in := args[0].(*ConfirmArgs)
		notify := dispatch.Get[*dispatch.DuplexEmitter](v, "notify")

		if _, err := TransferStatus(ctx, store, in.FileID, StatusConfirmed, StatusSent); err != nil {
			return nil, err
		}
		notice := chunkNotice{FileID: in.FileID, ChunkID: in.ChunkID}
		if err := notify.Emit(ctx, notice, PublishersRoom(in.FileID)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return dispatch.NewHandler(fn).
		Struct(func() any { return &ConfirmArgs{} }).
		Marker("notify", dispatch.Duplex(dispatch.NewSchemaPackager(func() any { return &chunkNotice{} }))).
		Result(dispatch.NewCodePackager(dispatch.CodeOK))
}

// finishHandler completes a confirmed transfer, removes it from the
// store, and tells the subscribers room the stream is over.
func finishHandler(store Store) *dispatch.HandlerBuilder {
	fn := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		in := args[0].(*FinishArgs)
		notify := dispatch.Get[*dispatch.DuplexEmitter](v, "notify")

		t, err := TransferStatus(ctx, store, in.FileID, StatusFinished, StatusConfirmed)
		if err != nil {
			return nil, err
		}
		if err := notify.Emit(ctx, t, SubscribersRoom(in.FileID)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return dispatch.NewHandler(fn).
		Struct(func() any { return &FinishArgs{} }).
		Marker("notify", dispatch.Duplex(dispatch.NewSchemaPackager(func() any { return &Transfer{} }))).
		Result(dispatch.NewCodePackager(dispatch.CodeOK))
}
