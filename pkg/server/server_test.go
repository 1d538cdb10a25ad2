package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duplex-dev/duplexio/pkg/dispatch"
	"github.com/duplex-dev/duplexio/pkg/router"
	"github.com/duplex-dev/duplexio/pkg/transport"
	"github.com/duplex-dev/duplexio/pkg/wire"
)

// testRouter wires a minimal event table: join a room, shout to a room
// excluding yourself, echo a payload back.
func testRouter(t *testing.T) *router.EventRouter {
	t.Helper()

	type joinArgs struct {
		Room string `json:"room" validate:"required"`
	}
	type shoutArgs struct {
		Room string `json:"room" validate:"required"`
		Text string `json:"text" validate:"required"`
	}

	r := router.New()

	join := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		in := args[0].(*joinArgs)
		socket := dispatch.Get[*transport.Socket](v, "socket")
		return nil, socket.EnterRoom(in.Room)
	}
	require.NoError(t, r.On("join", dispatch.NewHandler(join).
		Struct(func() any { return &joinArgs{} }).
		Marker("socket", dispatch.SocketValue).
		Result(dispatch.NewCodePackager(200))))

	shout := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		in := args[0].(*shoutArgs)
		notify := dispatch.Get[*dispatch.DuplexEmitter](v, "notify")
		return nil, notify.Emit(ctx, in.Text, in.Room)
	}
	require.NoError(t, r.On("shout", dispatch.NewHandler(shout).
		Struct(func() any { return &shoutArgs{} }).
		Marker("notify", dispatch.Duplex(nil)).
		Result(dispatch.NewCodePackager(200))))

	echo := func(ctx context.Context, args []any, v dispatch.Values) (any, error) {
		return *args[0].(*string), nil
	}
	require.NoError(t, r.On("echo", dispatch.NewHandler(echo).
		Scalar(func() any { return new(string) })))

	return r
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	ws := New(testRouter(t), &Config{
		CheckOrigin: AllowAllOrigins,
		Registerer:  prometheus.NewRegistry(),
	})
	httpSrv := httptest.NewServer(ws)
	t.Cleanup(httpSrv.Close)
	t.Cleanup(func() { ws.Shutdown(context.Background()) })
	return ws, "ws" + strings.TrimPrefix(httpSrv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sendEvent(t *testing.T, c *websocket.Conn, id uint64, event string, args ...wire.Data) {
	t.Helper()
	msg, err := wire.NewEventMessage(id, event, args...)
	require.NoError(t, err)
	data, err := wire.EncodeMessage(msg)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, data))
}

func readMessage(t *testing.T, c *websocket.Conn) *wire.Message {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	msg, err := wire.DecodeMessage(data)
	require.NoError(t, err)
	return msg
}

func TestServerAcksEvents(t *testing.T) {
	_, url := newTestServer(t)
	c := dial(t, url)

	sendEvent(t, c, 1, "echo", "hello")
	ack := readMessage(t, c)
	assert.Equal(t, wire.MessageAck, ack.Type)
	assert.Equal(t, uint64(1), ack.ID)

	p, err := ack.Payload()
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Data)
}

func TestServerUnknownEvent(t *testing.T) {
	_, url := newTestServer(t)
	c := dial(t, url)

	sendEvent(t, c, 1, "bogus")
	ack := readMessage(t, c)
	assert.Equal(t, wire.MessageAck, ack.Type)
	assert.Equal(t, 404, ack.Code)
}

func TestServerNoAckWithoutID(t *testing.T) {
	ws, url := newTestServer(t)
	c := dial(t, url)

	// Fire-and-forget event, then a tracked one: only one ack comes back.
	sendEvent(t, c, 0, "echo", "silent")
	sendEvent(t, c, 2, "echo", "tracked")

	ack := readMessage(t, c)
	assert.Equal(t, uint64(2), ack.ID)
	assert.Equal(t, 1, ws.ConnectionCount())
}

func TestServerRoomBroadcastExcludesSender(t *testing.T) {
	_, url := newTestServer(t)
	alice := dial(t, url)
	bob := dial(t, url)

	sendEvent(t, alice, 1, "join", map[string]any{"room": "lobby"})
	readMessage(t, alice)
	sendEvent(t, bob, 1, "join", map[string]any{"room": "lobby"})
	readMessage(t, bob)

	sendEvent(t, alice, 2, "shout", map[string]any{"room": "lobby", "text": "hi"})

	// Alice only sees her ack; the shout goes to Bob.
	ack := readMessage(t, alice)
	assert.Equal(t, wire.MessageAck, ack.Type)
	assert.Equal(t, 200, ack.Code)

	push := readMessage(t, bob)
	assert.Equal(t, wire.MessageEvent, push.Type)
	assert.Equal(t, "shout", push.Event)
	require.Len(t, push.Args, 1)
	assert.JSONEq(t, `"hi"`, string(push.Args[0]))
}

func TestServerValidationErrorAck(t *testing.T) {
	_, url := newTestServer(t)
	c := dial(t, url)

	sendEvent(t, c, 1, "join", map[string]any{})
	ack := readMessage(t, c)
	assert.Equal(t, 422, ack.Code)
}

func TestServerDisconnectCleansUpRooms(t *testing.T) {
	ws, url := newTestServer(t)
	c := dial(t, url)

	sendEvent(t, c, 1, "join", map[string]any{"room": "lobby"})
	readMessage(t, c)
	require.True(t, ws.rooms.exists("lobby"))

	c.Close()
	require.Eventually(t, func() bool {
		return ws.ConnectionCount() == 0 && !ws.rooms.exists("lobby")
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServerConnectionLimit(t *testing.T) {
	ws := New(testRouter(t), &Config{
		MaxConnections: 1,
		CheckOrigin:    AllowAllOrigins,
		Registerer:     prometheus.NewRegistry(),
	})
	httpSrv := httptest.NewServer(ws)
	t.Cleanup(httpSrv.Close)
	t.Cleanup(func() { ws.Shutdown(context.Background()) })
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	first := dial(t, url)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)

	// The accepted connection keeps working.
	sendEvent(t, first, 1, "echo", "still here")
	ack := readMessage(t, first)
	assert.Equal(t, uint64(1), ack.ID)
}

func TestServerShutdownRejectsNewConnections(t *testing.T) {
	ws, url := newTestServer(t)
	require.NoError(t, ws.Shutdown(context.Background()))
	assert.ErrorIs(t, ws.Shutdown(context.Background()), ErrServerClosed)

	_, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
}
