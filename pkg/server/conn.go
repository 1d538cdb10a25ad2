package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duplex-dev/duplexio/pkg/wire"
)

// conn is one live WebSocket connection.
type conn struct {
	sid    string
	ws     *websocket.Conn
	server *Server
	logger *slog.Logger

	send   chan []byte
	done   chan struct{}
	closed atomic.Bool

	sessionMu sync.RWMutex
	session   map[string]any

	callID  atomic.Uint64
	callsMu sync.Mutex
	calls   map[uint64]chan *wire.Message
}

func newConn(sid string, ws *websocket.Conn, s *Server) *conn {
	return &conn{
		sid:     sid,
		ws:      ws,
		server:  s,
		logger:  s.logger.With("sid", sid),
		send:    make(chan []byte, s.config.SendQueueSize),
		done:    make(chan struct{}),
		session: make(map[string]any),
		calls:   make(map[uint64]chan *wire.Message),
	}
}

// readLoop continuously reads messages from the connection. It blocks
// until the connection closes or a read fails.
func (c *conn) readLoop() {
	defer c.close()

	c.ws.SetReadLimit(c.server.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
		c.server.metrics.BytesRead.Add(float64(len(data)))

		msg, err := wire.DecodeMessage(data)
		if err != nil {
			c.logger.Warn("message decode error", "error", err)
			c.writeMessage(wire.NewErrorMessage(400, "malformed message"))
			continue
		}

		switch msg.Type {
		case wire.MessageEvent:
			go c.server.handleEvent(c, msg)

		case wire.MessageAck:
			c.resolveCall(msg)

		case wire.MessageError:
			c.logger.Warn("client error", "code", msg.Code)
		}
	}
}

// writeLoop drains the send queue and emits heartbeat pings. It runs
// until the connection closes.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.server.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("write error", "error", err)
				c.close()
				return
			}
			c.server.metrics.BytesWritten.Add(float64(len(data)))

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// write queues raw bytes for delivery.
func (c *conn) write(data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendQueueFull
	}
}

// writeMessage encodes and queues one wire message.
func (c *conn) writeMessage(msg *wire.Message) error {
	data, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

// call round-trips an event to the client and waits for the matching
// acknowledgement.
func (c *conn) call(ctx context.Context, event string, data wire.Data, timeout time.Duration) (wire.Data, error) {
	id := c.callID.Add(1)
	reply := make(chan *wire.Message, 1)

	c.callsMu.Lock()
	c.calls[id] = reply
	c.callsMu.Unlock()
	defer func() {
		c.callsMu.Lock()
		delete(c.calls, id)
		c.callsMu.Unlock()
	}()

	msg, err := wire.NewEventMessage(id, event, data)
	if err != nil {
		return nil, err
	}
	if err := c.writeMessage(msg); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-reply:
		p, err := ack.Payload()
		if err != nil {
			return nil, err
		}
		return p.Value(), nil
	case <-timer.C:
		return nil, ErrCallTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrConnectionClosed
	}
}

// resolveCall delivers a client acknowledgement to its waiting call.
func (c *conn) resolveCall(msg *wire.Message) {
	c.callsMu.Lock()
	reply, ok := c.calls[msg.ID]
	delete(c.calls, msg.ID)
	c.callsMu.Unlock()
	if ok {
		reply <- msg
	}
}

// getSession returns a copy of the connection's session data.
func (c *conn) getSession() map[string]any {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	out := make(map[string]any, len(c.session))
	for k, v := range c.session {
		out[k] = v
	}
	return out
}

// saveSession replaces the connection's session data.
func (c *conn) saveSession(session map[string]any) {
	copied := make(map[string]any, len(session))
	for k, v := range session {
		copied[k] = v
	}
	c.sessionMu.Lock()
	c.session = copied
	c.sessionMu.Unlock()
}

// close tears the connection down once: unregisters it, leaves all
// rooms, and closes the socket.
func (c *conn) close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	c.server.unregister(c)
	c.ws.Close()
	c.logger.Debug("connection closed")
}
