package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/duplex-dev/duplexio/pkg/router"
	"github.com/duplex-dev/duplexio/pkg/transport"
	"github.com/duplex-dev/duplexio/pkg/wire"
)

// Dispatcher routes one incoming event to its handler and returns the
// acknowledgement payload. *router.EventRouter satisfies this.
type Dispatcher interface {
	Dispatch(ctx context.Context, srv transport.Server, sid, event string, args []json.RawMessage) (wire.Payload, error)
}

// Server accepts WebSocket connections, feeds incoming events to a
// Dispatcher, and implements the transport surface handlers use to
// address connections and rooms. It is an http.Handler: mount it on the
// route that clients connect to.
type Server struct {
	config     *Config
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *Metrics
	upgrader   websocket.Upgrader
	rooms      *roomSet

	mu     sync.RWMutex
	conns  map[string]*conn
	closed bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server dispatching to d. A nil config uses defaults.
func New(d Dispatcher, config *Config, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		config:     config,
		dispatcher: d,
		logger:     slog.Default(),
		metrics:    newMetrics(config.Registerer),
		rooms:      newRoomSet(),
		conns:      make(map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			CheckOrigin:       config.CheckOrigin,
			EnableCompression: config.EnableCompression,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request to a WebSocket connection and runs its
// read and write loops until the connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	if s.config.MaxConnections > 0 && len(s.conns) >= s.config.MaxConnections {
		s.mu.Unlock()
		s.logger.Warn("connection rejected", "error", ErrTooManyConnections)
		http.Error(w, ErrTooManyConnections.Error(), http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(uuid.NewString(), ws, s)
	s.mu.Lock()
	s.conns[c.sid] = c
	s.mu.Unlock()

	s.metrics.ActiveConnections.Inc()
	s.metrics.ConnectionsTotal.Inc()
	s.logger.Debug("connection opened", "sid", c.sid)

	go c.writeLoop()
	c.readLoop()
}

// handleEvent dispatches one incoming event and acknowledges it when the
// client asked for a reply.
func (s *Server) handleEvent(c *conn, msg *wire.Message) {
	s.metrics.EventsReceived.Inc()
	start := time.Now()
	defer func() {
		s.metrics.EventDuration.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.PanicsRecovered.Inc()
			c.logger.Error("handler panic", "event", msg.Event, "panic", rec)
			c.writeMessage(wire.NewErrorMessage(500, "internal error"))
		}
	}()

	p, err := s.dispatcher.Dispatch(context.Background(), s, c.sid, msg.Event, msg.Args)
	if err != nil {
		s.metrics.EventsErrored.Inc()
		switch {
		case errors.Is(err, router.ErrUnknownEvent):
			p = wire.Payload{Code: 404, Data: map[string]any{"reason": "unknown event"}}
		default:
			c.logger.Error("dispatch failed", "event", msg.Event, "error", err)
			p = wire.Payload{Code: 500, Data: map[string]any{"reason": "internal error"}}
		}
	}

	if msg.ID == 0 {
		return
	}
	ack, err := wire.NewAckMessage(msg.ID, p)
	if err != nil {
		c.logger.Error("encode ack failed", "event", msg.Event, "error", err)
		return
	}
	if err := c.writeMessage(ack); err != nil {
		c.logger.Warn("send ack failed", "event", msg.Event, "error", err)
		return
	}
	s.metrics.AcksSent.Inc()
}

// unregister drops a closed connection from the server's bookkeeping.
func (s *Server) unregister(c *conn) {
	s.mu.Lock()
	_, known := s.conns[c.sid]
	delete(s.conns, c.sid)
	s.mu.Unlock()
	if known {
		s.rooms.leaveAll(c.sid)
		s.metrics.ActiveConnections.Dec()
	}
}

// lookup returns the live connection for a session id.
func (s *Server) lookup(sid string) (*conn, error) {
	s.mu.RLock()
	c, ok := s.conns[sid]
	s.mu.RUnlock()
	if !ok {
		return nil, &ConnError{SID: sid, Op: "lookup", Err: ErrConnectionNotFound}
	}
	return c, nil
}

// targets resolves an EmitOptions address to live connections.
func (s *Server) targets(opts transport.EmitOptions) []*conn {
	var sids []string
	switch {
	case opts.To == "":
		s.mu.RLock()
		sids = make([]string, 0, len(s.conns))
		for sid := range s.conns {
			sids = append(sids, sid)
		}
		s.mu.RUnlock()
	case s.rooms.exists(opts.To):
		sids = s.rooms.members(opts.To)
	default:
		sids = []string{opts.To}
	}

	out := make([]*conn, 0, len(sids))
	s.mu.RLock()
	for _, sid := range sids {
		if sid == opts.SkipSID {
			continue
		}
		if c, ok := s.conns[sid]; ok {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	return out
}

// Emit pushes a named event to the addressed connections. The target can
// be a room name, a session id, or empty for all connections.
func (s *Server) Emit(ctx context.Context, event string, data wire.Data, opts transport.EmitOptions) error {
	msg, err := wire.NewEventMessage(0, event, data)
	if err != nil {
		return err
	}
	raw, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	var errs []error
	for _, c := range s.targets(opts) {
		if err := c.write(raw); err != nil {
			errs = append(errs, &ConnError{SID: c.sid, Op: "emit " + event, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Send pushes data as the "message" event.
func (s *Server) Send(ctx context.Context, data wire.Data, opts transport.EmitOptions) error {
	return s.Emit(ctx, "message", data, opts)
}

// Call round-trips an event to a single connection and returns its
// acknowledgement. A zero timeout uses the configured default.
func (s *Server) Call(ctx context.Context, event string, data wire.Data, sid string, timeout time.Duration) (wire.Data, error) {
	c, err := s.lookup(sid)
	if err != nil {
		return nil, err
	}
	if timeout == 0 {
		timeout = s.config.CallTimeout
	}
	return c.call(ctx, event, data, timeout)
}

// EnterRoom adds the connection to a named room.
func (s *Server) EnterRoom(sid, room string) error {
	if _, err := s.lookup(sid); err != nil {
		return err
	}
	s.rooms.enter(sid, room)
	return nil
}

// LeaveRoom removes the connection from a named room.
func (s *Server) LeaveRoom(sid, room string) error {
	if _, err := s.lookup(sid); err != nil {
		return err
	}
	s.rooms.leave(sid, room)
	return nil
}

// Rooms lists the rooms the connection belongs to.
func (s *Server) Rooms(sid string) []string {
	return s.rooms.roomsOf(sid)
}

// CloseRoom removes every connection from a named room.
func (s *Server) CloseRoom(ctx context.Context, room string) error {
	s.rooms.close(room)
	return nil
}

// GetSession returns a copy of the connection's session data.
func (s *Server) GetSession(ctx context.Context, sid string) (map[string]any, error) {
	c, err := s.lookup(sid)
	if err != nil {
		return nil, err
	}
	return c.getSession(), nil
}

// SaveSession replaces the connection's session data.
func (s *Server) SaveSession(ctx context.Context, sid string, session map[string]any) error {
	c, err := s.lookup(sid)
	if err != nil {
		return err
	}
	c.saveSession(session)
	return nil
}

// Disconnect closes the connection.
func (s *Server) Disconnect(ctx context.Context, sid string) error {
	c, err := s.lookup(sid)
	if err != nil {
		return err
	}
	c.close()
	return nil
}

// Shutdown stops accepting connections and closes the open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.config.WriteTimeout))
		c.close()
	}
	s.logger.Info("server shut down", "connections_closed", len(conns))
	return nil
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
