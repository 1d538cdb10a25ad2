// Package server is the bundled WebSocket transport. It upgrades HTTP
// connections, frames wire messages, tracks rooms and per-connection
// sessions, and hands incoming events to a Dispatcher.
//
// The dispatch engine never imports this package; it consumes the
// transport through the typed surface in pkg/transport, which *Server
// implements. Each incoming event runs on its own goroutine with panic
// recovery; the engine sees no ordering beyond the connection's own
// delivery order.
package server
