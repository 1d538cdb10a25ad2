// Package wire defines the values that cross the connection: event
// acknowledgements and the JSON message envelope used by the bundled
// WebSocket transport.
//
// An event carries a name and an ordered tuple of JSON-compatible
// arguments. Each event may yield at most one acknowledgement, either a
// bare payload or a (code, payload) pair where the code doubles as an
// HTTP-like status multiplexed onto the single ack channel. Independent
// of any event, the server may push named events to a connection or a
// room at any time.
//
// # Message Types
//
//   - "event": client -> server event, or server -> client push/call.
//     A non-zero ID requests an acknowledgement.
//   - "ack": the single reply to an event with the matching ID.
//   - "error": a transport-level failure outside any acknowledgement.
package wire
