package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the WebSocket transport.
type Config struct {
	// ReadTimeout is the maximum time to wait for a message from the
	// client. The heartbeat must fit inside it.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between WebSocket pings.
	// Default: 25 seconds.
	HeartbeatInterval time.Duration

	// CallTimeout is the default timeout for server-to-client calls.
	// Default: 60 seconds.
	CallTimeout time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 1MB.
	MaxMessageSize int64

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// SendQueueSize is the outbound message queue length per connection.
	// Default: 64.
	SendQueueSize int

	// MaxConnections limits concurrent connections. 0 means no limit.
	// Default: 0.
	MaxConnections int

	// CheckOrigin validates the request origin during the upgrade.
	// Default: same-origin only.
	CheckOrigin func(r *http.Request) bool

	// EnableCompression enables WebSocket compression.
	// Default: false.
	EnableCompression bool

	// Registerer receives the transport's Prometheus metrics.
	// Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 25 * time.Second,
		CallTimeout:       60 * time.Second,
		MaxMessageSize:    1 << 20,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		SendQueueSize:     64,
		CheckOrigin:       SameOriginCheck,
		Registerer:        prometheus.DefaultRegisterer,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	out := *c
	if out.ReadTimeout == 0 {
		out.ReadTimeout = defaults.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if out.CallTimeout == 0 {
		out.CallTimeout = defaults.CallTimeout
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = defaults.MaxMessageSize
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.SendQueueSize == 0 {
		out.SendQueueSize = defaults.SendQueueSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.Registerer == nil {
		out.Registerer = defaults.Registerer
	}
	return &out
}

// SameOriginCheck validates that the WebSocket request origin matches
// the host. This is the secure default for CheckOrigin.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}

// AllowAllOrigins accepts any request origin. Intended for development
// and tests.
func AllowAllOrigins(*http.Request) bool {
	return true
}
