package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the transport's Prometheus metrics.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	EventsReceived    prometheus.Counter
	EventsErrored     prometheus.Counter
	AcksSent          prometheus.Counter
	EventDuration     prometheus.Histogram
	BytesRead         prometheus.Counter
	BytesWritten      prometheus.Counter
	PanicsRecovered   prometheus.Counter
}

// newMetrics registers the transport metrics under the duplexio
// namespace.
func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Number of currently open WebSocket connections.",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Total number of accepted WebSocket connections.",
		}),
		EventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "events_received_total",
			Help:      "Total number of events received from clients.",
		}),
		EventsErrored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "events_errored_total",
			Help:      "Total number of events that failed dispatch.",
		}),
		AcksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "acks_sent_total",
			Help:      "Total number of acknowledgements sent to clients.",
		}),
		EventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "event_duration_seconds",
			Help:      "Dispatch duration per incoming event.",
			Buckets:   prometheus.DefBuckets,
		}),
		BytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "bytes_read_total",
			Help:      "Total bytes received over WebSocket connections.",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "bytes_written_total",
			Help:      "Total bytes written over WebSocket connections.",
		}),
		PanicsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "duplexio",
			Subsystem: "server",
			Name:      "panics_recovered_total",
			Help:      "Total panics recovered from event handlers.",
		}),
	}
}
