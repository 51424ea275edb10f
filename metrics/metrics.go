// Package metrics registers the Prometheus instruments for ticks,
// broadcast bytes, dropped sends, scheduled-event backlog, and decode
// errors. The command's tick loop updates the tick and decode-error
// instruments; the egress and proxy packages do not update any of them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every instrument this core emits behind one
// constructor so callers never reach for prometheus.DefaultRegisterer
// directly and risk a double-registration panic across tests.
type Registry struct {
	reg *prometheus.Registry

	TicksTotal          prometheus.Counter
	TickDuration        prometheus.Histogram
	BroadcastBytesTotal prometheus.Counter
	DroppedSendsTotal   prometheus.Counter
	ScheduledBacklog    prometheus.Gauge
	DecodeErrorsTotal   prometheus.Counter
	LoadedColumns       prometheus.Gauge
}

// NewRegistry returns a Registry with every instrument registered
// against a fresh prometheus.Registry (not the global default, so
// multiple Registries can coexist in tests).
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyperion_ticks_total",
			Help: "Total number of game-loop ticks completed.",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyperion_tick_duration_seconds",
			Help:    "Wall-clock duration of each game-loop tick.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		BroadcastBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyperion_broadcast_bytes_total",
			Help: "Total bytes appended to broadcast buffers across all fan-out calls.",
		}),
		DroppedSendsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyperion_dropped_sends_total",
			Help: "Sends to the proxy session dropped because the outbound channel was full.",
		}),
		ScheduledBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hyperion_scheduled_backlog",
			Help: "Number of entries currently queued in the scheduled-event min-heap.",
		}),
		DecodeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hyperion_decode_errors_total",
			Help: "Packet frames that failed to decode and were dropped.",
		}),
		LoadedColumns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hyperion_loaded_columns",
			Help: "Number of chunk columns currently resident in the world store.",
		}),
	}
}

// Gatherer exposes the underlying prometheus.Registry for an HTTP
// handler (promhttp.HandlerFor) to serve.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
