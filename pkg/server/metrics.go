package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hallway-dev/hallway/pkg/state"
)

const metricsNamespace = "hallway"

// Metrics holds the server's Prometheus collectors. Entity gauges read
// straight from the registry; connection and message counters are driven by
// the transports and the dispatcher.
type Metrics struct {
	ConnectionsTotal *prometheus.CounterVec
	DisconnectsTotal *prometheus.CounterVec
	MessagesTotal    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	FramesDropped    prometheus.Counter
	PolicyProbes     prometheus.Counter
	BytesRead        prometheus.Counter
	BytesWritten     prometheus.Counter
}

// NewMetrics registers the server collectors with reg and wires the entity
// gauges to the state registry.
func NewMetrics(reg prometheus.Registerer, registry *state.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	for _, g := range []struct {
		name string
		help string
		get  func(sessions, rooms, users, objects int) int
	}{
		{"sessions", "Number of live sessions.", func(s, _, _, _ int) int { return s }},
		{"rooms", "Number of live rooms.", func(_, r, _, _ int) int { return r }},
		{"users", "Number of connected users.", func(_, _, u, _ int) int { return u }},
		{"data_objects", "Number of live data objects.", func(_, _, _, o int) int { return o }},
	} {
		get := g.get
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      g.name,
			Help:      g.help,
		}, func() float64 {
			return float64(get(registry.Counts()))
		})
	}

	return &Metrics{
		ConnectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Accepted connections by transport.",
		}, []string{"transport"}),
		DisconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "disconnects_total",
			Help:      "Closed connections by transport.",
		}, []string{"transport"}),
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Dispatched inbound messages by tag.",
		}, []string{"tag"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Dispatch failures by kind.",
		}, []string{"kind"}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped on overflowing connections.",
		}),
		PolicyProbes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "policy_probes_total",
			Help:      "Legacy policy document probes answered.",
		}),
		BytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_read_total",
			Help:      "Bytes read from all transports.",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to all transports.",
		}),
	}
}
