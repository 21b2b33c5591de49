// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chessrelay"

// Action results.
const (
	ActionApplied  = "applied"
	ActionIllegal  = "illegal"
	ActionDropped  = "dropped"
	ActionLimited  = "rate_limited"
	CloseGameOver  = "game_over"
	CloseResigned  = "resignation"
	CloseAbandoned = "disconnect"
	CloseRemoved   = "removed"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RelayMetrics holds the session and connection metrics. A nil *RelayMetrics is valid and
// records nothing.
type RelayMetrics struct {
	SessionsActive    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsClosed    *prometheus.CounterVec
	Actions           *prometheus.CounterVec
	GameDuration      prometheus.Histogram
	ActiveConnections prometheus.Gauge
	SlowClients       prometheus.Counter
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of open game sessions.",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of game sessions created.",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Total number of game sessions closed, by reason.",
		}, []string{"reason"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "actions_total",
			Help:      "Submitted actions, by result.",
		}, []string{"result"}),
		GameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "duration_seconds",
			Help:      "Lifetime of a session from creation to close.",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		SlowClients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "slow_clients_evicted_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
	}

	reg.MustRegister(
		m.SessionsActive,
		m.SessionsCreated,
		m.SessionsClosed,
		m.Actions,
		m.GameDuration,
		m.ActiveConnections,
		m.SlowClients,
	)
	return m
}

func (m *RelayMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
}

func (m *RelayMetrics) SessionClosed(reason string, lifetime time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsClosed.WithLabelValues(reason).Inc()
	m.GameDuration.Observe(lifetime.Seconds())
}

func (m *RelayMetrics) Action(result string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(result).Inc()
}

func (m *RelayMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *RelayMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *RelayMetrics) SlowClientEvicted() {
	if m == nil {
		return
	}
	m.SlowClients.Inc()
}
