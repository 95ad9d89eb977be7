// Package metrics exposes tournament counters and gauges for the
// Prometheus /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the instruments. One instance per server; a fresh
// registry keeps tests independent.
type Metrics struct {
	registry *prometheus.Registry

	HandsPlayed      prometheus.Counter
	ActionsProcessed *prometheus.CounterVec
	TimeoutsFired    prometheus.Counter
	PlayersRemaining prometheus.Gauge
	ActiveTables     prometheus.Gauge
}

// New creates and registers all instruments on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HandsPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "hands_played_total",
			Help:      "Hands completed across all tables.",
		}),
		ActionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "actions_processed_total",
			Help:      "Player actions applied, by action type.",
		}, []string{"action"}),
		TimeoutsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "action_timeouts_total",
			Help:      "Actions resolved by the timeout fold.",
		}),
		PlayersRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "felt",
			Name:      "players_remaining",
			Help:      "Players still holding chips.",
		}),
		ActiveTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "felt",
			Name:      "active_tables",
			Help:      "Tables currently dealing hands.",
		}),
	}
	reg.MustRegister(
		m.HandsPlayed,
		m.ActionsProcessed,
		m.TimeoutsFired,
		m.PlayersRemaining,
		m.ActiveTables,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
