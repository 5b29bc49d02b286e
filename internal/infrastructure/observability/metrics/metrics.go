// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline and the achievement engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the application's Prometheus collectors.
type Registry struct {
	registry *prometheus.Registry

	EventsIngested  *prometheus.CounterVec
	BatchesRejected prometheus.Counter
	Unlocks         *prometheus.CounterVec
	Resolutions     prometheus.Counter
}

// NewRegistry creates the registry and registers all collectors, including
// the default Go runtime and process collectors.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Registry{
		registry: registry,
		EventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visitforge_events_ingested_total",
				Help: "Total number of behavioral events folded into visitor stats",
			},
			[]string{"type"},
		),
		BatchesRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visitforge_batches_rejected_total",
				Help: "Total number of event batches rejected as empty or malformed",
			},
		),
		Unlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visitforge_achievement_unlocks_total",
				Help: "Total number of first-time achievement unlocks",
			},
			[]string{"slug"},
		),
		Resolutions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visitforge_identity_resolutions_total",
				Help: "Total number of fingerprint resolution calls",
			},
		),
	}

	registry.MustRegister(m.EventsIngested, m.BatchesRejected, m.Unlocks, m.Resolutions)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
