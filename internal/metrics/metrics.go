// Package metrics exposes sentryd's Prometheus instrumentation (spec
// SPEC_FULL §6 "Observability"). It implements both registry.Metrics and
// tailer.Metrics so both workers can report through the same sink without
// either package importing prometheus directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentryd"

// Metrics holds every counter/gauge sentryd exposes. A custom registry is
// used (not prometheus.DefaultRegistry) so tests can build one per case
// without cross-test interference.
type Metrics struct {
	registry *prometheus.Registry

	hitsTotal         *prometheus.CounterVec
	jailsTotal        prometheus.Counter
	unjailsTotal      prometheus.Counter
	jailFailuresTotal prometheus.Counter
	unjailFailures    prometheus.Counter
	activeJails       prometheus.Gauge
	tailerErrorsTotal *prometheus.CounterVec
}

// New builds a registered Metrics instance.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		hitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Total number of threshold hit events received by the registry, by observer.",
		}, []string{"observer"}),
		jailsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jails_total",
			Help:      "Total number of jail commands executed successfully.",
		}),
		unjailsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unjails_total",
			Help:      "Total number of unjail commands executed successfully.",
		}),
		jailFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jail_failures_total",
			Help:      "Total number of jail commands that failed to execute.",
		}),
		unjailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unjail_failures_total",
			Help:      "Total number of unjail commands that failed to execute.",
		}),
		activeJails: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jails",
			Help:      "Current number of IPs with an unexpired jail entry.",
		}),
		tailerErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tailer_errors_total",
			Help:      "Total number of transient file I/O errors encountered while tailing, by observer.",
		}, []string{"observer"}),
	}

	reg.MustRegister(
		m.hitsTotal,
		m.jailsTotal,
		m.unjailsTotal,
		m.jailFailuresTotal,
		m.unjailFailures,
		m.activeJails,
		m.tailerErrorsTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HitObserved implements registry.Metrics.
func (m *Metrics) HitObserved(observerName string) { m.hitsTotal.WithLabelValues(observerName).Inc() }

// Jailed implements registry.Metrics.
func (m *Metrics) Jailed() { m.jailsTotal.Inc() }

// JailRefreshed implements registry.Metrics. Refreshing an existing entry
// is not a new jail, so it is not counted against jails_total.
func (m *Metrics) JailRefreshed() {}

// JailFailed implements registry.Metrics.
func (m *Metrics) JailFailed() { m.jailFailuresTotal.Inc() }

// Unjailed implements registry.Metrics.
func (m *Metrics) Unjailed() { m.unjailsTotal.Inc() }

// UnjailFailed implements registry.Metrics.
func (m *Metrics) UnjailFailed() { m.unjailFailures.Inc() }

// ActiveJails implements registry.Metrics.
func (m *Metrics) ActiveJails(n int) { m.activeJails.Set(float64(n)) }

// TailerError implements tailer.Metrics.
func (m *Metrics) TailerError(observerName string) {
	m.tailerErrorsTotal.WithLabelValues(observerName).Inc()
}
