// Package metrics exposes verification counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ironlock"

type Metrics struct {
	registry       *prometheus.Registry
	verifications  *prometheus.CounterVec
	adminActions   *prometheus.CounterVec
	signerDegraded prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "License verifications by outcome.",
		}, []string{"outcome"}),
		adminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_actions_total",
			Help:      "Administrative license mutations by action.",
		}, []string{"action"}),
		signerDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signer_degraded",
			Help:      "1 when attestations are issued without a signing key.",
		}),
	}

	m.registry.MustRegister(
		m.verifications,
		m.adminActions,
		m.signerDegraded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveVerification counts one verification. Infrastructure failures
// are recorded under the "error" outcome.
func (m *Metrics) ObserveVerification(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAdminAction(action string) {
	m.adminActions.WithLabelValues(action).Inc()
}

func (m *Metrics) SetSignerDegraded(degraded bool) {
	if degraded {
		m.signerDegraded.Set(1)
		return
	}
	m.signerDegraded.Set(0)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
