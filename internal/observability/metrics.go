package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry         *prometheus.Registry
	ProviderAttempts *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
	Messages         *prometheus.CounterVec
}

// NewMetrics registers the instruments on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider calls by kind, provider and outcome.",
		}, []string{"kind", "provider", "outcome"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Switches from a failed primary to the secondary provider.",
		}, []string{"kind", "from", "to"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Provider call latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"kind", "provider"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live chat sessions.",
		}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Conversation entries appended, by speaker.",
		}, []string{"speaker"}),
	}
}

// ObserveAttempt records one provider call.
func (m *Metrics) ObserveAttempt(kind, provider string, err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderAttempts.WithLabelValues(kind, provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(kind, provider).Observe(took.Seconds())
}

// ObserveFallback records a switch to the secondary provider.
func (m *Metrics) ObserveFallback(kind, from, to string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(kind, from, to).Inc()
}

// SessionStarted increments the live session gauge.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

// SessionEnded decrements the live session gauge.
func (m *Metrics) SessionEnded() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

// MessageAppended counts a conversation entry.
func (m *Metrics) MessageAppended(speaker string) {
	if m != nil {
		m.Messages.WithLabelValues(speaker).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
