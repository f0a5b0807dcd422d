package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyyrose/toolgate/pkg/dispatch"
)

// Metrics satisfies the dispatcher's Recorder so it can be attached
// with SetRecorder.
var _ dispatch.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the tool pipeline
type Metrics struct {
	registry *prometheus.Registry

	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	RetryAttemptsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	DegradationTotal *prometheus.CounterVec

	// Breaker metrics
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
}

// New creates and registers all metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_invocations_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_invocation_duration_seconds",
				Help:    "Tool invocation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		RetryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_retry_attempts_total",
				Help: "Total number of execution attempts beyond the first",
			},
			[]string{"tool"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_cache_hits_total",
				Help: "Total number of invocations served from the result cache",
			},
			[]string{"tool"},
		),
		DegradationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_degradations_total",
				Help: "Total number of invocations served a degraded substitute",
			},
			[]string{"tool", "source"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tool_breaker_state",
				Help: "Circuit breaker state per tool (0=closed, 1=half_open, 2=open)",
			},
			[]string{"tool"},
		),
		BreakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_breaker_transitions_total",
				Help: "Total number of breaker state transitions",
			},
			[]string{"tool", "to"},
		),
	}

	registry.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.RetryAttemptsTotal,
		m.CacheHitsTotal,
		m.DegradationTotal,
		m.BreakerState,
		m.BreakerTransitions,
	)

	return m
}

// ObserveInvocation records one finished invocation
func (m *Metrics) ObserveInvocation(tool, status string, duration time.Duration, attempts int, cacheHit bool, degraded string) {
	m.InvocationsTotal.WithLabelValues(tool, status).Inc()
	m.InvocationDuration.WithLabelValues(tool).Observe(duration.Seconds())

	if attempts > 1 {
		m.RetryAttemptsTotal.WithLabelValues(tool).Add(float64(attempts - 1))
	}
	if cacheHit {
		m.CacheHitsTotal.WithLabelValues(tool).Inc()
	}
	if degraded != "" {
		m.DegradationTotal.WithLabelValues(tool, degraded).Inc()
	}
}

// ObserveBreakerState records a breaker's current state
func (m *Metrics) ObserveBreakerState(tool, state string) {
	var value float64
	switch state {
	case "half_open":
		value = 1
	case "open":
		value = 2
	}
	m.BreakerState.WithLabelValues(tool).Set(value)
	m.BreakerTransitions.WithLabelValues(tool, state).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
