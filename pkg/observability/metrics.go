// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for remindersd. Everything exported here is optional: the server
// runs identically with metrics and tracing disabled.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dispatch-level instruments. It registers against its
// own registry so tests can create providers in isolation.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
	inflight        prometheus.Gauge
	sessionPhase    *prometheus.GaugeVec
}

// NewMetrics creates the instrument set under the remindersd namespace
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remindersd",
			Name:      "requests_total",
			Help:      "JSON-RPC requests by method and outcome",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remindersd",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"method", "status"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remindersd",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome",
		}, []string{"tool", "status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "remindersd",
			Name:      "requests_in_flight",
			Help:      "Requests currently being handled",
		}),
		sessionPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "remindersd",
			Name:      "session_phase",
			Help:      "Current session phase as a one-hot gauge",
		}, []string{"phase"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.toolCallsTotal,
		m.inflight,
		m.sessionPhase,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest counts one finished request and observes its latency
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method, status).Observe(duration.Seconds())
}

// RecordToolCall counts one tool invocation
func (m *Metrics) RecordToolCall(tool, status string) {
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RequestStarted increments the in-flight gauge
func (m *Metrics) RequestStarted() {
	m.inflight.Inc()
}

// RequestFinished decrements the in-flight gauge
func (m *Metrics) RequestFinished() {
	m.inflight.Dec()
}

// SetSessionPhase updates the one-hot session phase gauge
func (m *Metrics) SetSessionPhase(phase string) {
	for _, p := range []string{"uninitialized", "initializing", "ready"} {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		m.sessionPhase.WithLabelValues(p).Set(v)
	}
}

// Handler returns the HTTP handler serving this provider's registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
