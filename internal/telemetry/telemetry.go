// Package telemetry provides Prometheus metrics for the HTTP surface and the
// model round trips behind it.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for ChatDragon
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Model metrics
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	TokensInput        prometheus.Counter
	TokensOutput       prometheus.Counter

	// Function metrics
	FunctionCalls  *prometheus.CounterVec
	FunctionErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdragon_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatdragon_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "route"},
		),

		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatdragon_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdragon_completions_total",
				Help: "Chat completion round trips by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		CompletionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatdragon_completion_duration_seconds",
				Help:    "Chat completion latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),

		TokensInput: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdragon_tokens_input_total",
				Help: "Prompt tokens consumed",
			},
		),

		TokensOutput: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdragon_tokens_output_total",
				Help: "Completion tokens produced",
			},
		),

		FunctionCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdragon_function_calls_total",
				Help: "Prompt function invocations by function and caller",
			},
			[]string{"function", "caller"},
		),

		FunctionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdragon_function_errors_total",
				Help: "Prompt function failures by function and reason",
			},
			[]string{"function", "reason"},
		),
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCompletion records one model round trip. Safe on a nil *Metrics.
func (m *Metrics) ObserveCompletion(operation, outcome string, seconds float64, inputTokens, outputTokens int64) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(operation, outcome).Inc()
	m.CompletionDuration.WithLabelValues(operation).Observe(seconds)
	if inputTokens > 0 {
		m.TokensInput.Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensOutput.Add(float64(outputTokens))
	}
}

// ObserveFunction records one prompt function invocation. An empty reason
// means success. Safe on a nil *Metrics.
func (m *Metrics) ObserveFunction(function, caller, reason string) {
	if m == nil {
		return
	}
	m.FunctionCalls.WithLabelValues(function, caller).Inc()
	if reason != "" {
		m.FunctionErrors.WithLabelValues(function, reason).Inc()
	}
}
