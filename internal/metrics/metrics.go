// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets spans typical completion latencies, 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Provider call outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeMalformed     = "malformed"
	OutcomeNotConfigured = "not_configured"
	OutcomeTransport     = "transport_error"
	OutcomeError         = "error"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polychat_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polychat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "path"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polychat_provider_requests_total",
			Help: "Calls to upstream LLM providers by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polychat_provider_latency_seconds",
			Help:    "Upstream LLM provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderLatency,
	)
}

// ObserveProvider records one upstream call.
func ObserveProvider(provider, outcome string, elapsed time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}
