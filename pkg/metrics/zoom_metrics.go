// Package metrics provides Prometheus metrics for the Zoom relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream (Zoom REST API) metrics
var (
	// upstreamRequestsTotal records every outbound attempt against the Zoom API.
	// Labels:
	//   - method: HTTP method (e.g., "POST")
	//   - path: API path relative to the base URL (e.g., "users/me/meetings")
	//   - outcome: HTTP status code, or "network_error" / "timeout"
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoom_upstream_requests_total",
			Help: "Total number of outbound Zoom API attempts",
		},
		[]string{"method", "path", "outcome"},
	)

	// upstreamRequestDuration records the duration of outbound attempts.
	// Buckets: 50ms .. 10s (the per-attempt timeout)
	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zoom_upstream_request_duration_seconds",
			Help:    "Duration of outbound Zoom API attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// upstreamRetriesTotal records retries scheduled after a retryable failure.
	upstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoom_upstream_retries_total",
			Help: "Total number of retries scheduled for outbound Zoom API calls",
		},
		[]string{"method", "path"},
	)
)

// Credential and signature metrics
var (
	// tokenRefreshesTotal records OAuth token fetches.
	// Labels:
	//   - result: "success" or "failed"
	tokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoom_token_refreshes_total",
			Help: "Total number of OAuth access token fetches",
		},
		[]string{"result"},
	)

	// signaturesIssuedTotal records SDK join signatures handed out.
	// Labels:
	//   - role: "0" (participant) or "1" (host)
	signaturesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoom_signatures_issued_total",
			Help: "Total number of Meeting SDK join signatures issued",
		},
		[]string{"role"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamRequestDuration)
	prometheus.MustRegister(upstreamRetriesTotal)
	prometheus.MustRegister(tokenRefreshesTotal)
	prometheus.MustRegister(signaturesIssuedTotal)
}

// RecordUpstreamRequest records one outbound attempt and its duration.
func RecordUpstreamRequest(method, path, outcome string, durationSeconds float64) {
	upstreamRequestsTotal.WithLabelValues(method, path, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordUpstreamRetry records a retry scheduled for the given call.
func RecordUpstreamRetry(method, path string) {
	upstreamRetriesTotal.WithLabelValues(method, path).Inc()
}

// RecordTokenRefresh records a token fetch result ("success" or "failed").
func RecordTokenRefresh(result string) {
	tokenRefreshesTotal.WithLabelValues(result).Inc()
}

// RecordSignatureIssued records an issued SDK signature for the given role label.
func RecordSignatureIssued(role string) {
	signaturesIssuedTotal.WithLabelValues(role).Inc()
}

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
