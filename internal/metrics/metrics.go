// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks handler latency by route pattern and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shohin_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// FallbackResponses counts lookups answered with a built-in sample record.
	FallbackResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shohin_fallback_responses_total",
			Help: "Total number of responses served from a fallback sample record",
		},
		[]string{"handler"},
	)

	UploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shohin_uploads_rejected_total",
			Help: "Total number of uploads rejected by validation",
		},
		[]string{"reason"},
	)

	CatalogMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shohin_catalog_matches_total",
			Help: "Total number of uploads matched to a catalog video",
		},
	)

	// ProviderCalls counts AI provider calls by provider, operation, and outcome ("success" or "error").
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shohin_provider_calls_total",
			Help: "Total number of AI provider calls",
		},
		[]string{"provider", "operation", "outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shohin_provider_call_duration_seconds",
			Help:    "Duration of AI provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 90},
		},
		[]string{"provider", "operation"},
	)

	CatalogVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shohin_catalog_videos",
			Help: "Current number of catalog titles available for upload matching",
		},
	)
)

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
