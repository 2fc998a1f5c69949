// Package metrics defines Prometheus metrics for the version engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetvault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetvault_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetvault_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetvault_version_cache_hits_total",
			Help: "Version cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetvault_version_cache_misses_total",
			Help: "Version cache misses",
		},
	)

	VersionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetvault_versions_created_total",
			Help: "Versions successfully created",
		},
	)

	SequenceRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetvault_sequence_allocation_retries_total",
			Help: "Sequence number allocation retries after a unique violation",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		CacheHits, CacheMisses,
		VersionsCreated, SequenceRetries,
	)
}
