package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search subsystem Prometheus metrics. Swallowed failures (sync, cache
// I/O, worker fallback) stay invisible to callers by contract, so these
// counters are the only place they surface.
var (
	SyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "sync_total",
			Help:      "Catalog sync attempts by outcome",
		},
		[]string{"result"}, // "updated" / "not_modified" / "error"
	)

	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "cache_errors_total",
			Help:      "Persistent cache failures recovered at the cache boundary",
		},
		[]string{"op"}, // "read" / "write" / "open"
	)

	FallbackSearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "fallback_searches_total",
			Help:      "Queries served by the substring fallback after a worker failure",
		},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storesearch",
			Name:      "query_duration_seconds",
			Help:      "Search query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storesearch",
			Name:      "index_build_duration_seconds",
			Help:      "Index build duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(SyncTotal)
	prometheus.MustRegister(CacheErrorsTotal)
	prometheus.MustRegister(FallbackSearchesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(IndexBuildDuration)
}
