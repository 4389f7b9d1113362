package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kansetsu_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kansetsu_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Database metrics
var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kansetsu_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Gallery metrics
var (
	PhotoSetViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kansetsu_photoset_views_total",
			Help: "Total number of photo set detail views",
		},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kansetsu_cache_requests_total",
			Help: "Cache lookups by key and result",
		},
		[]string{"key", "result"},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kansetsu_login_attempts_total",
			Help: "Admin login attempts by result",
		},
		[]string{"result"},
	)
)

// ObserveQuery records the duration of a database operation started at start.
// Use as: defer metrics.ObserveQuery("list_photosets", time.Now())
func ObserveQuery(operation string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func CacheHit(key string) {
	CacheRequestsTotal.WithLabelValues(key, "hit").Inc()
}

func CacheMiss(key string) {
	CacheRequestsTotal.WithLabelValues(key, "miss").Inc()
}
