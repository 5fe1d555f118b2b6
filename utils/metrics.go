package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	// Database Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	// Session lifecycle metrics
	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_started_total",
			Help: "Total number of scheduled sessions marked started",
		},
	)

	SessionsConcludedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_concluded_total",
			Help: "Total number of scheduled sessions marked concluded",
		},
	)

	SessionStatusUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_status_updates_total",
			Help: "Total number of session status-label transitions",
		},
	)

	// Activity ingestion metrics
	ActivityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_total",
			Help: "Total number of processed bulk activity events",
		},
		[]string{"type", "outcome"}, // create/end, created/ended/failed/skipped
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of outbound notification deliveries",
		},
		[]string{"channel", "result"}, // discord/webhook, ok/error
	)

	// Cache Metrics
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache lookups",
		},
		[]string{"kind", "result"}, // hit/miss
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "reason"},
	)
)

// TrackDBOperation tracks database operation duration
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

// TrackActivityEvent records the outcome of one bulk event
func TrackActivityEvent(eventType, outcome string) {
	ActivityEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// TrackNotification records an outbound delivery attempt
func TrackNotification(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	NotificationsTotal.WithLabelValues(channel, result).Inc()
}

// TrackCacheOperation records a cache hit or miss
func TrackCacheOperation(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheOperationsTotal.WithLabelValues(kind, result).Inc()
}

// TrackError increments the error counter by type and reason
func TrackError(errorType, reason string) {
	ErrorsTotal.WithLabelValues(errorType, reason).Inc()
}
