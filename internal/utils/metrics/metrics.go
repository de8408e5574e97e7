package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoleOperationsTotal counts role directory operations by outcome.
	RoleOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_service_operations_total",
		Help: "The total number of role directory operations",
	}, []string{"operation", "status"})

	// RoleOperationDuration tracks role directory operation latency.
	RoleOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "role_service_operation_duration_seconds",
		Help:    "The role directory operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// DatabaseOperationsTotal counts storage operations by outcome.
	DatabaseOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_service_database_operations_total",
		Help: "The total number of database operations",
	}, []string{"operation", "status"})

	// CacheInvalidationsTotal counts cache invalidations by scope.
	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_service_cache_invalidations_total",
		Help: "The total number of cache invalidations",
	}, []string{"scope", "status"})

	// HTTPRequestsTotal counts API requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_service_http_requests_total",
		Help: "The total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks API request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "role_service_http_request_duration_seconds",
		Help:    "The HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// EventsPublishedTotal counts lifecycle events published to Kafka.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_service_events_published_total",
		Help: "The total number of lifecycle events published",
	}, []string{"operation", "status"})
)
