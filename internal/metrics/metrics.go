package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_users_registered_total",
			Help: "Total users registered",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_rooms_created_total",
			Help: "Total chat rooms created",
		},
	)

	MessagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_messages_created_total",
			Help: "Total messages created",
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_validation_failures_total",
			Help: "Total content validation failures",
		},
		[]string{"reason"}, // "empty" or "too_long"
	)

	HookRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_hook_rejections_total",
			Help: "Total messages vetoed by the pre-persist hook",
		},
	)

	FanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parley_fanout_duration_seconds",
			Help:    "Duration of the per-member index fan-out",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
	)

	FanoutFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_fanout_failures_total",
			Help: "Fan-outs that failed after message persistence",
		},
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_search_queries_total",
			Help: "Total search queries",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parley_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parley_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
