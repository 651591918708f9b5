package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "availability_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// engine queries labelled by kind (daily, buckets, gaps, opportunities)
	QueryCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_engine_queries_total",
			Help: "Total engine queries executed",
		},
		[]string{"kind"},
	)

	// engine query latency in seconds by kind
	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "availability_engine_query_duration_seconds",
			Help:    "Histogram of engine query latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// booking records dropped by normalization
	DiscardedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "availability_discarded_records_total",
			Help: "Total malformed booking records excluded from aggregation",
		},
	)

	// results whose capacity resolved to zero
	ZeroCapacityCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_zero_capacity_total",
			Help: "Total query results with zero resolved capacity",
		},
		[]string{"kind"},
	)

	// result cache lookups labelled hit or miss
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_cache_lookups_total",
			Help: "Total result cache lookups",
		},
		[]string{"result"},
	)

	// snapshot reload attempts labelled by outcome
	SnapshotReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_snapshot_reloads_total",
			Help: "Total booking snapshot reload attempts",
		},
		[]string{"outcome"},
	)

	// per-client rate limit decisions labelled allowed or limited
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_rate_limit_requests_total",
			Help: "Total rate limit decisions for availability queries",
		},
		[]string{"result"},
	)

	// bookings in the current snapshot
	SnapshotBookings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "availability_snapshot_bookings",
			Help: "Number of booking records in the active snapshot",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		QueryCount,
		QueryLatency,
		DiscardedRecords,
		ZeroCapacityCount,
		CacheLookups,
		SnapshotReloads,
		SnapshotBookings,
		RateLimitRequests,
	)
}
