package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Engine metrics
	IncrementQueries(kind string)
	RecordQueryLatency(kind string, duration time.Duration)
	AddDiscardedRecords(n int)
	IncrementZeroCapacity(kind string)

	// Cache metrics
	IncrementCacheLookups(result string)

	// Snapshot metrics
	IncrementSnapshotReloads(outcome string)
	SetSnapshotBookings(n int)

	// Rate limiting metrics
	IncrementRateLimitRequests(result string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Engine metrics
func (r *PrometheusRegistry) IncrementQueries(kind string) {
	QueryCount.WithLabelValues(kind).Inc()
}

func (r *PrometheusRegistry) RecordQueryLatency(kind string, duration time.Duration) {
	QueryLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) AddDiscardedRecords(n int) {
	if n > 0 {
		DiscardedRecords.Add(float64(n))
	}
}

func (r *PrometheusRegistry) IncrementZeroCapacity(kind string) {
	ZeroCapacityCount.WithLabelValues(kind).Inc()
}

// Cache metrics
func (r *PrometheusRegistry) IncrementCacheLookups(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// Snapshot metrics
func (r *PrometheusRegistry) IncrementSnapshotReloads(outcome string) {
	SnapshotReloads.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) SetSnapshotBookings(n int) {
	SnapshotBookings.Set(float64(n))
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitRequests(result string) {
	RateLimitRequests.WithLabelValues(result).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Engine metrics
func (r *NoOpRegistry) IncrementQueries(kind string)                           {}
func (r *NoOpRegistry) RecordQueryLatency(kind string, duration time.Duration) {}
func (r *NoOpRegistry) AddDiscardedRecords(n int)                              {}
func (r *NoOpRegistry) IncrementZeroCapacity(kind string)                      {}

// Cache metrics
func (r *NoOpRegistry) IncrementCacheLookups(result string) {}

// Snapshot metrics
func (r *NoOpRegistry) IncrementSnapshotReloads(outcome string) {}
func (r *NoOpRegistry) SetSnapshotBookings(n int)               {}

// Rate limiting metrics
func (r *NoOpRegistry) IncrementRateLimitRequests(result string) {}
