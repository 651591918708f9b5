package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry records counters in memory so tests can assert on them.
type MockMetricsRegistry struct {
	mu sync.Mutex

	Requests      map[string]int // "endpoint method status"
	Queries       map[string]int
	Discarded     int
	ZeroCapacity  map[string]int
	CacheLookups  map[string]int
	Reloads       map[string]int
	RateLimit     map[string]int
	SnapshotCount int
}

// NewMockMetricsRegistry returns an empty recorder.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Requests:     make(map[string]int),
		Queries:      make(map[string]int),
		ZeroCapacity: make(map[string]int),
		CacheLookups: make(map[string]int),
		Reloads:      make(map[string]int),
		RateLimit:    make(map[string]int),
	}
}

// HTTP Request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint+" "+method+" "+status]++
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Engine metrics
func (m *MockMetricsRegistry) IncrementQueries(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries[kind]++
}

func (m *MockMetricsRegistry) RecordQueryLatency(kind string, duration time.Duration) {}

func (m *MockMetricsRegistry) AddDiscardedRecords(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Discarded += n
}

func (m *MockMetricsRegistry) IncrementZeroCapacity(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ZeroCapacity[kind]++
}

// Cache metrics
func (m *MockMetricsRegistry) IncrementCacheLookups(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheLookups[result]++
}

// Snapshot metrics
func (m *MockMetricsRegistry) IncrementSnapshotReloads(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reloads[outcome]++
}

func (m *MockMetricsRegistry) SetSnapshotBookings(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotCount = n
}

// Rate limiting metrics
func (m *MockMetricsRegistry) IncrementRateLimitRequests(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimit[result]++
}

// Count returns a counter value under the lock.
func (m *MockMetricsRegistry) Count(read func(m *MockMetricsRegistry) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return read(m)
}
