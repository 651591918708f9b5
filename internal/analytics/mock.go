package analytics

import (
	"context"
	"sync"
)

var _ QueryLog = (*MockAnalytics)(nil)

// MockAnalytics keeps recorded events in memory for tests.
type MockAnalytics struct {
	mu     sync.Mutex
	events []QueryEvent
	Err    error
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordQuery appends ev unless Err is set.
func (m *MockAnalytics) RecordQuery(ctx context.Context, ev QueryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (m *MockAnalytics) Events() []QueryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QueryEvent(nil), m.events...)
}
