package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
)

// ErrNoSnapshot is returned when no snapshot has been loaded yet.
var ErrNoSnapshot = errors.New("no booking snapshot loaded")

// snapshotNamespace scopes content-derived snapshot versions.
var snapshotNamespace = uuid.MustParse("0d4c2b7a-6a0e-4f4e-8d55-7e3b1c9a2f60")

// Source supplies the raw inputs of a snapshot.
type Source interface {
	LoadBookings(ctx context.Context) ([]models.BookingRecord, error)
	LoadBaseline(ctx context.Context) (inventory.Baseline, error)
}

// BreakerSettings controls when repeated reload failures stop hitting the source.
type BreakerSettings struct {
	FailureThreshold int           // consecutive failures before the breaker opens
	Cooldown         time.Duration // how long it stays open before a trial reload
}

// SnapshotStore holds the active snapshot in memory. Reads are lock-protected
// and never block on a reload in progress; a failed reload keeps serving the
// previous snapshot.
type SnapshotStore struct {
	mu      sync.RWMutex
	current *availability.Snapshot

	source   Source
	defaults inventory.Baseline
	floor    int
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
}

// NewSnapshotStore creates a store reading from source. defaults fills any
// baseline section the source leaves empty. source may be nil when snapshots
// are only ever installed with Set.
func NewSnapshotStore(source Source, defaults inventory.Baseline, floor int, bs BreakerSettings, logger *zap.Logger, metrics observability.MetricsRegistry) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if bs.FailureThreshold <= 0 {
		bs.FailureThreshold = 3
	}
	if bs.Cooldown <= 0 {
		bs.Cooldown = time.Minute
	}
	s := &SnapshotStore{
		source:   source,
		defaults: defaults,
		floor:    floor,
		logger:   logger,
		metrics:  metrics,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "snapshot-reload",
		Timeout: bs.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(bs.FailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("snapshot reload breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// Current returns the active snapshot or ErrNoSnapshot.
func (s *SnapshotStore) Current() (*availability.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSnapshot
	}
	return s.current, nil
}

// Refresh reloads bookings and the baseline from the source and swaps the
// snapshot in. While the breaker is open it fails fast without touching the
// source.
func (s *SnapshotStore) Refresh(ctx context.Context) (*availability.Snapshot, error) {
	if s.source == nil {
		return nil, fmt.Errorf("snapshot store has no source")
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		records, err := s.source.LoadBookings(ctx)
		if err != nil {
			return nil, fmt.Errorf("load bookings: %w", err)
		}
		baseline, err := s.source.LoadBaseline(ctx)
		if err != nil {
			return nil, fmt.Errorf("load baseline: %w", err)
		}
		return s.Set(records, baseline)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		s.metrics.IncrementSnapshotReloads(outcome)
		s.logger.Error("snapshot reload failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}
	s.metrics.IncrementSnapshotReloads("success")
	return out.(*availability.Snapshot), nil
}

// Set builds a snapshot from records and baseline and makes it current.
func (s *SnapshotStore) Set(records []models.BookingRecord, baseline inventory.Baseline) (*availability.Snapshot, error) {
	baseline = baseline.Merge(s.defaults)
	if err := baseline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid baseline: %w", err)
	}
	version, err := snapshotVersion(records, baseline)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	prev := s.current
	s.mu.RUnlock()
	if prev != nil && prev.Version == version {
		s.logger.Debug("snapshot unchanged", zap.String("version", version))
		return prev, nil
	}

	snap := availability.NewSnapshot(records, inventory.NewResolver(baseline, s.floor), s.logger)
	snap.Version = version

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.metrics.SetSnapshotBookings(len(snap.Intervals))
	s.metrics.AddDiscardedRecords(snap.Discarded)
	s.logger.Info("snapshot loaded",
		zap.String("version", version),
		zap.Int("records", snap.Records),
		zap.Int("intervals", len(snap.Intervals)),
		zap.Int("discarded", snap.Discarded),
		zap.Int("capacity_total", baseline.Total()))
	return snap, nil
}

// BreakerState reports the reload breaker state for health output.
func (s *SnapshotStore) BreakerState() string {
	return s.breaker.State().String()
}

// snapshotVersion derives a stable id from the snapshot contents so identical
// data always maps to the same cache keys.
func snapshotVersion(records []models.BookingRecord, baseline inventory.Baseline) (string, error) {
	payload, err := json.Marshal(struct {
		Records  []models.BookingRecord `json:"records"`
		Baseline inventory.Baseline     `json:"baseline"`
	}{records, baseline})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return uuid.NewSHA1(snapshotNamespace, payload).String(), nil
}
