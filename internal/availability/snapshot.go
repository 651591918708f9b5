package availability

import (
	"time"

	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// Snapshot is a point-in-time, read-only view of bookings and the capacity
// table. Queries never modify it, so one snapshot can serve concurrent calls.
type Snapshot struct {
	Version   string
	LoadedAt  time.Time
	Records   int // raw records supplied
	Discarded int // records excluded as malformed
	Intervals []models.Interval
	Resolver  *inventory.Resolver
}

// NewSnapshot normalizes records once and pairs them with resolver.
func NewSnapshot(records []models.BookingRecord, resolver *inventory.Resolver, logger *zap.Logger) *Snapshot {
	intervals, discarded := NormalizeAll(records, logger)
	return &Snapshot{
		LoadedAt:  time.Now().UTC(),
		Records:   len(records),
		Discarded: discarded,
		Intervals: intervals,
		Resolver:  resolver,
	}
}
