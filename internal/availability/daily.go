package availability

import (
	"errors"
	"fmt"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// ErrEmptyRange is returned when a query's end date precedes its start date.
var ErrEmptyRange = errors.New("end date before start date")

// ManifestNoiseFloor is the quantity a booking must exceed to be listed in a
// day's campaign manifest. It does not affect booked totals.
const ManifestNoiseFloor = 0

// Utilization thresholds in percent, highest first.
const (
	fullPct     = 100.0
	criticalPct = 90.0
	tightPct    = 70.0
	moderatePct = 40.0
)

// StatusFor returns the band for a utilization percentage.
func StatusFor(pct float64) models.Status {
	switch {
	case pct >= fullPct:
		return models.StatusFull
	case pct >= criticalPct:
		return models.StatusCritical
	case pct >= tightPct:
		return models.StatusTight
	case pct >= moderatePct:
		return models.StatusModerate
	case pct > 0:
		return models.StatusLight
	default:
		return models.StatusOpen
	}
}

// UtilizationPct returns booked/capacity as a percentage clamped to
// [0, 100]. It is 0 when capacity is not positive.
func UtilizationPct(booked, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	pct := booked / capacity * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ValidateRange rejects ranges whose end precedes their start.
func ValidateRange(start, end models.Date) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if end.Before(start) {
		return fmt.Errorf("%w: %s > %s", ErrEmptyRange, start, end)
	}
	return nil
}

// BuildDaily produces one DayRecord per calendar day in [start, end]. Every
// interval active on a day contributes its quantity to either the confirmed
// or the held total. Intervals must already be filtered to the selection.
func BuildDaily(intervals []models.Interval, capacity int, start, end models.Date) ([]models.DayRecord, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	n := start.DaysUntil(end) + 1
	days := make([]models.DayRecord, n)
	for i := range days {
		days[i].Date = start.AddDays(i)
	}

	for _, iv := range intervals {
		if !iv.Overlaps(start, end) {
			continue
		}
		from, to := iv.Start, iv.End
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		for i := start.DaysUntil(from); i <= start.DaysUntil(to); i++ {
			d := &days[i]
			if iv.Held {
				d.BookedHeld += iv.Quantity
			} else {
				d.BookedConfirmed += iv.Quantity
			}
			if iv.Quantity > ManifestNoiseFloor {
				d.Campaigns = append(d.Campaigns, models.CampaignEntry{
					Name:     iv.Campaign,
					Quantity: iv.Quantity,
					Stage:    iv.Stage,
				})
			}
		}
	}

	for i := range days {
		finishDay(&days[i], capacity)
	}
	return days, nil
}

func finishDay(d *models.DayRecord, capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	d.Capacity = capacity
	booked := d.Booked()
	if capacity > booked {
		d.Available = capacity - booked
	}
	d.UtilizationPct = UtilizationPct(float64(booked), float64(capacity))
	d.Status = StatusFor(d.UtilizationPct)
	if d.Campaigns == nil {
		d.Campaigns = []models.CampaignEntry{}
	}
}

// Summarize reduces a daily series to headline figures. Average utilization
// is total booked over total capacity, matching how buckets compute it.
func Summarize(days []models.DayRecord) models.Summary {
	s := models.Summary{
		TotalDays:    len(days),
		DaysByStatus: make(map[models.Status]int),
	}
	if len(days) == 0 {
		return s
	}
	var booked, capacity float64
	s.MinAvailable = days[0].Available
	for _, d := range days {
		booked += float64(d.Booked())
		capacity += float64(d.Capacity)
		if d.Booked() > s.PeakBooked {
			s.PeakBooked = d.Booked()
		}
		if d.Available < s.MinAvailable {
			s.MinAvailable = d.Available
		}
		s.DaysByStatus[d.Status]++
	}
	s.AvgUtilizationPct = UtilizationPct(booked, capacity)
	return s
}
