package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want models.Status
	}{
		{100, models.StatusFull},
		{99.99, models.StatusCritical},
		{90, models.StatusCritical},
		{89.99, models.StatusTight},
		{70, models.StatusTight},
		{69.9, models.StatusModerate},
		{40, models.StatusModerate},
		{39.9, models.StatusLight},
		{0.01, models.StatusLight},
		{0, models.StatusOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.pct), "pct %v", tt.pct)
	}
}

func TestBuildDailySplitsHeldAndConfirmed(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-05"), End: date("2025-01-05"), Quantity: 20, Campaign: "Acme", Stage: "Contracted"},
		{Start: date("2025-01-05"), End: date("2025-01-05"), Quantity: 20, Campaign: "Beta", Stage: "On Hold", Held: true},
	}

	days, err := BuildDaily(intervals, 100, date("2025-01-05"), date("2025-01-05"))
	require.NoError(t, err)
	require.Len(t, days, 1)

	d := days[0]
	assert.Equal(t, 20, d.BookedConfirmed)
	assert.Equal(t, 20, d.BookedHeld)
	assert.Equal(t, 60, d.Available)
	assert.InDelta(t, 40.0, d.UtilizationPct, 1e-9)
	assert.Equal(t, models.StatusModerate, d.Status)
	assert.Equal(t, []models.CampaignEntry{
		{Name: "Acme", Quantity: 20, Stage: "Contracted"},
		{Name: "Beta", Quantity: 20, Stage: "On Hold"},
	}, d.Campaigns)
}

func TestBuildDailyInclusiveBoundsAndClipping(t *testing.T) {
	intervals := []models.Interval{
		// Starts before the range and ends on its second day.
		{Start: date("2024-12-25"), End: date("2025-01-02"), Quantity: 3},
		// Starts on the last day and runs past it.
		{Start: date("2025-01-05"), End: date("2025-02-01"), Quantity: 4},
		// Entirely outside.
		{Start: date("2025-03-01"), End: date("2025-03-02"), Quantity: 50},
	}

	days, err := BuildDaily(intervals, 10, date("2025-01-01"), date("2025-01-05"))
	require.NoError(t, err)
	require.Len(t, days, 5)

	booked := []int{}
	for _, d := range days {
		booked = append(booked, d.Booked())
	}
	assert.Equal(t, []int{3, 3, 0, 0, 4}, booked)
	assert.Equal(t, "2025-01-01", days[0].Date.String())
	assert.Equal(t, "2025-01-05", days[4].Date.String())
}

func TestBuildDailyOverbooked(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-01"), End: date("2025-01-01"), Quantity: 15},
	}
	days, err := BuildDaily(intervals, 10, date("2025-01-01"), date("2025-01-01"))
	require.NoError(t, err)

	assert.Equal(t, 15, days[0].BookedConfirmed)
	assert.Equal(t, 0, days[0].Available)
	assert.Equal(t, 100.0, days[0].UtilizationPct)
	assert.Equal(t, models.StatusFull, days[0].Status)
}

func TestBuildDailyZeroCapacity(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-01"), End: date("2025-01-03"), Quantity: 5},
	}
	days, err := BuildDaily(intervals, 0, date("2025-01-01"), date("2025-01-03"))
	require.NoError(t, err)
	for _, d := range days {
		assert.Equal(t, 0.0, d.UtilizationPct)
		assert.Equal(t, 0, d.Available)
		assert.Equal(t, models.StatusOpen, d.Status)
		assert.Equal(t, 5, d.BookedConfirmed)
	}
}

func TestBuildDailyEmptyRange(t *testing.T) {
	_, err := BuildDaily(nil, 10, date("2025-01-02"), date("2025-01-01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyRange))
}

func TestBuildDailyNoBookingsIsFullyAvailable(t *testing.T) {
	days, err := BuildDaily(nil, 10, date("2025-01-01"), date("2025-01-07"))
	require.NoError(t, err)
	require.Len(t, days, 7)
	for _, d := range days {
		assert.Equal(t, 10, d.Available)
		assert.Equal(t, models.StatusOpen, d.Status)
		assert.NotNil(t, d.Campaigns)
		assert.Empty(t, d.Campaigns)
	}
}

func TestBuildDailyManifestSkipsNoise(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-01"), End: date("2025-01-01"), Quantity: 0, Campaign: "Zero"},
		{Start: date("2025-01-01"), End: date("2025-01-01"), Quantity: 2, Campaign: "Real"},
	}
	days, err := BuildDaily(intervals, 10, date("2025-01-01"), date("2025-01-01"))
	require.NoError(t, err)
	require.Len(t, days[0].Campaigns, 1)
	assert.Equal(t, "Real", days[0].Campaigns[0].Name)
}

func TestBuildDailyAvailableInvariant(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-01"), End: date("2025-01-20"), Quantity: 7},
		{Start: date("2025-01-05"), End: date("2025-01-09"), Quantity: 30, Held: true},
		{Start: date("2025-01-08"), End: date("2025-01-31"), Quantity: 11},
	}
	capacity := 40
	days, err := BuildDaily(intervals, capacity, date("2025-01-01"), date("2025-01-31"))
	require.NoError(t, err)

	totalImplied := 0
	for _, iv := range intervals {
		totalImplied += iv.Quantity * (iv.Start.DaysUntil(iv.End) + 1)
	}
	totalBooked := 0
	for _, d := range days {
		want := capacity - d.Booked()
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, d.Available, d.Date.String())
		assert.GreaterOrEqual(t, d.UtilizationPct, 0.0)
		assert.LessOrEqual(t, d.UtilizationPct, 100.0)
		totalBooked += d.Booked()
	}
	assert.LessOrEqual(t, totalBooked, totalImplied)
}

func TestSummarize(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-01"), End: date("2025-01-02"), Quantity: 10},
	}
	days, err := BuildDaily(intervals, 10, date("2025-01-01"), date("2025-01-04"))
	require.NoError(t, err)

	s := Summarize(days)
	assert.Equal(t, 4, s.TotalDays)
	assert.Equal(t, 10, s.PeakBooked)
	assert.Equal(t, 0, s.MinAvailable)
	assert.InDelta(t, 50.0, s.AvgUtilizationPct, 1e-9)
	assert.Equal(t, 2, s.DaysByStatus[models.StatusFull])
	assert.Equal(t, 2, s.DaysByStatus[models.StatusOpen])

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalDays)
	assert.NotNil(t, empty.DaysByStatus)
}
