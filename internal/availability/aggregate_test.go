package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

func TestAggregateWeeksStartOnMonday(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	days, err := BuildDaily(nil, 10, date("2025-01-01"), date("2025-01-14"))
	require.NoError(t, err)

	buckets, err := Aggregate(days, models.GranularityWeek)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, "2024-12-30", buckets[0].Period.String())
	assert.Equal(t, "2025-01-01", buckets[0].Start.String())
	assert.Equal(t, "2025-01-05", buckets[0].End.String())
	assert.Len(t, buckets[0].Days, 5)

	assert.Equal(t, "2025-01-06", buckets[1].Start.String())
	assert.Len(t, buckets[1].Days, 7)

	assert.Equal(t, "2025-01-13", buckets[2].Start.String())
	assert.Equal(t, "2025-01-14", buckets[2].End.String())
	assert.Len(t, buckets[2].Days, 2)
}

func TestAggregateMonthsAreIndependent(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-01"), End: date("2025-01-10"), Quantity: 31},
		{Start: date("2025-02-01"), End: date("2025-02-14"), Quantity: 28},
	}
	days, err := BuildDaily(intervals, 100, date("2025-01-01"), date("2025-02-28"))
	require.NoError(t, err)

	buckets, err := Aggregate(days, models.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	jan, feb := buckets[0], buckets[1]
	assert.Len(t, jan.Days, 31)
	assert.Len(t, feb.Days, 28)
	assert.InDelta(t, 10.0, jan.AvgBooked, 1e-9)
	assert.InDelta(t, 14.0, feb.AvgBooked, 1e-9)
	assert.Equal(t, 31, jan.PeakBooked)
	assert.Equal(t, 69, jan.MinAvailable)
	assert.InDelta(t, 90.0, jan.AvgAvailable, 1e-9)
	assert.InDelta(t, 10.0, jan.AvgUtilizationPct, 1e-9)
	assert.Equal(t, models.StatusLight, jan.Status)
}

func TestAggregateWeeklyRoundTrip(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-03-03"), End: date("2025-03-19"), Quantity: 13},
		{Start: date("2025-03-10"), End: date("2025-04-02"), Quantity: 4, Held: true},
		{Start: date("2025-03-28"), End: date("2025-03-28"), Quantity: 90},
	}
	days, err := BuildDaily(intervals, 50, date("2025-03-05"), date("2025-04-11"))
	require.NoError(t, err)

	buckets, err := Aggregate(days, models.GranularityWeek)
	require.NoError(t, err)

	var fromBuckets float64
	dayCount := 0
	for _, b := range buckets {
		fromBuckets += b.AvgBooked * float64(len(b.Days))
		dayCount += len(b.Days)
	}
	var fromDays float64
	for _, d := range days {
		fromDays += float64(d.Booked())
	}
	assert.Equal(t, len(days), dayCount)
	assert.InDelta(t, fromDays, fromBuckets, 1e-6)
}

func TestAggregateDedupesCampaignsFirstSeen(t *testing.T) {
	intervals := []models.Interval{
		{Start: date("2025-01-06"), End: date("2025-01-07"), Quantity: 5, Campaign: "Acme", Stage: "Hold", Held: true},
		{Start: date("2025-01-07"), End: date("2025-01-09"), Quantity: 9, Campaign: "Acme", Stage: "Contracted"},
		{Start: date("2025-01-08"), End: date("2025-01-08"), Quantity: 1, Campaign: "Beta"},
	}
	days, err := BuildDaily(intervals, 100, date("2025-01-06"), date("2025-01-12"))
	require.NoError(t, err)

	buckets, err := Aggregate(days, models.GranularityWeek)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, []models.CampaignEntry{
		{Name: "Acme", Quantity: 5, Stage: "Hold"},
		{Name: "Beta", Quantity: 1},
	}, buckets[0].Campaigns)
	assert.Equal(t, 14, buckets[0].PeakBooked)
}

func TestAggregateYearAndDay(t *testing.T) {
	days, err := BuildDaily(nil, 5, date("2024-12-30"), date("2025-01-02"))
	require.NoError(t, err)

	years, err := Aggregate(days, models.GranularityYear)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, "2024-01-01", years[0].Period.String())
	assert.Len(t, years[0].Days, 2)
	assert.Equal(t, "2025-01-01", years[1].Period.String())

	perDay, err := Aggregate(days, models.GranularityDay)
	require.NoError(t, err)
	assert.Len(t, perDay, 4)
}

func TestAggregateUtilizationUsesAverageCapacity(t *testing.T) {
	// Capacity differing per day shows avgBooked/avgCapacity differs from
	// the mean of daily percentages.
	days := []models.DayRecord{
		{Date: date("2025-01-06"), Capacity: 10, BookedConfirmed: 5, Available: 5},
		{Date: date("2025-01-07"), Capacity: 30, BookedConfirmed: 3, Available: 27},
	}
	buckets, err := Aggregate(days, models.GranularityWeek)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.InDelta(t, 4.0/20.0*100, buckets[0].AvgUtilizationPct, 1e-9)
}

func TestAggregateInvalidGranularity(t *testing.T) {
	_, err := Aggregate(nil, "fortnight")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGranularity))

	buckets, err := Aggregate(nil, models.GranularityMonth)
	require.NoError(t, err)
	assert.Empty(t, buckets)
}
