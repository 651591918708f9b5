package availability

import (
	"errors"
	"fmt"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// ErrInvalidGranularity is returned for an unknown aggregation period.
var ErrInvalidGranularity = errors.New("invalid granularity")

// ParseGranularity accepts day, week, month or year. Empty means day.
func ParseGranularity(s string) (models.Granularity, error) {
	switch g := models.Granularity(s); g {
	case "":
		return models.GranularityDay, nil
	case models.GranularityDay, models.GranularityWeek, models.GranularityMonth, models.GranularityYear:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

// periodStart returns the canonical start of the period containing d.
func periodStart(d models.Date, g models.Granularity) models.Date {
	switch g {
	case models.GranularityWeek:
		return d.StartOfWeek()
	case models.GranularityMonth:
		return d.StartOfMonth()
	case models.GranularityYear:
		return d.StartOfYear()
	default:
		return d
	}
}

// Aggregate rolls day-ordered records into calendar buckets. Weeks start on
// Monday regardless of the range start, so the first and last buckets may be
// partial. Day granularity yields one bucket per day.
//
// A bucket's campaign manifest keeps the first entry seen for each campaign
// name. A campaign whose quantity changes mid-bucket is reported with its
// earliest quantity, which can undercount its peak.
func Aggregate(days []models.DayRecord, g models.Granularity) ([]models.AggregateBucket, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	if g == "" {
		g = models.GranularityDay
	}

	buckets := make([]models.AggregateBucket, 0)
	for i := 0; i < len(days); {
		key := periodStart(days[i].Date, g)
		j := i + 1
		for j < len(days) && periodStart(days[j].Date, g).Equal(key) {
			j++
		}
		buckets = append(buckets, buildBucket(days[i:j], key, g))
		i = j
	}
	return buckets, nil
}

func buildBucket(days []models.DayRecord, period models.Date, g models.Granularity) models.AggregateBucket {
	b := models.AggregateBucket{
		Granularity:  g,
		Period:       period,
		Start:        days[0].Date,
		End:          days[len(days)-1].Date,
		Days:         days,
		MinAvailable: days[0].Available,
		Campaigns:    []models.CampaignEntry{},
	}

	var booked, available, capacity float64
	seen := make(map[string]bool)
	for _, d := range days {
		booked += float64(d.Booked())
		available += float64(d.Available)
		capacity += float64(d.Capacity)
		if d.Booked() > b.PeakBooked {
			b.PeakBooked = d.Booked()
		}
		if d.Available < b.MinAvailable {
			b.MinAvailable = d.Available
		}
		for _, c := range d.Campaigns {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			b.Campaigns = append(b.Campaigns, c)
		}
	}

	n := float64(len(days))
	b.AvgBooked = booked / n
	b.AvgAvailable = available / n
	b.AvgCapacity = capacity / n
	b.AvgUtilizationPct = UtilizationPct(b.AvgBooked, b.AvgCapacity)
	b.Status = StatusFor(b.AvgUtilizationPct)
	return b
}
