package availability

import (
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

func date(s string) models.Date { return models.MustParseDate(s) }

// series builds day records starting at start with the given available
// counts and a fixed capacity.
func series(start string, capacity int, available ...int) []models.DayRecord {
	d0 := date(start)
	days := make([]models.DayRecord, len(available))
	for i, a := range available {
		days[i] = models.DayRecord{
			Date:      d0.AddDays(i),
			Capacity:  capacity,
			Available: a,
		}
		if capacity > a {
			days[i].BookedConfirmed = capacity - a
		}
	}
	return days
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type flatEstimator int64

func (f flatEstimator) EstimateWeekly(string) reach.Estimate {
	return reach.Estimate{Category: "flat", WeeklyImpressions: int64(f), Multiplier: 1, Tier: reach.TierStandard}
}
