package availability

import (
	"errors"
	"sort"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// ErrNegativeThreshold is returned when the minimum available units is below zero.
var ErrNegativeThreshold = errors.New("minimum available must not be negative")

const (
	// MinGapDays is the shortest run reported as a gap.
	MinGapDays = 7
	// LongTermDays is the length from which a gap counts as long-term.
	LongTermDays = 28
)

// ClassifyGap returns the class for a gap of the given length.
func ClassifyGap(days int) models.GapClass {
	if days >= LongTermDays {
		return models.GapLongTerm
	}
	return models.GapShortTerm
}

// FindGaps scans day-ordered records for maximal runs with available at or
// above minAvailable. Runs shorter than MinGapDays are dropped, including a
// run still open when the range ends. Gaps are returned in start order.
func FindGaps(days []models.DayRecord, minAvailable int) []models.Gap {
	gaps := make([]models.Gap, 0)
	runStart, runSum := -1, 0

	flush := func(end int) {
		length := end - runStart + 1
		if length >= MinGapDays {
			gaps = append(gaps, models.Gap{
				Start:        days[runStart].Date,
				End:          days[end].Date,
				Days:         length,
				AvgAvailable: runSum / length,
				Class:        ClassifyGap(length),
			})
		}
		runStart, runSum = -1, 0
	}

	for i, d := range days {
		if d.Available >= minAvailable {
			if runStart < 0 {
				runStart = i
			}
			runSum += d.Available
			continue
		}
		if runStart >= 0 {
			flush(i - 1)
		}
	}
	if runStart >= 0 {
		flush(len(days) - 1)
	}
	return gaps
}

// FindPeriodGaps runs the same scan over aggregated buckets, treating a bucket
// as open when its MinAvailable meets the threshold. Length is measured in
// covered days and AvgAvailable is the floored mean over those days.
func FindPeriodGaps(buckets []models.AggregateBucket, minAvailable int) []models.Gap {
	gaps := make([]models.Gap, 0)
	var run []models.AggregateBucket

	flush := func() {
		defer func() { run = nil }()
		length, sum := 0, 0
		for _, b := range run {
			for _, d := range b.Days {
				length++
				sum += d.Available
			}
		}
		if length < MinGapDays {
			return
		}
		gaps = append(gaps, models.Gap{
			Start:        run[0].Start,
			End:          run[len(run)-1].End,
			Days:         length,
			AvgAvailable: sum / length,
			Class:        ClassifyGap(length),
		})
	}

	for _, b := range buckets {
		if b.MinAvailable >= minAvailable {
			run = append(run, b)
			continue
		}
		if len(run) > 0 {
			flush()
		}
	}
	if len(run) > 0 {
		flush()
	}
	return gaps
}

// SortByLength returns a copy of gaps, longest first. Equal lengths keep the
// earlier start first.
func SortByLength(gaps []models.Gap) []models.Gap {
	out := make([]models.Gap, len(gaps))
	copy(out, gaps)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Days != out[j].Days {
			return out[i].Days > out[j].Days
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// SortBySoonest returns a copy of gaps, earliest start first. Equal starts
// keep the longer gap first.
func SortBySoonest(gaps []models.Gap) []models.Gap {
	out := make([]models.Gap, len(gaps))
	copy(out, gaps)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Days > out[j].Days
	})
	return out
}

// SplitGaps separates gaps into short-term (soonest first) and long-term
// (longest first), keeping at most limit of each.
func SplitGaps(gaps []models.Gap, limit int) (short, long []models.Gap) {
	short, long = []models.Gap{}, []models.Gap{}
	for _, g := range gaps {
		if g.Class == models.GapLongTerm {
			long = append(long, g)
		} else {
			short = append(short, g)
		}
	}
	short = SortBySoonest(short)
	long = SortByLength(long)
	if len(short) > limit {
		short = short[:limit]
	}
	if len(long) > limit {
		long = long[:limit]
	}
	return short, long
}
