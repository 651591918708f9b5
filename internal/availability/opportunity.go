package availability

import (
	"math"
	"sort"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

const (
	// MaxGapsPerClass bounds the short-term and long-term lists per media type.
	MaxGapsPerClass = 3
	// ImmediateWindowDays is how close to today an immediate opportunity
	// should start to be flagged as within the window.
	ImmediateWindowDays = 14
	// FlexibleMinScore is the availability score a media type must exceed to
	// be recommended as flexible.
	FlexibleMinScore = 50.0
)

// ReachEstimator maps a media label to a weekly impressions estimate.
type ReachEstimator interface {
	EstimateWeekly(label string) reach.Estimate
}

// MediaSeries is the daily utilization of one media type within the query's
// market selection.
type MediaSeries struct {
	MediaType string
	Capacity  int
	Days      []models.DayRecord
}

// GapReach estimates impressions over a gap: weekly impressions per unit
// times average available units times the gap length in weeks.
func GapReach(weekly int64, g models.Gap) int64 {
	return int64(math.Round(float64(weekly) * float64(g.AvgAvailable) * float64(g.Days) / 7))
}

// ScoreMedia finds the gaps of one media series and scores them.
func ScoreMedia(s MediaSeries, minAvailable int, est ReachEstimator) models.MediaScore {
	gaps := FindGaps(s.Days, minAvailable)
	short, long := SplitGaps(gaps, MaxGapsPerClass)
	e := est.EstimateWeekly(s.MediaType)

	score := models.MediaScore{
		MediaType:         s.MediaType,
		Capacity:          s.Capacity,
		ShortTerm:         short,
		LongTerm:          long,
		WeeklyImpressions: e.WeeklyImpressions,
		ReachTier:         string(e.Tier),
		HasOpenings:       len(gaps) > 0,
	}
	for _, g := range gaps {
		score.EstimatedReach += GapReach(e.WeeklyImpressions, g)
	}
	if len(s.Days) > 0 {
		open := 0
		for _, d := range s.Days {
			if d.Available >= minAvailable {
				open++
			}
		}
		score.AvailabilityScore = float64(open) / float64(len(s.Days)) * 100
	}
	return score
}

// RankMarkets orders markets by available units, most first. Ties keep
// input order.
func RankMarkets(markets []models.MarketScore) []models.MarketScore {
	out := make([]models.MarketScore, len(markets))
	copy(out, markets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvailableUnits > out[j].AvailableUnits
	})
	return out
}

// RankOpportunities scores every media series, ranks markets, and picks at
// most one recommendation per category. Media order in the result follows
// the input, and every tie goes to the media type encountered first.
func RankOpportunities(media []MediaSeries, markets []models.MarketScore, est ReachEstimator, minAvailable int, today models.Date) ([]models.MediaScore, []models.MarketScore, []models.Opportunity) {
	scores := make([]models.MediaScore, len(media))
	for i, s := range media {
		scores[i] = ScoreMedia(s, minAvailable, est)
	}
	ranked := RankMarkets(markets)
	return scores, ranked, Recommend(scores, ranked, today)
}

// Recommend chooses the immediate, long-term, flexible, market and
// impressions recommendations from precomputed scores. Categories without a
// qualifying candidate are omitted.
func Recommend(scores []models.MediaScore, markets []models.MarketScore, today models.Date) []models.Opportunity {
	recs := make([]models.Opportunity, 0, 5)

	if o, ok := bestImmediate(scores, today); ok {
		recs = append(recs, o)
	}
	if o, ok := bestLongTerm(scores, today); ok {
		recs = append(recs, o)
	}

	flex := -1
	for i, s := range scores {
		if s.AvailabilityScore > FlexibleMinScore && (flex < 0 || s.AvailabilityScore > scores[flex].AvailabilityScore) {
			flex = i
		}
	}
	if flex >= 0 {
		s := scores[flex]
		recs = append(recs, models.Opportunity{
			Category:  models.OpportunityFlexible,
			MediaType: s.MediaType,
			Metrics: models.OpportunityMetrics{
				AvailabilityScore: s.AvailabilityScore,
				EstimatedReach:    s.EstimatedReach,
				ReachTier:         s.ReachTier,
			},
		})
	}

	best := -1
	for i, m := range markets {
		if m.AvailableUnits > 0 && (best < 0 || m.AvailableUnits > markets[best].AvailableUnits) {
			best = i
		}
	}
	if best >= 0 {
		recs = append(recs, models.Opportunity{
			Category: models.OpportunityMarket,
			Market:   markets[best].Market,
			Metrics:  models.OpportunityMetrics{AvailableUnits: markets[best].AvailableUnits},
		})
	}

	if o, ok := bestReach(scores, today); ok {
		recs = append(recs, o)
	}
	return recs
}

func bestImmediate(scores []models.MediaScore, today models.Date) (models.Opportunity, bool) {
	best, bestWithin := -1, -1
	var bestGap, bestWithinGap models.Gap
	for i, s := range scores {
		if !s.HasOpenings {
			continue
		}
		g, ok := firstOpen(s.ShortTerm, today)
		if !ok {
			continue
		}
		if best < 0 || g.Start.Before(bestGap.Start) {
			best, bestGap = i, g
		}
		if withinWindow(g, today) && (bestWithin < 0 || g.Start.Before(bestWithinGap.Start)) {
			bestWithin, bestWithinGap = i, g
		}
	}
	if bestWithin >= 0 {
		best, bestGap = bestWithin, bestWithinGap
	}
	if best < 0 {
		return models.Opportunity{}, false
	}
	return gapOpportunity(models.OpportunityImmediate, scores[best], bestGap, today), true
}

func bestLongTerm(scores []models.MediaScore, today models.Date) (models.Opportunity, bool) {
	best := -1
	var bestGap models.Gap
	for i, s := range scores {
		if !s.HasOpenings {
			continue
		}
		g, ok := firstOpen(s.LongTerm, today)
		if !ok {
			continue
		}
		if best < 0 || g.Days > bestGap.Days {
			best, bestGap = i, g
		}
	}
	if best < 0 {
		return models.Opportunity{}, false
	}
	return gapOpportunity(models.OpportunityLongTerm, scores[best], bestGap, today), true
}

func bestReach(scores []models.MediaScore, today models.Date) (models.Opportunity, bool) {
	best := -1
	var bestGap models.Gap
	for i, s := range scores {
		if !s.HasOpenings || s.EstimatedReach <= 0 {
			continue
		}
		g, ok := topReachGap(s, today)
		if !ok {
			continue
		}
		if best < 0 || s.EstimatedReach > scores[best].EstimatedReach {
			best, bestGap = i, g
		}
	}
	if best < 0 {
		return models.Opportunity{}, false
	}
	s := scores[best]
	return models.Opportunity{
		Category:  models.OpportunityImpressions,
		MediaType: s.MediaType,
		Gap:       &bestGap,
		Metrics: models.OpportunityMetrics{
			AvailabilityScore: s.AvailabilityScore,
			EstimatedReach:    s.EstimatedReach,
			DaysUntilStart:    daysUntilStart(bestGap, today),
			WithinWindow:      withinWindow(bestGap, today),
			ReachTier:         s.ReachTier,
		},
	}, true
}

// topReachGap picks the listed gap with the largest reach among those that
// have not ended before today.
func topReachGap(s models.MediaScore, today models.Date) (models.Gap, bool) {
	var best models.Gap
	var bestReach int64 = -1
	for _, list := range [][]models.Gap{s.ShortTerm, s.LongTerm} {
		for _, g := range list {
			if g.End.Before(today) {
				continue
			}
			if r := GapReach(s.WeeklyImpressions, g); r > bestReach {
				best, bestReach = g, r
			}
		}
	}
	return best, bestReach >= 0
}

// firstOpen returns the first gap in list that has not ended before today.
func firstOpen(list []models.Gap, today models.Date) (models.Gap, bool) {
	for _, g := range list {
		if !g.End.Before(today) {
			return g, true
		}
	}
	return models.Gap{}, false
}

// withinWindow reports whether g is still open and starts no more than
// ImmediateWindowDays after today. A gap already under way counts.
func withinWindow(g models.Gap, today models.Date) bool {
	return !g.End.Before(today) && today.DaysUntil(g.Start) <= ImmediateWindowDays
}

// daysUntilStart is zero for a gap already under way.
func daysUntilStart(g models.Gap, today models.Date) int {
	return max(0, today.DaysUntil(g.Start))
}

func gapOpportunity(cat models.OpportunityCategory, s models.MediaScore, g models.Gap, today models.Date) models.Opportunity {
	return models.Opportunity{
		Category:  cat,
		MediaType: s.MediaType,
		Gap:       &g,
		Metrics: models.OpportunityMetrics{
			AvailabilityScore: s.AvailabilityScore,
			EstimatedReach:    GapReach(s.WeeklyImpressions, g),
			DaysUntilStart:    daysUntilStart(g, today),
			WithinWindow:      withinWindow(g, today),
			ReachTier:         s.ReachTier,
		},
	}
}
