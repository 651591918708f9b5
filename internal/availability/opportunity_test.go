package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

func categories(recs []models.Opportunity) []models.OpportunityCategory {
	out := make([]models.OpportunityCategory, len(recs))
	for i, r := range recs {
		out[i] = r.Category
	}
	return out
}

func find(recs []models.Opportunity, c models.OpportunityCategory) *models.Opportunity {
	for i := range recs {
		if recs[i].Category == c {
			return &recs[i]
		}
	}
	return nil
}

func TestRankOpportunities(t *testing.T) {
	media := []MediaSeries{
		{MediaType: "Poster", Capacity: 10, Days: series("2025-03-01", 10, concat(repeat(10, 10), repeat(0, 20))...)},
		{MediaType: "Digital Bulletin", Capacity: 5, Days: series("2025-03-01", 5, concat(repeat(0, 20), repeat(5, 10))...)},
		{MediaType: "Bench", Capacity: 2, Days: series("2025-03-01", 2, repeat(2, 30)...)},
	}
	markets := []models.MarketScore{
		{Market: "A", Capacity: 10, AvailableUnits: 3},
		{Market: "B", Capacity: 10, AvailableUnits: 7},
	}

	scores, ranked, recs := RankOpportunities(media, markets, reach.DefaultModel(), 1, date("2025-03-01"))

	require.Len(t, scores, 3)
	assert.Equal(t, "Poster", scores[0].MediaType)
	assert.InDelta(t, 100.0/3, scores[0].AvailabilityScore, 1e-9)
	assert.Equal(t, int64(214286), scores[0].EstimatedReach)
	assert.Equal(t, int64(482143), scores[1].EstimatedReach)
	assert.Equal(t, int64(54857), scores[2].EstimatedReach)
	assert.Equal(t, []int{30}, gapDays(scores[2].LongTerm))

	assert.Equal(t, "B", ranked[0].Market)

	assert.Equal(t, []models.OpportunityCategory{
		models.OpportunityImmediate,
		models.OpportunityLongTerm,
		models.OpportunityFlexible,
		models.OpportunityMarket,
		models.OpportunityImpressions,
	}, categories(recs))

	imm := find(recs, models.OpportunityImmediate)
	assert.Equal(t, "Poster", imm.MediaType)
	require.NotNil(t, imm.Gap)
	assert.Equal(t, 0, imm.Metrics.DaysUntilStart)
	assert.True(t, imm.Metrics.WithinWindow)

	assert.Equal(t, "Bench", find(recs, models.OpportunityLongTerm).MediaType)
	assert.Equal(t, "Bench", find(recs, models.OpportunityFlexible).MediaType)
	assert.Equal(t, "B", find(recs, models.OpportunityMarket).Market)
	assert.Equal(t, 7, find(recs, models.OpportunityMarket).Metrics.AvailableUnits)
	assert.Equal(t, "Digital Bulletin", find(recs, models.OpportunityImpressions).MediaType)
}

func TestRankOpportunitiesTiesGoToFirstMedia(t *testing.T) {
	avail := concat(repeat(4, 10), repeat(0, 2), repeat(4, 30))
	a := MediaSeries{MediaType: "A", Capacity: 4, Days: series("2025-01-01", 4, avail...)}
	b := MediaSeries{MediaType: "B", Capacity: 4, Days: series("2025-01-01", 4, avail...)}

	_, _, recs := RankOpportunities([]MediaSeries{a, b}, nil, flatEstimator(1000), 1, date("2025-01-01"))
	for _, r := range recs {
		assert.Equal(t, "A", r.MediaType, r.Category)
	}

	_, _, recs = RankOpportunities([]MediaSeries{b, a}, nil, flatEstimator(1000), 1, date("2025-01-01"))
	for _, r := range recs {
		assert.Equal(t, "B", r.MediaType, r.Category)
	}
}

func TestRecommendFlexibleNeedsMajorityAvailability(t *testing.T) {
	// Exactly half the days open: score 50 is not enough.
	half := MediaSeries{MediaType: "Half", Capacity: 1, Days: series("2025-01-01", 1, concat(repeat(1, 10), repeat(0, 10))...)}
	_, _, recs := RankOpportunities([]MediaSeries{half}, nil, flatEstimator(1), 1, date("2025-01-01"))
	assert.Nil(t, find(recs, models.OpportunityFlexible))

	more := MediaSeries{MediaType: "More", Capacity: 1, Days: series("2025-01-01", 1, concat(repeat(1, 11), repeat(0, 9))...)}
	_, _, recs = RankOpportunities([]MediaSeries{more}, nil, flatEstimator(1), 1, date("2025-01-01"))
	require.NotNil(t, find(recs, models.OpportunityFlexible))
}

func TestRecommendImmediatePrefersWindow(t *testing.T) {
	early := models.MediaScore{
		MediaType: "Early", HasOpenings: true,
		ShortTerm: []models.Gap{{Start: date("2025-01-05"), End: date("2025-01-11"), Days: 7, Class: models.GapShortTerm}},
	}
	late := models.MediaScore{
		MediaType: "Late", HasOpenings: true,
		ShortTerm: []models.Gap{{Start: date("2025-02-20"), End: date("2025-02-26"), Days: 7, Class: models.GapShortTerm}},
	}

	recs := Recommend([]models.MediaScore{late, early}, nil, date("2025-01-01"))
	imm := find(recs, models.OpportunityImmediate)
	require.NotNil(t, imm)
	assert.Equal(t, "Early", imm.MediaType)
	assert.Equal(t, 4, imm.Metrics.DaysUntilStart)
	assert.True(t, imm.Metrics.WithinWindow)

	// Nothing within the window: the earliest start still wins.
	recs = Recommend([]models.MediaScore{late, early}, nil, date("2024-10-01"))
	imm = find(recs, models.OpportunityImmediate)
	require.NotNil(t, imm)
	assert.Equal(t, "Early", imm.MediaType)
	assert.False(t, imm.Metrics.WithinWindow)
}

func TestRecommendSkipsEndedGaps(t *testing.T) {
	poster := models.MediaScore{
		MediaType: "Poster", HasOpenings: true, EstimatedReach: 9000, WeeklyImpressions: 900,
		ShortTerm: []models.Gap{{Start: date("2025-01-01"), End: date("2025-01-10"), Days: 10, AvgAvailable: 2, Class: models.GapShortTerm}},
	}
	bulletin := models.MediaScore{
		MediaType: "Bulletin", HasOpenings: true, EstimatedReach: 100, WeeklyImpressions: 10,
		ShortTerm: []models.Gap{{Start: date("2025-02-20"), End: date("2025-03-01"), Days: 10, AvgAvailable: 1, Class: models.GapShortTerm}},
	}

	recs := Recommend([]models.MediaScore{poster, bulletin}, nil, date("2025-02-15"))
	imm := find(recs, models.OpportunityImmediate)
	require.NotNil(t, imm)
	assert.Equal(t, "Bulletin", imm.MediaType)
	assert.Equal(t, 5, imm.Metrics.DaysUntilStart)
	assert.True(t, imm.Metrics.WithinWindow)

	imp := find(recs, models.OpportunityImpressions)
	require.NotNil(t, imp)
	assert.Equal(t, "Bulletin", imp.MediaType)

	// Every gap over: no gap-based recommendation at all.
	recs = Recommend([]models.MediaScore{poster, bulletin}, nil, date("2025-03-02"))
	assert.Nil(t, find(recs, models.OpportunityImmediate))
	assert.Nil(t, find(recs, models.OpportunityImpressions))

	// A gap under way counts as starting today.
	recs = Recommend([]models.MediaScore{poster, bulletin}, nil, date("2025-01-05"))
	imm = find(recs, models.OpportunityImmediate)
	require.NotNil(t, imm)
	assert.Equal(t, "Poster", imm.MediaType)
	assert.Equal(t, 0, imm.Metrics.DaysUntilStart)
	assert.True(t, imm.Metrics.WithinWindow)
}

func TestRecommendLongTermSkipsEndedGaps(t *testing.T) {
	s := models.MediaScore{
		MediaType: "Poster", HasOpenings: true,
		LongTerm: []models.Gap{
			{Start: date("2024-01-01"), End: date("2024-03-31"), Days: 91, Class: models.GapLongTerm},
			{Start: date("2025-03-01"), End: date("2025-03-31"), Days: 31, Class: models.GapLongTerm},
		},
	}
	recs := Recommend([]models.MediaScore{s}, nil, date("2025-01-01"))
	lt := find(recs, models.OpportunityLongTerm)
	require.NotNil(t, lt)
	require.NotNil(t, lt.Gap)
	assert.Equal(t, date("2025-03-01"), lt.Gap.Start)
	assert.False(t, lt.Metrics.WithinWindow)
}

func TestRecommendSkipsMediaWithoutOpenings(t *testing.T) {
	closed := MediaSeries{MediaType: "Closed", Capacity: 5, Days: series("2025-01-01", 5, repeat(0, 30)...)}
	scores, _, recs := RankOpportunities([]MediaSeries{closed}, []models.MarketScore{{Market: "X"}}, flatEstimator(100), 1, date("2025-01-01"))

	require.Len(t, scores, 1)
	assert.False(t, scores[0].HasOpenings)
	assert.Equal(t, 0.0, scores[0].AvailabilityScore)
	assert.Empty(t, recs)
}

func TestGapReach(t *testing.T) {
	g := models.Gap{Days: 14, AvgAvailable: 3}
	assert.Equal(t, int64(600), GapReach(100, g))
}
