package models

// OpportunityCategory tags which recommendation slot a record fills.
type OpportunityCategory string

const (
	OpportunityImmediate   OpportunityCategory = "immediate"
	OpportunityLongTerm    OpportunityCategory = "longterm"
	OpportunityFlexible    OpportunityCategory = "flexible"
	OpportunityMarket      OpportunityCategory = "market"
	OpportunityImpressions OpportunityCategory = "impressions"
)

// OpportunityMetrics are the figures backing a recommendation.
type OpportunityMetrics struct {
	AvailabilityScore float64 `json:"availability_score"`
	EstimatedReach    int64   `json:"estimated_reach"`
	AvailableUnits    int     `json:"available_units,omitempty"`
	DaysUntilStart    int     `json:"days_until_start"`
	WithinWindow      bool    `json:"within_window"`
	ReachTier         string  `json:"reach_tier,omitempty"`
}

// Opportunity is a single ranked recommendation. Either MediaType or Market
// is set depending on Category; Gap is nil for market and flexibility records.
type Opportunity struct {
	Category  OpportunityCategory `json:"category"`
	MediaType string              `json:"media_type,omitempty"`
	Market    string              `json:"market,omitempty"`
	Gap       *Gap                `json:"gap,omitempty"`
	Metrics   OpportunityMetrics  `json:"metrics"`
}

// MediaScore is the per-media-type view the ranker builds before choosing
// recommendations.
type MediaScore struct {
	MediaType         string  `json:"media_type"`
	Capacity          int     `json:"capacity"`
	ShortTerm         []Gap   `json:"short_term"`
	LongTerm          []Gap   `json:"long_term"`
	AvailabilityScore float64 `json:"availability_score"`
	EstimatedReach    int64   `json:"estimated_reach"`
	WeeklyImpressions int64   `json:"weekly_impressions"`
	ReachTier         string  `json:"reach_tier"`
	HasOpenings       bool    `json:"has_openings"`
}

// MarketScore is a market's average daily available units over the range.
type MarketScore struct {
	Market         string `json:"market"`
	Capacity       int    `json:"capacity"`
	AvailableUnits int    `json:"available_units"`
}

// Ranking is the output of an opportunity query.
type Ranking struct {
	Query           AvailabilityQuery `json:"query"`
	Capacity        int               `json:"capacity"`
	ZeroCapacity    bool              `json:"zero_capacity"`
	Discarded       int               `json:"discarded"`
	Media           []MediaScore      `json:"media"`
	Markets         []MarketScore     `json:"markets"`
	Recommendations []Opportunity     `json:"recommendations"`
}

// ResolvedCapacity reports the capacity of the whole selection.
func (r *Ranking) ResolvedCapacity() (int, bool) { return r.Capacity, r.ZeroCapacity }
