package models

// Selector value matching every market or every media type.
const All = "ALL"

// Status is the categorical utilization band of a day or bucket.
type Status string

const (
	StatusOpen     Status = "open"     // nothing booked
	StatusLight    Status = "light"    // above 0%
	StatusModerate Status = "moderate" // 40% or more
	StatusTight    Status = "tight"    // 70% or more
	StatusCritical Status = "critical" // 90% or more
	StatusFull     Status = "full"     // 100%
)

// Granularity selects the aggregation period.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// AvailabilityQuery carries every parameter of a single engine invocation.
type AvailabilityQuery struct {
	Start        Date        `json:"start"`
	End          Date        `json:"end"`
	Market       string      `json:"market"`     // market, region group, or ALL
	MediaType    string      `json:"media_type"` // media type, category group, or ALL
	IncludeHolds bool        `json:"include_holds"`
	MinAvailable int         `json:"min_available"`
	Granularity  Granularity `json:"granularity"`
	// CapacityOverride replaces the resolved capacity when non-nil.
	CapacityOverride *int `json:"capacity_override,omitempty"`
	// Today anchors the "within N days" checks of the ranker.
	Today Date `json:"today"`
}

// CampaignEntry is one booking shown in a day or bucket manifest.
type CampaignEntry struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Stage    string `json:"stage"`
}

// DayRecord is the utilization of one calendar day. Never mutated after the
// builder returns it.
type DayRecord struct {
	Date            Date            `json:"date"`
	Capacity        int             `json:"capacity"`
	BookedConfirmed int             `json:"booked_confirmed"`
	BookedHeld      int             `json:"booked_held"`
	Available       int             `json:"available"`
	UtilizationPct  float64         `json:"utilization_pct"`
	Status          Status          `json:"status"`
	Campaigns       []CampaignEntry `json:"campaigns"`
}

// Booked returns confirmed plus held units.
func (d DayRecord) Booked() int { return d.BookedConfirmed + d.BookedHeld }

// AggregateBucket rolls up consecutive days of one week, month or year.
type AggregateBucket struct {
	Granularity Granularity `json:"granularity"`
	// Period is the canonical start of the calendar period (Monday, first of
	// month, January 1st). Start may be later when the range begins mid-period.
	Period            Date            `json:"period"`
	Start             Date            `json:"start"`
	End               Date            `json:"end"`
	Days              []DayRecord     `json:"days"`
	AvgBooked         float64         `json:"avg_booked"`
	AvgAvailable      float64         `json:"avg_available"`
	AvgCapacity       float64         `json:"avg_capacity"`
	PeakBooked        int             `json:"peak_booked"`
	MinAvailable      int             `json:"min_available"`
	AvgUtilizationPct float64         `json:"avg_utilization_pct"`
	Status            Status          `json:"status"`
	Campaigns         []CampaignEntry `json:"campaigns"`
}

// GapClass separates near-term windows from long runs.
type GapClass string

const (
	GapShortTerm GapClass = "short_term"
	GapLongTerm  GapClass = "long_term"
)

// Gap is a maximal run of days whose availability meets the requested minimum.
type Gap struct {
	Start        Date     `json:"start"`
	End          Date     `json:"end"`
	Days         int      `json:"days"`
	AvgAvailable int      `json:"avg_available"`
	Class        GapClass `json:"class"`
}

// Summary describes a daily series at a glance.
type Summary struct {
	TotalDays         int            `json:"total_days"`
	AvgUtilizationPct float64        `json:"avg_utilization_pct"`
	PeakBooked        int            `json:"peak_booked"`
	MinAvailable      int            `json:"min_available"`
	DaysByStatus      map[Status]int `json:"days_by_status"`
}

// DailyResult is the output of a daily utilization query.
type DailyResult struct {
	Query        AvailabilityQuery `json:"query"`
	Capacity     int               `json:"capacity"`
	ZeroCapacity bool              `json:"zero_capacity"`
	Discarded    int               `json:"discarded"`
	Days         []DayRecord       `json:"days"`
	Summary      Summary           `json:"summary"`
}

// AggregateResult is the output of a bucketed utilization query.
type AggregateResult struct {
	Query        AvailabilityQuery `json:"query"`
	Capacity     int               `json:"capacity"`
	ZeroCapacity bool              `json:"zero_capacity"`
	Discarded    int               `json:"discarded"`
	Buckets      []AggregateBucket `json:"buckets"`
}

// GapResult lists qualifying windows in scan order together with the two
// orderings callers usually want.
type GapResult struct {
	Query        AvailabilityQuery `json:"query"`
	Capacity     int               `json:"capacity"`
	ZeroCapacity bool              `json:"zero_capacity"`
	Discarded    int               `json:"discarded"`
	Gaps         []Gap             `json:"gaps"`
	Longest      []Gap             `json:"longest"`
	Soonest      []Gap             `json:"soonest"`
}

// ResolvedCapacity reports the capacity a result was measured against.
func (r *DailyResult) ResolvedCapacity() (int, bool) { return r.Capacity, r.ZeroCapacity }

func (r *AggregateResult) ResolvedCapacity() (int, bool) { return r.Capacity, r.ZeroCapacity }

func (r *GapResult) ResolvedCapacity() (int, bool) { return r.Capacity, r.ZeroCapacity }
