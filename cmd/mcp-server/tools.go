package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// QueryInput is shared by every tool. Dates are YYYY-MM-DD; either preset or
// both start_date and end_date are required.
type QueryInput struct {
	StartDate    string `json:"start_date,omitempty" jsonschema:"first day of the range, inclusive"`
	EndDate      string `json:"end_date,omitempty" jsonschema:"last day of the range, inclusive"`
	Preset       string `json:"preset,omitempty" jsonschema:"relative range instead of dates: next30, next90, quarter or year"`
	Today        string `json:"today,omitempty" jsonschema:"reference date for presets and recommendations, defaults to the server date"`
	Market       string `json:"market,omitempty" jsonschema:"market, region group or ALL"`
	MediaType    string `json:"media_type,omitempty" jsonschema:"media type, category group or ALL"`
	ExcludeHolds bool   `json:"exclude_holds,omitempty" jsonschema:"ignore bookings in a hold or pending stage"`
	MinAvailable *int   `json:"min_available,omitempty" jsonschema:"units that must be free for a day to count toward a gap, default 1"`
	Granularity  string `json:"granularity,omitempty" jsonschema:"day, week, month or year"`
	Capacity     *int   `json:"capacity,omitempty" jsonschema:"capacity override in faces"`
}

// DayOutput is one day of utilization.
type DayOutput struct {
	Date            string  `json:"date"`
	Capacity        int     `json:"capacity"`
	BookedConfirmed int     `json:"booked_confirmed"`
	BookedHeld      int     `json:"booked_held"`
	Available       int     `json:"available"`
	UtilizationPct  float64 `json:"utilization_pct"`
	Status          string  `json:"status"`
}

// BucketOutput is one week, month or year of utilization.
type BucketOutput struct {
	Period            string  `json:"period"`
	Start             string  `json:"start"`
	End               string  `json:"end"`
	AvgBooked         float64 `json:"avg_booked"`
	AvgAvailable      float64 `json:"avg_available"`
	PeakBooked        int     `json:"peak_booked"`
	MinAvailable      int     `json:"min_available"`
	AvgUtilizationPct float64 `json:"avg_utilization_pct"`
	Status            string  `json:"status"`
	Campaigns         int     `json:"campaigns"`
}

// DailyOutput answers daily_utilization. Buckets is filled when a coarser
// granularity is requested.
type DailyOutput struct {
	Capacity          int            `json:"capacity"`
	ZeroCapacity      bool           `json:"zero_capacity"`
	Discarded         int            `json:"discarded"`
	AvgUtilizationPct float64        `json:"avg_utilization_pct"`
	PeakBooked        int            `json:"peak_booked"`
	MinAvailable      int            `json:"min_available"`
	DaysByStatus      map[string]int `json:"days_by_status"`
	Days              []DayOutput    `json:"days"`
	Buckets           []BucketOutput `json:"buckets"`
}

// GapOutput is one availability window.
type GapOutput struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	Days         int    `json:"days"`
	AvgAvailable int    `json:"avg_available"`
	Class        string `json:"class"`
}

// GapsOutput answers find_gaps.
type GapsOutput struct {
	Capacity     int         `json:"capacity"`
	ZeroCapacity bool        `json:"zero_capacity"`
	Gaps         []GapOutput `json:"gaps"`
	Longest      []GapOutput `json:"longest"`
	Soonest      []GapOutput `json:"soonest"`
}

// RecommendationOutput is one ranked opportunity.
type RecommendationOutput struct {
	Category          string  `json:"category"`
	MediaType         string  `json:"media_type,omitempty"`
	Market            string  `json:"market,omitempty"`
	GapStart          string  `json:"gap_start,omitempty"`
	GapEnd            string  `json:"gap_end,omitempty"`
	GapDays           int     `json:"gap_days,omitempty"`
	AvailabilityScore float64 `json:"availability_score"`
	EstimatedReach    int64   `json:"estimated_reach"`
	AvailableUnits    int     `json:"available_units,omitempty"`
	DaysUntilStart    int     `json:"days_until_start"`
	WithinWindow      bool    `json:"within_window"`
	ReachTier         string  `json:"reach_tier,omitempty"`
}

// MediaOutput summarizes one media type.
type MediaOutput struct {
	MediaType         string  `json:"media_type"`
	Capacity          int     `json:"capacity"`
	AvailabilityScore float64 `json:"availability_score"`
	EstimatedReach    int64   `json:"estimated_reach"`
	ReachTier         string  `json:"reach_tier"`
	ShortTermGaps     int     `json:"short_term_gaps"`
	LongTermGaps      int     `json:"long_term_gaps"`
	HasOpenings       bool    `json:"has_openings"`
}

// MarketOutput is a market's average daily free units.
type MarketOutput struct {
	Market         string `json:"market"`
	Capacity       int    `json:"capacity"`
	AvailableUnits int    `json:"available_units"`
}

// RankingOutput answers rank_opportunities.
type RankingOutput struct {
	Recommendations []RecommendationOutput `json:"recommendations"`
	Media           []MediaOutput          `json:"media"`
	Markets         []MarketOutput         `json:"markets"`
}

// Snapshots supplies the current booking snapshot.
type Snapshots interface {
	Current() (*availability.Snapshot, error)
}

// AvailabilityTools exposes the engine as MCP tools.
type AvailabilityTools struct {
	engine    *availability.Engine
	snapshots Snapshots
	logger    *zap.Logger
	now       func() time.Time
}

// Register adds the tools to server.
func (t *AvailabilityTools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "daily_utilization",
		Description: "Per-day booked, held and available faces for a market and media selection, optionally rolled up by week, month or year",
	}, t.DailyUtilization)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_gaps",
		Description: "Windows of seven or more consecutive days with at least min_available free faces",
	}, t.FindGaps)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "rank_opportunities",
		Description: "Ranked sales opportunities: immediate and long-term openings, flexible media, best market and highest reach",
	}, t.RankOpportunities)
}

// DailyUtilization implements the daily_utilization tool.
func (t *AvailabilityTools) DailyUtilization(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, DailyOutput, error) {
	snap, q, err := t.prepare(in)
	if err != nil {
		return nil, DailyOutput{}, err
	}
	res, err := t.engine.Daily(ctx, snap, q)
	if err != nil {
		return nil, DailyOutput{}, err
	}

	out := DailyOutput{
		Capacity:          res.Capacity,
		ZeroCapacity:      res.ZeroCapacity,
		Discarded:         res.Discarded,
		AvgUtilizationPct: res.Summary.AvgUtilizationPct,
		PeakBooked:        res.Summary.PeakBooked,
		MinAvailable:      res.Summary.MinAvailable,
		DaysByStatus:      make(map[string]int, len(res.Summary.DaysByStatus)),
		Days:              make([]DayOutput, 0, len(res.Days)),
		Buckets:           []BucketOutput{},
	}
	for status, n := range res.Summary.DaysByStatus {
		out.DaysByStatus[string(status)] = n
	}
	for _, d := range res.Days {
		out.Days = append(out.Days, DayOutput{
			Date:            d.Date.String(),
			Capacity:        d.Capacity,
			BookedConfirmed: d.BookedConfirmed,
			BookedHeld:      d.BookedHeld,
			Available:       d.Available,
			UtilizationPct:  d.UtilizationPct,
			Status:          string(d.Status),
		})
	}

	if res.Query.Granularity != models.GranularityDay {
		buckets, err := availability.Aggregate(res.Days, res.Query.Granularity)
		if err != nil {
			return nil, DailyOutput{}, err
		}
		for _, b := range buckets {
			out.Buckets = append(out.Buckets, BucketOutput{
				Period:            b.Period.String(),
				Start:             b.Start.String(),
				End:               b.End.String(),
				AvgBooked:         b.AvgBooked,
				AvgAvailable:      b.AvgAvailable,
				PeakBooked:        b.PeakBooked,
				MinAvailable:      b.MinAvailable,
				AvgUtilizationPct: b.AvgUtilizationPct,
				Status:            string(b.Status),
				Campaigns:         len(b.Campaigns),
			})
		}
	}
	return nil, out, nil
}

// FindGaps implements the find_gaps tool.
func (t *AvailabilityTools) FindGaps(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, GapsOutput, error) {
	snap, q, err := t.prepare(in)
	if err != nil {
		return nil, GapsOutput{}, err
	}
	res, err := t.engine.Gaps(ctx, snap, q)
	if err != nil {
		return nil, GapsOutput{}, err
	}
	return nil, GapsOutput{
		Capacity:     res.Capacity,
		ZeroCapacity: res.ZeroCapacity,
		Gaps:         gapOutputs(res.Gaps),
		Longest:      gapOutputs(res.Longest),
		Soonest:      gapOutputs(res.Soonest),
	}, nil
}

// RankOpportunities implements the rank_opportunities tool.
func (t *AvailabilityTools) RankOpportunities(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, RankingOutput, error) {
	snap, q, err := t.prepare(in)
	if err != nil {
		return nil, RankingOutput{}, err
	}
	res, err := t.engine.Opportunities(ctx, snap, q)
	if err != nil {
		return nil, RankingOutput{}, err
	}

	out := RankingOutput{
		Recommendations: make([]RecommendationOutput, 0, len(res.Recommendations)),
		Media:           make([]MediaOutput, 0, len(res.Media)),
		Markets:         make([]MarketOutput, 0, len(res.Markets)),
	}
	for _, o := range res.Recommendations {
		r := RecommendationOutput{
			Category:          string(o.Category),
			MediaType:         o.MediaType,
			Market:            o.Market,
			AvailabilityScore: o.Metrics.AvailabilityScore,
			EstimatedReach:    o.Metrics.EstimatedReach,
			AvailableUnits:    o.Metrics.AvailableUnits,
			DaysUntilStart:    o.Metrics.DaysUntilStart,
			WithinWindow:      o.Metrics.WithinWindow,
			ReachTier:         o.Metrics.ReachTier,
		}
		if o.Gap != nil {
			r.GapStart = o.Gap.Start.String()
			r.GapEnd = o.Gap.End.String()
			r.GapDays = o.Gap.Days
		}
		out.Recommendations = append(out.Recommendations, r)
	}
	for _, m := range res.Media {
		out.Media = append(out.Media, MediaOutput{
			MediaType:         m.MediaType,
			Capacity:          m.Capacity,
			AvailabilityScore: m.AvailabilityScore,
			EstimatedReach:    m.EstimatedReach,
			ReachTier:         m.ReachTier,
			ShortTermGaps:     len(m.ShortTerm),
			LongTermGaps:      len(m.LongTerm),
			HasOpenings:       m.HasOpenings,
		})
	}
	for _, m := range res.Markets {
		out.Markets = append(out.Markets, MarketOutput{
			Market:         m.Market,
			Capacity:       m.Capacity,
			AvailableUnits: m.AvailableUnits,
		})
	}
	return nil, out, nil
}

// prepare resolves the snapshot and converts tool input into a query.
func (t *AvailabilityTools) prepare(in QueryInput) (*availability.Snapshot, models.AvailabilityQuery, error) {
	q, err := in.query(models.DateOf(t.now()))
	if err != nil {
		return nil, q, err
	}
	snap, err := t.snapshots.Current()
	if err != nil {
		return nil, q, err
	}
	t.logger.Debug("tool query",
		zap.String("market", q.Market),
		zap.String("media_type", q.MediaType),
		zap.Stringer("start", q.Start),
		zap.Stringer("end", q.End),
		zap.String("snapshot", snap.Version))
	return snap, q, nil
}

func (in QueryInput) query(serverToday models.Date) (models.AvailabilityQuery, error) {
	q := models.AvailabilityQuery{
		Market:           in.Market,
		MediaType:        in.MediaType,
		IncludeHolds:     !in.ExcludeHolds,
		MinAvailable:     1,
		Granularity:      models.Granularity(strings.ToLower(in.Granularity)),
		CapacityOverride: in.Capacity,
		Today:            serverToday,
	}
	if in.MinAvailable != nil {
		q.MinAvailable = *in.MinAvailable
	}
	if in.Today != "" {
		d, err := models.ParseDate(in.Today)
		if err != nil {
			return q, fmt.Errorf("today: %w", err)
		}
		q.Today = d
	}

	var err error
	switch {
	case in.Preset != "":
		q.Start, q.End, err = availability.PresetRange(strings.ToLower(in.Preset), q.Today)
		if err != nil {
			return q, err
		}
	case in.StartDate == "" || in.EndDate == "":
		return q, fmt.Errorf("start_date and end_date are required unless preset is given")
	default:
		if q.Start, err = models.ParseDate(in.StartDate); err != nil {
			return q, fmt.Errorf("start_date: %w", err)
		}
		if q.End, err = models.ParseDate(in.EndDate); err != nil {
			return q, fmt.Errorf("end_date: %w", err)
		}
	}
	return q, nil
}

func gapOutputs(gaps []models.Gap) []GapOutput {
	out := make([]GapOutput, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, GapOutput{
			Start:        g.Start.String(),
			End:          g.End.String(),
			Days:         g.Days,
			AvgAvailable: g.AvgAvailable,
			Class:        string(g.Class),
		})
	}
	return out
}
