package availability

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

var tracer = otel.Tracer("availability")

// Query kinds used for metrics, logs and cache keys.
const (
	KindDaily         = "daily"
	KindBuckets       = "buckets"
	KindGaps          = "gaps"
	KindOpportunities = "opportunities"
)

// Engine answers availability queries against a snapshot. It holds no
// per-query state; identical inputs always give identical results.
type Engine struct {
	Reach   ReachEstimator
	Logger  *zap.Logger
	Metrics observability.MetricsRegistry
	// Workers bounds the per-media fan-out of Opportunities. Zero means GOMAXPROCS.
	Workers int
}

// NewEngine creates a new availability engine
func NewEngine(est ReachEstimator, logger *zap.Logger, metrics observability.MetricsRegistry) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if est == nil {
		est = reach.DefaultModel()
	}
	return &Engine{Reach: est, Logger: logger, Metrics: metrics}
}

// ErrInvalidQuery wraps every validation failure reported by the engine.
var ErrInvalidQuery = errors.New("invalid availability query")

// PrepareQuery validates q and fills defaults: ALL selectors, day
// granularity, and Today set to the range start when absent.
func PrepareQuery(q models.AvailabilityQuery) (models.AvailabilityQuery, error) {
	if err := ValidateRange(q.Start, q.End); err != nil {
		return q, err
	}
	if q.MinAvailable < 0 {
		return q, fmt.Errorf("%w: %d", ErrNegativeThreshold, q.MinAvailable)
	}
	g, err := ParseGranularity(string(q.Granularity))
	if err != nil {
		return q, err
	}
	q.Granularity = g
	if strings.TrimSpace(q.Market) == "" {
		q.Market = models.All
	}
	if strings.TrimSpace(q.MediaType) == "" {
		q.MediaType = models.All
	}
	if q.Today.IsZero() {
		q.Today = q.Start
	}
	return q, nil
}

// selection is the filtered input shared by every query kind.
type selection struct {
	query      models.AvailabilityQuery
	intervals  []models.Interval
	resolution inventory.Resolution
	discarded  int
}

func (e *Engine) selectIntervals(ctx context.Context, snap *Snapshot, q models.AvailabilityQuery) (*selection, error) {
	if snap == nil || snap.Resolver == nil {
		return nil, fmt.Errorf("no snapshot loaded")
	}
	q, err := PrepareQuery(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	_, span := tracer.Start(ctx, "availability.select")
	defer span.End()

	sel := &selection{
		query:     q,
		intervals: FilterIntervals(snap.Intervals, snap.Resolver, q.Market, q.MediaType, q.IncludeHolds),
		resolution: snap.Resolver.Explain(inventory.Filter{
			Market:    q.Market,
			MediaType: q.MediaType,
			Override:  q.CapacityOverride,
		}),
		discarded: snap.Discarded,
	}
	span.SetAttributes(
		attribute.Int("availability.intervals", len(sel.intervals)),
		attribute.Int("availability.capacity", sel.resolution.Capacity),
	)
	return sel, nil
}

func (e *Engine) daily(ctx context.Context, sel *selection) ([]models.DayRecord, error) {
	_, span := tracer.Start(ctx, "availability.build_daily")
	defer span.End()

	days, err := BuildDaily(sel.intervals, sel.resolution.Capacity, sel.query.Start, sel.query.End)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("availability.days", len(days)))
	return days, nil
}

// Daily returns one record per day of the query range.
func (e *Engine) Daily(ctx context.Context, snap *Snapshot, q models.AvailabilityQuery) (*models.DailyResult, error) {
	ctx, span := e.startQuery(ctx, KindDaily, q)
	defer span.End()
	start := time.Now()

	sel, err := e.selectIntervals(ctx, snap, q)
	if err != nil {
		return nil, e.fail(span, err)
	}
	days, err := e.daily(ctx, sel)
	if err != nil {
		return nil, e.fail(span, err)
	}

	res := &models.DailyResult{
		Query:        sel.query,
		Capacity:     sel.resolution.Capacity,
		ZeroCapacity: sel.resolution.Capacity <= 0,
		Discarded:    sel.discarded,
		Days:         days,
		Summary:      Summarize(days),
	}
	e.finish(KindDaily, sel, start)
	return res, nil
}

// Aggregate returns the daily series rolled into the query's granularity.
func (e *Engine) Aggregate(ctx context.Context, snap *Snapshot, q models.AvailabilityQuery) (*models.AggregateResult, error) {
	ctx, span := e.startQuery(ctx, KindBuckets, q)
	defer span.End()
	start := time.Now()

	sel, err := e.selectIntervals(ctx, snap, q)
	if err != nil {
		return nil, e.fail(span, err)
	}
	days, err := e.daily(ctx, sel)
	if err != nil {
		return nil, e.fail(span, err)
	}

	_, aggSpan := tracer.Start(ctx, "availability.aggregate",
		trace.WithAttributes(attribute.String("availability.granularity", string(sel.query.Granularity))))
	buckets, err := Aggregate(days, sel.query.Granularity)
	aggSpan.End()
	if err != nil {
		return nil, e.fail(span, err)
	}

	res := &models.AggregateResult{
		Query:        sel.query,
		Capacity:     sel.resolution.Capacity,
		ZeroCapacity: sel.resolution.Capacity <= 0,
		Discarded:    sel.discarded,
		Buckets:      buckets,
	}
	e.finish(KindBuckets, sel, start)
	return res, nil
}

// Gaps finds qualifying windows. Day granularity scans days; coarser
// granularities scan buckets by their minimum availability.
func (e *Engine) Gaps(ctx context.Context, snap *Snapshot, q models.AvailabilityQuery) (*models.GapResult, error) {
	ctx, span := e.startQuery(ctx, KindGaps, q)
	defer span.End()
	start := time.Now()

	sel, err := e.selectIntervals(ctx, snap, q)
	if err != nil {
		return nil, e.fail(span, err)
	}
	days, err := e.daily(ctx, sel)
	if err != nil {
		return nil, e.fail(span, err)
	}

	_, gapSpan := tracer.Start(ctx, "availability.find_gaps")
	var gaps []models.Gap
	if sel.query.Granularity == models.GranularityDay {
		gaps = FindGaps(days, sel.query.MinAvailable)
	} else {
		buckets, aggErr := Aggregate(days, sel.query.Granularity)
		if aggErr != nil {
			gapSpan.End()
			return nil, e.fail(span, aggErr)
		}
		gaps = FindPeriodGaps(buckets, sel.query.MinAvailable)
	}
	gapSpan.SetAttributes(attribute.Int("availability.gaps", len(gaps)))
	gapSpan.End()

	res := &models.GapResult{
		Query:        sel.query,
		Capacity:     sel.resolution.Capacity,
		ZeroCapacity: sel.resolution.Capacity <= 0,
		Discarded:    sel.discarded,
		Gaps:         gaps,
		Longest:      SortByLength(gaps),
		Soonest:      SortBySoonest(gaps),
	}
	e.finish(KindGaps, sel, start)
	return res, nil
}

// Opportunities scores each media type and market present in the selection
// and returns the recommendations. Media and markets are enumerated in the
// order they first appear in the snapshot.
func (e *Engine) Opportunities(ctx context.Context, snap *Snapshot, q models.AvailabilityQuery) (*models.Ranking, error) {
	ctx, span := e.startQuery(ctx, KindOpportunities, q)
	defer span.End()
	start := time.Now()

	sel, err := e.selectIntervals(ctx, snap, q)
	if err != nil {
		return nil, e.fail(span, err)
	}
	qq := sel.query

	mediaLabels, byMedia := groupBy(sel.intervals, func(iv models.Interval) string {
		return labelOr(iv.Product, inventory.OtherMedia)
	})
	marketLabels, byMarket := groupBy(sel.intervals, func(iv models.Interval) string {
		return labelOr(iv.Market, inventory.OtherMarket)
	})

	series := make([]MediaSeries, len(mediaLabels))
	markets := make([]models.MarketScore, len(marketLabels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, label := range mediaLabels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			capacity := snap.Resolver.Resolve(inventory.Filter{Market: qq.Market, MediaType: label})
			days, err := BuildDaily(byMedia[fold(label)], capacity, qq.Start, qq.End)
			if err != nil {
				return fmt.Errorf("media %q: %w", label, err)
			}
			series[i] = MediaSeries{MediaType: label, Capacity: capacity, Days: days}
			return nil
		})
	}
	for i, label := range marketLabels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			capacity := snap.Resolver.Resolve(inventory.Filter{Market: label, MediaType: qq.MediaType})
			days, err := BuildDaily(byMarket[fold(label)], capacity, qq.Start, qq.End)
			if err != nil {
				return fmt.Errorf("market %q: %w", label, err)
			}
			markets[i] = models.MarketScore{Market: label, Capacity: capacity, AvailableUnits: averageAvailable(days)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, e.fail(span, err)
	}

	_, rankSpan := tracer.Start(ctx, "availability.rank")
	scores, ranked, recs := RankOpportunities(series, markets, e.Reach, qq.MinAvailable, qq.Today)
	rankSpan.SetAttributes(
		attribute.Int("availability.media", len(scores)),
		attribute.Int("availability.recommendations", len(recs)),
	)
	rankSpan.End()

	res := &models.Ranking{
		Query:           qq,
		Capacity:        sel.resolution.Capacity,
		ZeroCapacity:    sel.resolution.Capacity <= 0,
		Discarded:       sel.discarded,
		Media:           scores,
		Markets:         ranked,
		Recommendations: recs,
	}
	e.finish(KindOpportunities, sel, start)
	return res, nil
}

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Engine) startQuery(ctx context.Context, kind string, q models.AvailabilityQuery) (context.Context, trace.Span) {
	return tracer.Start(ctx, "availability."+kind,
		trace.WithAttributes(
			attribute.String("availability.market", q.Market),
			attribute.String("availability.media_type", q.MediaType),
			attribute.String("availability.start", q.Start.String()),
			attribute.String("availability.end", q.End.String()),
		))
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (e *Engine) finish(kind string, sel *selection, start time.Time) {
	zero := sel.resolution.Capacity <= 0
	e.Metrics.IncrementQueries(kind)
	e.Metrics.RecordQueryLatency(kind, time.Since(start))
	if zero {
		e.Metrics.IncrementZeroCapacity(kind)
	}
	e.Logger.Info("availability query",
		zap.String("kind", kind),
		zap.String("market", sel.query.Market),
		zap.String("media_type", sel.query.MediaType),
		zap.Stringer("start", sel.query.Start),
		zap.Stringer("end", sel.query.End),
		zap.Int("capacity", sel.resolution.Capacity),
		zap.Bool("zero_capacity", zero),
		zap.Bool("market_fallback", sel.resolution.MarketFallback),
		zap.Bool("media_fallback", sel.resolution.MediaFallback),
		zap.Int("discarded", sel.discarded),
		zap.Duration("duration", time.Since(start)),
	)
}

// groupBy partitions intervals by a case-folded key, returning the first
// spelling of each key in encounter order.
func groupBy(intervals []models.Interval, key func(models.Interval) string) ([]string, map[string][]models.Interval) {
	labels := make([]string, 0)
	groups := make(map[string][]models.Interval)
	for _, iv := range intervals {
		label := key(iv)
		k := fold(label)
		if _, ok := groups[k]; !ok {
			labels = append(labels, label)
		}
		groups[k] = append(groups[k], iv)
	}
	return labels, groups
}

// averageAvailable is the floored mean of daily available units.
func averageAvailable(days []models.DayRecord) int {
	if len(days) == 0 {
		return 0
	}
	sum := 0
	for _, d := range days {
		sum += d.Available
	}
	return sum / len(days)
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
