package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/analytics"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/middleware"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
)

// DailyHandler serves per-day utilization.
func (s *Server) DailyHandler(w http.ResponseWriter, r *http.Request) {
	serveQuery(s, w, r, availability.KindDaily, s.Engine.Daily)
}

// BucketsHandler serves utilization rolled up by week, month or year.
func (s *Server) BucketsHandler(w http.ResponseWriter, r *http.Request) {
	serveQuery(s, w, r, availability.KindBuckets, s.Engine.Aggregate)
}

// GapsHandler serves availability windows of at least seven days.
func (s *Server) GapsHandler(w http.ResponseWriter, r *http.Request) {
	serveQuery(s, w, r, availability.KindGaps, s.Engine.Gaps)
}

// OpportunitiesHandler serves ranked sales opportunities.
func (s *Server) OpportunitiesHandler(w http.ResponseWriter, r *http.Request) {
	serveQuery(s, w, r, availability.KindOpportunities, s.Engine.Opportunities)
}

// capacityReporter is implemented by results that carry a resolved capacity.
type capacityReporter interface {
	ResolvedCapacity() (int, bool)
}

// serveQuery runs one engine query: parse, look up the snapshot, consult the
// cache, compute, store, log. The cache key includes the snapshot version so
// a reload never serves stale results.
func serveQuery[T any](s *Server, w http.ResponseWriter, r *http.Request, kind string, run func(context.Context, *availability.Snapshot, models.AvailabilityQuery) (*T, error)) {
	start := time.Now()
	endpoint := kind
	method := r.Method

	ctx, span := tracer.Start(r.Context(), "Availability."+kind,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", r.URL.Path),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	finish := func(status int) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	fail := func(err error) {
		status := writeError(w, err)
		if status >= http.StatusInternalServerError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("availability query failed", zap.String("kind", kind), zap.Error(err))
		} else {
			logger.Debug("availability query rejected", zap.String("kind", kind), zap.Error(err))
		}
		finish(status)
	}

	q, err := parseQuery(r, s.today())
	if err != nil {
		fail(err)
		return
	}
	if s.Snapshots == nil {
		fail(db.ErrNoSnapshot)
		return
	}
	snap, err := s.Snapshots.Current()
	if err != nil {
		fail(err)
		return
	}
	q, err = availability.PrepareQuery(q)
	if err != nil {
		fail(fmt.Errorf("%w: %w", availability.ErrInvalidQuery, err))
		return
	}
	span.SetAttributes(
		attribute.String("availability.market", q.Market),
		attribute.String("availability.media_type", q.MediaType),
		attribute.String("availability.snapshot", snap.Version),
	)

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("availability request",
			zap.String("kind", kind),
			zap.String("market", q.Market),
			zap.String("media_type", q.MediaType),
			zap.Stringer("start", q.Start),
			zap.Stringer("end", q.End),
			zap.String("granularity", string(q.Granularity)),
		)
	}

	key := ""
	if s.Cache != nil {
		if key, err = db.CacheKey(kind, snap.Version, q); err != nil {
			logger.Warn("cache key", zap.Error(err))
			key = ""
		}
	}

	var res *T
	cached := false
	if key != "" {
		var hit T
		found, err := s.Cache.GetResult(ctx, key, &hit)
		switch {
		case err != nil:
			logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
			s.Metrics.IncrementCacheLookups("error")
		case found:
			res, cached = &hit, true
			s.Metrics.IncrementCacheLookups("hit")
		default:
			s.Metrics.IncrementCacheLookups("miss")
		}
	}

	if res == nil {
		res, err = run(ctx, snap, q)
		if err != nil {
			fail(err)
			return
		}
		if key != "" {
			if err := s.Cache.SetResult(ctx, key, res, s.CacheTTL); err != nil {
				logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	span.SetAttributes(attribute.Bool("availability.cached", cached))

	writeJSON(w, http.StatusOK, res)
	finish(http.StatusOK)

	s.logQuery(ctx, logger, kind, snap.Version, q, res, cached, time.Since(start))
}

// logQuery appends a row to the query log when one is configured.
func (s *Server) logQuery(ctx context.Context, logger *zap.Logger, kind, version string, q models.AvailabilityQuery, res any, cached bool, elapsed time.Duration) {
	if s.QueryLog == nil {
		return
	}
	ev := analytics.NewQueryEvent(kind, middleware.RequestID(ctx), version, q)
	if cr, ok := res.(capacityReporter); ok {
		capacity, zero := cr.ResolvedCapacity()
		ev.Capacity = int32(capacity)
		ev.ZeroCapacity = zero
	}
	ev.Cached = cached
	ev.DurationMs = float64(elapsed.Microseconds()) / 1000
	if err := s.QueryLog.RecordQuery(ctx, ev); err != nil && !errors.Is(err, analytics.ErrUnavailable) {
		logger.Warn("query log write failed", zap.Error(err))
	}
}
