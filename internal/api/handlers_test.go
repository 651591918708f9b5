package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/analytics"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/config"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/middleware"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/ratelimit"
)

type fakeSource struct {
	records  []models.BookingRecord
	baseline inventory.Baseline
	err      error
}

func (f *fakeSource) LoadBookings(ctx context.Context) ([]models.BookingRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) LoadBaseline(ctx context.Context) (inventory.Baseline, error) {
	return f.baseline, nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: []models.BookingRecord{
			{ID: "1", Market: "Los Angeles", Product: "Digital Bulletin", StartDate: "2025-01-01", EndDate: "2025-01-10", Quantity: 5, Stage: "Contracted", Advertiser: "Acme"},
			{ID: "2", Market: "Los Angeles", Product: "Digital Bulletin", StartDate: "2025-01-05", EndDate: "2025-01-06", Quantity: 2, Stage: "On Hold", Advertiser: "Beta"},
			{ID: "3", Market: "San Diego", Product: "Poster", StartDate: "2025-01-01", EndDate: "2025-01-31", Quantity: 5, Stage: "Contracted", Advertiser: "Gamma"},
		},
		baseline: inventory.Baseline{Markets: map[string]map[string]int{
			"Los Angeles": {"Digital Bulletin": 10, "Poster": 20},
			"San Diego":   {"Poster": 5},
		}},
	}
}

type testEnv struct {
	server  *Server
	handler http.Handler
	src     *fakeSource
	store   *db.SnapshotStore
	metrics *observability.MockMetricsRegistry
	log     *analytics.MockAnalytics
}

func newTestEnv(t *testing.T, load bool) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })
	cache := &db.RedisStore{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}), Ctx: context.Background()}

	src := newFakeSource()
	metrics := observability.NewMockMetricsRegistry()
	store := db.NewSnapshotStore(src, inventory.Baseline{}, 0, db.BreakerSettings{}, zap.NewNop(), metrics)
	if load {
		_, err := store.Refresh(context.Background())
		require.NoError(t, err)
	}
	qlog := analytics.NewMockAnalytics()

	cfg := config.Config{CacheEnabled: true, CacheTTL: time.Minute}
	s := NewServer(zap.NewNop(), availability.NewEngine(nil, zap.NewNop(), metrics), store, cache, qlog, metrics, cfg)
	s.Now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return &testEnv{
		server:  s,
		handler: middleware.WithRequestID(middleware.WithTraceLogger(zap.NewNop())(r)),
		src:     src,
		store:   store,
		metrics: metrics,
		log:     qlog,
	}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const laDigital = "market=Los%20Angeles&media=Digital%20Bulletin"

func TestDailyHandler(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/availability/daily?start=2025-01-01&end=2025-01-31&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	res := decode[models.DailyResult](t, rec)
	require.Len(t, res.Days, 31)
	assert.Equal(t, 10, res.Capacity)
	assert.False(t, res.ZeroCapacity)
	assert.Equal(t, "Los Angeles", res.Query.Market)

	jan5 := res.Days[4]
	assert.Equal(t, "2025-01-05", jan5.Date.String())
	assert.Equal(t, 5, jan5.BookedConfirmed)
	assert.Equal(t, 2, jan5.BookedHeld)
	assert.Equal(t, 3, jan5.Available)
	assert.Equal(t, 10, res.Days[30].Available)

	assert.Equal(t, 1, env.metrics.Count(func(m *observability.MockMetricsRegistry) int { return m.Requests["daily GET 200"] }))
}

func TestDailyHandlerExcludesHolds(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/availability/daily?start=2025-01-05&end=2025-01-05&holds=false&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.DailyResult](t, rec)
	require.Len(t, res.Days, 1)
	assert.Equal(t, 0, res.Days[0].BookedHeld)
	assert.Equal(t, 5, res.Days[0].Available)
}

func TestDailyHandlerCapacityOverride(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/availability/daily?start=2025-01-01&end=2025-01-01&capacity=0&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.DailyResult](t, rec)
	assert.True(t, res.ZeroCapacity)
	assert.Equal(t, 0, res.Days[0].Available)
}

func TestQueryValidation(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"missing end", "/api/availability/daily?start=2025-01-01", "invalid_parameter"},
		{"bad start", "/api/availability/daily?start=soon&end=2025-01-01", "invalid_parameter"},
		{"end before start", "/api/availability/daily?start=2025-02-01&end=2025-01-01", "invalid_query"},
		{"negative threshold", "/api/availability/gaps?start=2025-01-01&end=2025-01-31&min_available=-1", "invalid_query"},
		{"bad threshold", "/api/availability/gaps?start=2025-01-01&end=2025-01-31&min_available=few", "invalid_parameter"},
		{"bad granularity", "/api/availability/buckets?start=2025-01-01&end=2025-01-31&granularity=hourly", "invalid_query"},
		{"negative capacity", "/api/availability/daily?start=2025-01-01&end=2025-01-31&capacity=-3", "invalid_parameter"},
		{"bad holds", "/api/availability/daily?start=2025-01-01&end=2025-01-31&holds=maybe", "invalid_parameter"},
		{"preset with start", "/api/availability/daily?preset=next30&start=2025-01-01", "invalid_parameter"},
		{"unknown preset", "/api/availability/daily?preset=fortnight", "invalid_parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
	assert.Empty(t, env.log.Events())
}

func TestHandlersWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/availability/daily?start=2025-01-01&end=2025-01-31")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "snapshot_unavailable", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "starting", health.Status)
	assert.Equal(t, "closed", health.Breaker)
}

func TestResultsAreCachedPerSnapshot(t *testing.T) {
	env := newTestEnv(t, true)
	target := "/api/availability/daily?start=2025-01-01&end=2025-01-31&" + laDigital

	first := env.do(t, http.MethodGet, target)
	second := env.do(t, http.MethodGet, target)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	lookups := func(result string) int {
		return env.metrics.Count(func(m *observability.MockMetricsRegistry) int { return m.CacheLookups[result] })
	}
	assert.Equal(t, 1, lookups("miss"))
	assert.Equal(t, 1, lookups("hit"))

	events := env.log.Events()
	require.Len(t, events, 2)
	assert.False(t, events[0].Cached)
	assert.True(t, events[1].Cached)
	assert.Equal(t, int32(10), events[1].Capacity)
	assert.Equal(t, "daily", events[1].Kind)
	assert.NotEmpty(t, events[0].RequestID)
	assert.NotEqual(t, events[0].RequestID, events[1].RequestID)

	// New data means a new snapshot version and therefore a fresh computation.
	env.src.records = env.src.records[:1]
	_, err := env.store.Refresh(context.Background())
	require.NoError(t, err)
	third := env.do(t, http.MethodGet, target)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, lookups("miss"))
	res := decode[models.DailyResult](t, third)
	assert.Equal(t, 0, res.Days[4].BookedHeld)
}

func TestOpportunitiesQueryLogCarriesCapacity(t *testing.T) {
	env := newTestEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/availability/opportunities?start=2025-01-01&end=2025-03-31&today=2025-01-01&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[models.Ranking](t, rec)
	assert.Equal(t, 10, res.Capacity)
	assert.False(t, res.ZeroCapacity)

	events := env.log.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "opportunities", events[0].Kind)
	assert.Equal(t, int32(10), events[0].Capacity)
	assert.False(t, events[0].ZeroCapacity)
}

func TestGapsHandlerWithPreset(t *testing.T) {
	env := newTestEnv(t, true)

	// Server date is 2025-01-01, so next30 covers Jan 1 through Jan 30.
	rec := env.do(t, http.MethodGet, "/api/availability/gaps?preset=next30&min_available=6&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.GapResult](t, rec)
	assert.Equal(t, "2025-01-30", res.Query.End.String())
	require.Len(t, res.Gaps, 1)
	g := res.Gaps[0]
	assert.Equal(t, "2025-01-11", g.Start.String())
	assert.Equal(t, "2025-01-30", g.End.String())
	assert.Equal(t, 20, g.Days)
	assert.Equal(t, 10, g.AvgAvailable)
	assert.Equal(t, models.GapShortTerm, g.Class)
	assert.Len(t, res.Longest, 1)
	assert.Len(t, res.Soonest, 1)
}

func TestBucketsHandler(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/availability/buckets?start=2025-01-06&end=2025-01-19&granularity=week&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.AggregateResult](t, rec)
	require.Len(t, res.Buckets, 2)
	assert.Equal(t, "2025-01-06", res.Buckets[0].Period.String())
	assert.Equal(t, "2025-01-13", res.Buckets[1].Period.String())
	assert.Equal(t, 3, res.Buckets[0].MinAvailable)
	assert.Equal(t, 10, res.Buckets[1].MinAvailable)
}

func TestOpportunitiesHandler(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/availability/opportunities?start=2025-01-01&end=2025-03-31&today=2025-01-01")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.Ranking](t, rec)
	assert.Len(t, res.Media, 2)
	assert.Len(t, res.Markets, 2)
	assert.NotEmpty(t, res.Recommendations)
	assert.Equal(t, "2025-01-01", res.Query.Today.String())
}

func TestHealthAndReload(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.Bookings)
	require.NotEmpty(t, health.Snapshot)

	env.src.records = append(env.src.records, models.BookingRecord{
		ID: "4", Market: "San Diego", Product: "Poster", StartDate: "2025-02-01", Quantity: 1,
	}, models.BookingRecord{ID: "5", StartDate: "not a date"})
	rec = env.do(t, http.MethodPost, "/reload")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reloaded := decode[ReloadResponse](t, rec)
	assert.Equal(t, 5, reloaded.Records)
	assert.Equal(t, 1, reloaded.Discarded)
	assert.Equal(t, 4, reloaded.Bookings)
	assert.NotEqual(t, health.Snapshot, reloaded.Snapshot)

	env.src.err = errors.New("database down")
	rec = env.do(t, http.MethodPost, "/reload")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "reload_failed", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reloaded.Snapshot, decode[HealthResponse](t, rec).Snapshot)
}

func TestReloadRequiresPost(t *testing.T) {
	env := newTestEnv(t, true)
	rec := env.do(t, http.MethodGet, "/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQueryEndpointsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, true)
	env.server.Limiter = ratelimit.NewClientLimiter(ratelimit.Config{Capacity: 1, RefillRate: 0, Enabled: true}, env.metrics)
	r := mux.NewRouter()
	env.server.RegisterRoutes(r)
	env.handler = r

	rec := env.do(t, http.MethodGet, "/api/availability/daily?start=2025-01-01&end=2025-01-02&"+laDigital)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/availability/gaps?start=2025-01-01&end=2025-01-31&"+laDigital)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health and reload stay outside the limiter.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health").Code)
	assert.Equal(t, 1, env.metrics.Count(func(m *observability.MockMetricsRegistry) int { return m.RateLimit["limited"] }))
}
