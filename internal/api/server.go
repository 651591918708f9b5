package api

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/analytics"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/config"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/ratelimit"
)

var tracer = otel.Tracer("api")

// Snapshots is the part of db.SnapshotStore the handlers use.
type Snapshots interface {
	Current() (*availability.Snapshot, error)
	Refresh(ctx context.Context) (*availability.Snapshot, error)
	BreakerState() string
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger    *zap.Logger
	Engine    *availability.Engine
	Snapshots Snapshots
	Metrics   observability.MetricsRegistry
	Config    config.Config

	// Cache is nil when result caching is disabled.
	Cache    *db.RedisStore
	CacheTTL time.Duration
	// QueryLog is nil when query logging is disabled.
	QueryLog analytics.QueryLog
	// Limiter throttles the query endpoints per client when set.
	Limiter *ratelimit.ClientLimiter

	// Now returns the server clock; "today" defaults to its date.
	Now func() time.Time

	reloadMu sync.Mutex
}

// NewServer constructs a Server. cache and queryLog may be nil.
func NewServer(logger *zap.Logger, engine *availability.Engine, snapshots Snapshots, cache *db.RedisStore, queryLog analytics.QueryLog, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if engine == nil {
		engine = availability.NewEngine(nil, logger, metrics)
	}
	s := &Server{
		Logger:    logger,
		Engine:    engine,
		Snapshots: snapshots,
		QueryLog:  queryLog,
		Metrics:   metrics,
		Config:    cfg,
		Now:       time.Now,
	}
	if cfg.CacheEnabled && cache != nil {
		s.Cache = cache
		s.CacheTTL = cfg.CacheTTL
	}
	return s
}

// RegisterRoutes mounts the availability API, health and reload endpoints on r.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.HandleFunc("/reload", s.ReloadHandler).Methods("POST")

	avail := r.PathPrefix("/api/availability").Subrouter()
	if s.Limiter != nil {
		avail.Use(s.Limiter.Middleware)
	}
	avail.HandleFunc("/daily", s.DailyHandler).Methods("GET")
	avail.HandleFunc("/buckets", s.BucketsHandler).Methods("GET")
	avail.HandleFunc("/gaps", s.GapsHandler).Methods("GET")
	avail.HandleFunc("/opportunities", s.OpportunitiesHandler).Methods("GET")
}

func (s *Server) today() models.Date {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return models.DateOf(now())
}
