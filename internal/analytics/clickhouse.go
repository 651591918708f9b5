package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// QueryLog records served availability queries for later analysis.
// Implementations return ErrUnavailable when no storage is configured.
type QueryLog interface {
	RecordQuery(ctx context.Context, ev QueryEvent) error
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB *sql.DB
}

var _ QueryLog = (*Analytics)(nil)

// QueryEvent mirrors a row in the availability_queries table.
type QueryEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
	Kind            string    `json:"kind"`
	SnapshotVersion string    `json:"snapshot_version"`
	Market          string    `json:"market"`
	MediaType       string    `json:"media_type"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	Granularity     string    `json:"granularity"`
	IncludeHolds    bool      `json:"include_holds"`
	MinAvailable    int32     `json:"min_available"`
	Capacity        int32     `json:"capacity"`
	ZeroCapacity    bool      `json:"zero_capacity"`
	Cached          bool      `json:"cached"`
	DurationMs      float64   `json:"duration_ms"`
}

// NewQueryEvent fills the query columns of an event from q.
func NewQueryEvent(kind, requestID, version string, q models.AvailabilityQuery) QueryEvent {
	return QueryEvent{
		Timestamp:       time.Now().UTC(),
		RequestID:       requestID,
		Kind:            kind,
		SnapshotVersion: version,
		Market:          q.Market,
		MediaType:       q.MediaType,
		StartDate:       q.Start.String(),
		EndDate:         q.End.String(),
		Granularity:     string(q.Granularity),
		IncludeHolds:    q.IncludeHolds,
		MinAvailable:    int32(q.MinAvailable),
	}
}

// InitClickHouse connects to ClickHouse and ensures the query table exists.
func InitClickHouse(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS availability_queries (
       timestamp        DateTime,
       request_id       String,
       kind             LowCardinality(String),
       snapshot_version String,
       market           String,
       media_type       String,
       start_date       String,
       end_date         String,
       granularity      LowCardinality(String),
       include_holds    Bool,
       min_available    Int32,
       capacity         Int32,
       zero_capacity    Bool,
       cached           Bool,
       duration_ms      Float64
   ) ENGINE=MergeTree() ORDER BY (kind, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db}, nil
}

// RecordQuery inserts one row into availability_queries.
func (a *Analytics) RecordQuery(ctx context.Context, ev QueryEvent) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	stmt := `INSERT INTO availability_queries (timestamp, request_id, kind, snapshot_version, market, media_type, start_date, end_date, granularity, include_holds, min_available, capacity, zero_capacity, cached, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.DB.ExecContext(ctx, stmt,
		ev.Timestamp, ev.RequestID, ev.Kind, ev.SnapshotVersion, ev.Market, ev.MediaType,
		ev.StartDate, ev.EndDate, ev.Granularity, ev.IncludeHolds, ev.MinAvailable,
		ev.Capacity, ev.ZeroCapacity, ev.Cached, ev.DurationMs); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("kind", ev.Kind))
		return fmt.Errorf("insert %s query: %w", ev.Kind, err)
	}
	return nil
}

// RecentQueries returns the newest logged queries, optionally limited to one kind.
func (a *Analytics) RecentQueries(ctx context.Context, kind string, limit int) ([]QueryEvent, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT timestamp, request_id, kind, snapshot_version, market, media_type, start_date, end_date, granularity, include_holds, min_available, capacity, zero_capacity, cached, duration_ms FROM availability_queries`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := a.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query availability log: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var events []QueryEvent
	for rows.Next() {
		var ev QueryEvent
		if err := rows.Scan(&ev.Timestamp, &ev.RequestID, &ev.Kind, &ev.SnapshotVersion, &ev.Market, &ev.MediaType,
			&ev.StartDate, &ev.EndDate, &ev.Granularity, &ev.IncludeHolds, &ev.MinAvailable,
			&ev.Capacity, &ev.ZeroCapacity, &ev.Cached, &ev.DurationMs); err != nil {
			return nil, fmt.Errorf("scan query event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// Close terminates the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
