package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// Group kinds stored in market_groups.
const (
	GroupRegion   = "region"
	GroupCategory = "category"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist. Booking dates
// are TEXT because upstream sheets are synced verbatim and parsed later.
const schemaSQL = `CREATE TABLE IF NOT EXISTS booking_records (
    id TEXT PRIMARY KEY,
    market TEXT NOT NULL DEFAULT '',
    product TEXT NOT NULL DEFAULT '',
    start_date TEXT,
    end_date TEXT,
    quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
    stage TEXT,
    advertiser TEXT,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS capacity_baseline (
    market TEXT NOT NULL,
    media_type TEXT NOT NULL,
    units INT NOT NULL CHECK (units >= 0),
    PRIMARY KEY (market, media_type)
);

CREATE TABLE IF NOT EXISTS market_groups (
    name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('region', 'category')),
    members TEXT[] NOT NULL,
    PRIMARY KEY (name, kind)
);

CREATE INDEX IF NOT EXISTS idx_booking_records_market ON booking_records (market);
CREATE INDEX IF NOT EXISTS idx_booking_records_product ON booking_records (product);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadBookings reads every booking row. Nothing is validated here; malformed
// rows are dropped later by normalization and counted.
func (p *Postgres) LoadBookings(ctx context.Context) ([]models.BookingRecord, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, market, product, start_date, end_date, quantity, stage, advertiser FROM booking_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query booking records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.BookingRecord
	for rows.Next() {
		var rec models.BookingRecord
		var start, end, stage, advertiser sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Market, &rec.Product, &start, &end, &rec.Quantity, &stage, &advertiser); err != nil {
			return nil, fmt.Errorf("scan booking record: %w", err)
		}
		rec.StartDate = start.String
		rec.EndDate = end.String
		rec.Stage = stage.String
		rec.Advertiser = advertiser.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// LoadBaselineRows reads the capacity table.
func (p *Postgres) LoadBaselineRows(ctx context.Context) ([]inventory.Row, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT market, media_type, units FROM capacity_baseline ORDER BY market, media_type`)
	if err != nil {
		return nil, fmt.Errorf("query capacity baseline: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []inventory.Row
	for rows.Next() {
		var r inventory.Row
		if err := rows.Scan(&r.Market, &r.MediaType, &r.Units); err != nil {
			return nil, fmt.Errorf("scan capacity row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// LoadGroups reads region and category definitions.
func (p *Postgres) LoadGroups(ctx context.Context) (regions, categories map[string][]string, err error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT name, kind, members FROM market_groups ORDER BY kind, name`)
	if err != nil {
		return nil, nil, fmt.Errorf("query market groups: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	regions = make(map[string][]string)
	categories = make(map[string][]string)
	for rows.Next() {
		var name, kind string
		var members []string
		if err := rows.Scan(&name, &kind, pq.Array(&members)); err != nil {
			return nil, nil, fmt.Errorf("scan market group: %w", err)
		}
		switch kind {
		case GroupRegion:
			regions[name] = members
		case GroupCategory:
			categories[name] = members
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}
	return regions, categories, nil
}

// LoadBaseline assembles the capacity table and groups. Empty sections are
// left empty for the caller to merge with defaults.
func (p *Postgres) LoadBaseline(ctx context.Context) (inventory.Baseline, error) {
	rows, err := p.LoadBaselineRows(ctx)
	if err != nil {
		return inventory.Baseline{}, err
	}
	regions, categories, err := p.LoadGroups(ctx)
	if err != nil {
		return inventory.Baseline{}, err
	}
	b := inventory.FromRows(rows)
	b.Regions = regions
	b.Categories = categories
	return b, nil
}

// UpsertBooking inserts or replaces a booking row.
func (p *Postgres) UpsertBooking(ctx context.Context, rec models.BookingRecord) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO booking_records (id, market, product, start_date, end_date, quantity, stage, advertiser)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET market=EXCLUDED.market, product=EXCLUDED.product, start_date=EXCLUDED.start_date,
    end_date=EXCLUDED.end_date, quantity=EXCLUDED.quantity, stage=EXCLUDED.stage, advertiser=EXCLUDED.advertiser,
    updated_at=CURRENT_TIMESTAMP`,
		rec.ID, rec.Market, rec.Product, nullIfEmpty(rec.StartDate), nullIfEmpty(rec.EndDate), rec.Quantity, rec.Stage, rec.Advertiser)
	if err != nil {
		return fmt.Errorf("upsert booking %s: %w", rec.ID, err)
	}
	return nil
}

// UpsertCapacity sets the unit count for one (market, media type) pair.
func (p *Postgres) UpsertCapacity(ctx context.Context, r inventory.Row) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO capacity_baseline (market, media_type, units) VALUES ($1,$2,$3)
ON CONFLICT (market, media_type) DO UPDATE SET units=EXCLUDED.units`, r.Market, r.MediaType, r.Units)
	if err != nil {
		return fmt.Errorf("upsert capacity %s/%s: %w", r.Market, r.MediaType, err)
	}
	return nil
}

// UpsertGroup stores a region or category definition.
func (p *Postgres) UpsertGroup(ctx context.Context, kind, name string, members []string) error {
	if kind != GroupRegion && kind != GroupCategory {
		return fmt.Errorf("unknown group kind %q", kind)
	}
	_, err := p.DB.ExecContext(ctx, `INSERT INTO market_groups (name, kind, members) VALUES ($1,$2,$3)
ON CONFLICT (name, kind) DO UPDATE SET members=EXCLUDED.members`, name, kind, pq.Array(members))
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", kind, name, err)
	}
	return nil
}

// ClearBookings deletes every booking row.
func (p *Postgres) ClearBookings(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM booking_records`); err != nil {
		return fmt.Errorf("clear bookings: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
