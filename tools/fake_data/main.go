package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/config"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
)

var (
	bookingCount = flag.Int("bookings", 400, "number of booking records to generate")
	days         = flag.Int("days", 365, "spread bookings over this many days from --from")
	from         = flag.String("from", "", "first possible flight date (default: today)")
	badRatio     = flag.Float64("bad", 0.02, "fraction of records written with malformed dates or quantities")
	clearFirst   = flag.Bool("clear", false, "delete existing bookings first")
	seedBaseline = flag.Bool("baseline", true, "write the built-in capacity table and groups")
	seed         = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	skipReload   = flag.Bool("skip-reload", false, "skip automatic reload after data insertion")
)

var (
	advertisers = []string{
		"Acme Motors", "Sunrise Bank", "Pacific Wireless", "Desert Health", "Golden Coast Realty",
		"Bay Streaming", "Neon Casinos", "Summit Insurance", "Harbor Airlines", "Vista Grocers",
	}
	stages = []string{
		"Contracted", "Contracted", "Contracted", "Proposal Signed", "Live",
		"On Hold", "Pending Approval", "Tentative", "HOLD - 2nd",
	}
	flightLengths = []int{7, 14, 28, 28, 56, 84}
)

func main() {
	flag.Parse()

	logger, err := observability.InitLoggerWithService("fake-data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	start := models.DateOf(time.Now())
	if *from != "" {
		if start, err = models.ParseDate(*from); err != nil {
			logger.Fatal("parse --from", zap.Error(err))
		}
	}

	cfg := config.Load()
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx := context.Background()
	baseline := inventory.DefaultBaseline()

	if *seedBaseline {
		if err := writeBaseline(ctx, pg, baseline); err != nil {
			logger.Fatal("write baseline", zap.Error(err))
		}
	}
	if *clearFirst {
		if err := pg.ClearBookings(ctx); err != nil {
			logger.Fatal("clear bookings", zap.Error(err))
		}
	}

	r := rand.New(rand.NewSource(*seed))
	written := 0
	for i := 0; i < *bookingCount; i++ {
		rec := randomBooking(r, baseline, start, i)
		if r.Float64() < *badRatio {
			corrupt(r, &rec)
		}
		if err := pg.UpsertBooking(ctx, rec); err != nil {
			logger.Fatal("insert booking", zap.Error(err))
		}
		written++
	}

	logger.Info("fake data inserted", zap.Int("bookings", written), zap.Int64("seed", *seed))
	fmt.Printf("%d bookings inserted\n", written)

	if !*skipReload {
		if err := callReloadEndpoint(&cfg); err != nil {
			logger.Error("reload endpoint failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Warning: failed to reload server data: %v\n", err)
		} else {
			fmt.Println("server data reloaded")
		}
	}
}

func writeBaseline(ctx context.Context, pg *db.Postgres, b inventory.Baseline) error {
	for market, media := range b.Markets {
		for mt, units := range media {
			if err := pg.UpsertCapacity(ctx, inventory.Row{Market: market, MediaType: mt, Units: units}); err != nil {
				return err
			}
		}
	}
	for name, members := range b.Regions {
		if err := pg.UpsertGroup(ctx, db.GroupRegion, name, members); err != nil {
			return err
		}
	}
	for name, keywords := range b.Categories {
		if err := pg.UpsertGroup(ctx, db.GroupCategory, name, keywords); err != nil {
			return err
		}
	}
	return nil
}

// randomBooking picks a (market, media) pair from the baseline and books a
// fraction of its capacity for one flight.
func randomBooking(r *rand.Rand, b inventory.Baseline, start models.Date, n int) models.BookingRecord {
	markets := sortedKeys(b.Markets)
	market := markets[r.Intn(len(markets))]
	media := sortedKeys(b.Markets[market])
	mt := media[r.Intn(len(media))]

	flightStart := start.AddDays(r.Intn(*days))
	flight := flightLengths[r.Intn(len(flightLengths))]
	units := b.Markets[market][mt]
	qty := 1 + r.Intn(max(1, units/4))

	rec := models.BookingRecord{
		ID:         fmt.Sprintf("FAKE-%06d", n),
		Market:     market,
		Product:    mt,
		StartDate:  flightStart.String(),
		EndDate:    flightStart.AddDays(flight - 1).String(),
		Quantity:   float64(qty),
		Stage:      stages[r.Intn(len(stages))],
		Advertiser: advertisers[r.Intn(len(advertisers))],
	}
	// Sheets exported by hand mix US-style dates into the feed.
	if r.Intn(5) == 0 {
		t := flightStart.Time()
		rec.StartDate = t.Format("1/2/2006")
	}
	if r.Intn(10) == 0 {
		rec.EndDate = ""
	}
	return rec
}

func corrupt(r *rand.Rand, rec *models.BookingRecord) {
	switch r.Intn(3) {
	case 0:
		rec.StartDate = "TBD"
	case 1:
		rec.Quantity = -rec.Quantity
	default:
		rec.StartDate, rec.EndDate = rec.EndDate, rec.StartDate
		if rec.StartDate == "" {
			rec.StartDate = "n/a"
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func callReloadEndpoint(cfg *config.Config) error {
	reloadURL := fmt.Sprintf("http://localhost:%s/reload", cfg.Port)
	req, err := http.NewRequest(http.MethodPost, reloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
