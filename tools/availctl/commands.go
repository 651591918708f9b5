package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

// options holds the flags shared by every query command.
type options struct {
	bookings     string
	baseline     string
	start        string
	end          string
	preset       string
	today        string
	market       string
	media        string
	excludeHolds bool
	minAvailable int
	granularity  string
	capacity     int
	format       string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "availctl",
		Short:         "Query out-of-home inventory availability from booking exports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.bookings, "bookings", "", "JSON file with an array of booking records (required)")
	f.StringVar(&opts.baseline, "baseline", "", "YAML file with capacity, groups and reach tables")
	f.StringVar(&opts.start, "start", "", "first day of the range (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "last day of the range (YYYY-MM-DD)")
	f.StringVar(&opts.preset, "preset", "", "relative range: next30, next90, quarter or year")
	f.StringVar(&opts.today, "today", "", "reference date for presets and recommendations (default: local date)")
	f.StringVar(&opts.market, "market", models.All, "market, region group or ALL")
	f.StringVar(&opts.media, "media", models.All, "media type, category group or ALL")
	f.BoolVar(&opts.excludeHolds, "exclude-holds", false, "ignore bookings in a hold or pending stage")
	f.IntVar(&opts.minAvailable, "min-available", 1, "free units required for a day to count toward a gap")
	f.StringVar(&opts.granularity, "granularity", "", "day, week, month or year")
	f.IntVar(&opts.capacity, "capacity", -1, "capacity override; negative uses the baseline")
	f.StringVarP(&opts.format, "output", "o", "json", "output format: json or table")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log discarded records and query details to stderr")
	_ = root.MarkPersistentFlagRequired("bookings")

	root.AddCommand(
		newQueryCmd(opts, availability.KindDaily, "Per-day utilization", runDaily),
		newQueryCmd(opts, availability.KindBuckets, "Utilization rolled up by week, month or year", runBuckets),
		newQueryCmd(opts, availability.KindGaps, "Windows of seven or more days with free inventory", runGaps),
		newQueryCmd(opts, availability.KindOpportunities, "Ranked sales opportunities", runOpportunities),
	)
	return root
}

type runner func(ctx context.Context, w io.Writer, e *availability.Engine, snap *availability.Snapshot, q models.AvailabilityQuery, format string) error

func newQueryCmd(opts *options, name, short string, run runner) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "json" && opts.format != "table" {
				return fmt.Errorf("unknown output format %q", opts.format)
			}
			logger := zap.NewNop()
			if opts.verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				logger = l
			}

			engine, snap, err := load(opts, logger)
			if err != nil {
				return err
			}
			q, err := opts.query(time.Now())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), engine, snap, q, opts.format)
		},
	}
}

// load reads the bookings and tables and builds a snapshot.
func load(opts *options, logger *zap.Logger) (*availability.Engine, *availability.Snapshot, error) {
	data, err := os.ReadFile(opts.bookings)
	if err != nil {
		return nil, nil, fmt.Errorf("reading bookings: %w", err)
	}
	var records []models.BookingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("parsing bookings %s: %w", opts.bookings, err)
	}

	baseline := inventory.DefaultBaseline()
	model := reach.DefaultModel()
	if opts.baseline != "" {
		b, err := inventory.LoadFile(opts.baseline)
		if err != nil {
			return nil, nil, err
		}
		baseline = b.Merge(baseline)
		if model, err = reach.LoadFile(opts.baseline); err != nil {
			return nil, nil, err
		}
	}

	store := db.NewSnapshotStore(nil, baseline, 0, db.BreakerSettings{}, logger, nil)
	snap, err := store.Set(records, inventory.Baseline{})
	if err != nil {
		return nil, nil, err
	}
	return availability.NewEngine(model, logger, nil), snap, nil
}

func (o *options) query(now time.Time) (models.AvailabilityQuery, error) {
	q := models.AvailabilityQuery{
		Market:       o.market,
		MediaType:    o.media,
		IncludeHolds: !o.excludeHolds,
		MinAvailable: o.minAvailable,
		Granularity:  models.Granularity(strings.ToLower(o.granularity)),
		Today:        models.DateOf(now),
	}
	if o.capacity >= 0 {
		c := o.capacity
		q.CapacityOverride = &c
	}
	if o.today != "" {
		d, err := models.ParseDate(o.today)
		if err != nil {
			return q, fmt.Errorf("--today: %w", err)
		}
		q.Today = d
	}

	var err error
	switch {
	case o.preset != "":
		if o.start != "" || o.end != "" {
			return q, fmt.Errorf("--preset cannot be combined with --start or --end")
		}
		q.Start, q.End, err = availability.PresetRange(o.preset, q.Today)
		return q, err
	case o.start == "" || o.end == "":
		return q, fmt.Errorf("--start and --end are required unless --preset is given")
	}
	if q.Start, err = models.ParseDate(o.start); err != nil {
		return q, fmt.Errorf("--start: %w", err)
	}
	if q.End, err = models.ParseDate(o.end); err != nil {
		return q, fmt.Errorf("--end: %w", err)
	}
	return q, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDaily(ctx context.Context, w io.Writer, e *availability.Engine, snap *availability.Snapshot, q models.AvailabilityQuery, format string) error {
	res, err := e.Daily(ctx, snap, q)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tCAPACITY\tCONFIRMED\tHELD\tAVAILABLE\tUTIL%%\tSTATUS\n")
	for _, d := range res.Days {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.1f\t%s\n", d.Date, d.Capacity, d.BookedConfirmed, d.BookedHeld, d.Available, d.UtilizationPct, d.Status)
	}
	fmt.Fprintf(tw, "\nAVG UTIL %.1f%%\tPEAK %d\tMIN AVAILABLE %d\tDISCARDED %d\n",
		res.Summary.AvgUtilizationPct, res.Summary.PeakBooked, res.Summary.MinAvailable, res.Discarded)
	return tw.Flush()
}

func runBuckets(ctx context.Context, w io.Writer, e *availability.Engine, snap *availability.Snapshot, q models.AvailabilityQuery, format string) error {
	res, err := e.Aggregate(ctx, snap, q)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PERIOD\tSTART\tEND\tAVG BOOKED\tPEAK\tMIN AVAILABLE\tUTIL%%\tSTATUS\tCAMPAIGNS\n")
	for _, b := range res.Buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%d\t%d\t%.1f\t%s\t%d\n", b.Period, b.Start, b.End, b.AvgBooked, b.PeakBooked, b.MinAvailable, b.AvgUtilizationPct, b.Status, len(b.Campaigns))
	}
	return tw.Flush()
}

func runGaps(ctx context.Context, w io.Writer, e *availability.Engine, snap *availability.Snapshot, q models.AvailabilityQuery, format string) error {
	res, err := e.Gaps(ctx, snap, q)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "START\tEND\tDAYS\tAVG AVAILABLE\tCLASS\n")
	for _, g := range res.Longest {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", g.Start, g.End, g.Days, g.AvgAvailable, g.Class)
	}
	return tw.Flush()
}

func runOpportunities(ctx context.Context, w io.Writer, e *availability.Engine, snap *availability.Snapshot, q models.AvailabilityQuery, format string) error {
	res, err := e.Opportunities(ctx, snap, q)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CATEGORY\tTARGET\tWINDOW\tSCORE\tREACH\tUNITS\n")
	for _, o := range res.Recommendations {
		target := o.MediaType
		if o.Market != "" {
			target = o.Market
		}
		window := "-"
		if o.Gap != nil {
			window = fmt.Sprintf("%s..%s (%dd)", o.Gap.Start, o.Gap.End, o.Gap.Days)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%d\t%d\n", o.Category, target, window, o.Metrics.AvailabilityScore, o.Metrics.EstimatedReach, o.Metrics.AvailableUnits)
	}
	return tw.Flush()
}
