package availability

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// ErrMalformedRecord marks a booking that cannot take part in aggregation.
var ErrMalformedRecord = errors.New("malformed booking record")

// MaxQuantity is the largest unit count a single booking may carry.
const MaxQuantity = math.MaxInt32

// Normalize converts a raw booking into an Interval. A missing or unparsable
// end date collapses to the start date, as does an end before the start.
// Records with an unparsable start or a quantity that is not a finite number
// in [0, MaxQuantity] return an error wrapping ErrMalformedRecord.
func Normalize(rec models.BookingRecord) (models.Interval, error) {
	start, err := models.ParseDate(rec.StartDate)
	if err != nil {
		return models.Interval{}, fmt.Errorf("%w: start date: %v", ErrMalformedRecord, err)
	}
	if math.IsNaN(rec.Quantity) || math.IsInf(rec.Quantity, 0) || rec.Quantity < 0 || rec.Quantity > MaxQuantity {
		return models.Interval{}, fmt.Errorf("%w: quantity %v", ErrMalformedRecord, rec.Quantity)
	}

	end := start
	if strings.TrimSpace(rec.EndDate) != "" {
		if parsed, err := models.ParseDate(rec.EndDate); err == nil && !parsed.Before(start) {
			end = parsed
		}
	}

	return models.Interval{
		ID:       rec.ID,
		Start:    start,
		End:      end,
		Quantity: int(math.Round(rec.Quantity)),
		Market:   strings.TrimSpace(rec.Market),
		Product:  strings.TrimSpace(rec.Product),
		Stage:    strings.TrimSpace(rec.Stage),
		Campaign: strings.TrimSpace(rec.Advertiser),
		Held:     ClassifyStage(rec.Stage) == StageHeld,
	}, nil
}

// NormalizeAll normalizes every record, dropping malformed ones. It returns
// the surviving intervals in input order and the number discarded.
func NormalizeAll(records []models.BookingRecord, logger *zap.Logger) ([]models.Interval, int) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]models.Interval, 0, len(records))
	discarded := 0
	for _, rec := range records {
		iv, err := Normalize(rec)
		if err != nil {
			discarded++
			logger.Debug("discarding booking record",
				zap.String("id", rec.ID),
				zap.Error(err))
			continue
		}
		if reversedEnd(rec, iv) {
			logger.Debug("booking end precedes start, using start date",
				zap.String("id", rec.ID),
				zap.String("start_date", rec.StartDate),
				zap.String("end_date", rec.EndDate))
		}
		out = append(out, iv)
	}
	return out, discarded
}

// reversedEnd reports whether rec carried a parsable end date that Normalize
// collapsed because it fell before the start.
func reversedEnd(rec models.BookingRecord, iv models.Interval) bool {
	end, err := models.ParseDate(rec.EndDate)
	return err == nil && end.Before(iv.Start)
}

// Selector decides which intervals belong to a market and media selection.
type Selector interface {
	MatchMarket(selector, market string) bool
	MatchMedia(selector, product string) bool
}

// FilterIntervals keeps intervals that match the market and media selectors
// and, when includeHolds is false, drops held bookings.
func FilterIntervals(intervals []models.Interval, sel Selector, market, media string, includeHolds bool) []models.Interval {
	out := make([]models.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !includeHolds && iv.Held {
			continue
		}
		if !sel.MatchMarket(market, iv.Market) || !sel.MatchMedia(media, iv.Product) {
			continue
		}
		out = append(out, iv)
	}
	return out
}
