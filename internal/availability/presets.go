package availability

import (
	"fmt"
	"time"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// Relative range presets.
const (
	PresetNext30  = "next30"
	PresetNext90  = "next90"
	PresetQuarter = "quarter"
	PresetYear    = "year"
)

// PresetRange resolves a named preset relative to today. Both ends are
// inclusive. "quarter" and "year" run from today to the end of the current
// calendar quarter or year.
func PresetRange(preset string, today models.Date) (start, end models.Date, err error) {
	if today.IsZero() {
		return models.Date{}, models.Date{}, fmt.Errorf("preset %q needs a reference date", preset)
	}
	switch preset {
	case PresetNext30:
		return today, today.AddDays(29), nil
	case PresetNext90:
		return today, today.AddDays(89), nil
	case PresetQuarter:
		firstMonth := time.Month((int(today.Month())-1)/3*3 + 1)
		nextQuarter := models.NewDate(today.Year(), firstMonth+3, 1)
		return today, nextQuarter.AddDays(-1), nil
	case PresetYear:
		return today, models.NewDate(today.Year(), time.December, 31), nil
	default:
		return models.Date{}, models.Date{}, fmt.Errorf("unknown preset %q", preset)
	}
}
