package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/models"
)

// defaultMinAvailable is the gap threshold when min_available is omitted.
const defaultMinAvailable = 1

// paramError is a malformed or missing query parameter.
type paramError struct {
	param string
	msg   string
}

func (e *paramError) Error() string { return e.param + ": " + e.msg }

// parseQuery reads an AvailabilityQuery from URL parameters. Either preset
// or both start and end must be given. today falls back to the server date.
func parseQuery(r *http.Request, serverToday models.Date) (models.AvailabilityQuery, error) {
	v := r.URL.Query()
	q := models.AvailabilityQuery{
		Market:       strings.TrimSpace(v.Get("market")),
		MediaType:    strings.TrimSpace(v.Get("media")),
		IncludeHolds: true,
		MinAvailable: defaultMinAvailable,
		Granularity:  models.Granularity(strings.ToLower(strings.TrimSpace(v.Get("granularity")))),
		Today:        serverToday,
	}

	if s := v.Get("today"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return q, &paramError{"today", err.Error()}
		}
		q.Today = d
	}

	preset := strings.ToLower(strings.TrimSpace(v.Get("preset")))
	start, end := v.Get("start"), v.Get("end")
	switch {
	case preset != "" && (start != "" || end != ""):
		return q, &paramError{"preset", "cannot be combined with start or end"}
	case preset != "":
		s, e, err := availability.PresetRange(preset, q.Today)
		if err != nil {
			return q, &paramError{"preset", err.Error()}
		}
		q.Start, q.End = s, e
	default:
		if start == "" || end == "" {
			return q, &paramError{"start", "start and end are required unless preset is given"}
		}
		var err error
		if q.Start, err = models.ParseDate(start); err != nil {
			return q, &paramError{"start", err.Error()}
		}
		if q.End, err = models.ParseDate(end); err != nil {
			return q, &paramError{"end", err.Error()}
		}
	}

	if s := v.Get("holds"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, &paramError{"holds", fmt.Sprintf("not a boolean: %q", s)}
		}
		q.IncludeHolds = b
	}
	if s := v.Get("min_available"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, &paramError{"min_available", fmt.Sprintf("not an integer: %q", s)}
		}
		q.MinAvailable = n
	}
	if s := v.Get("capacity"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, &paramError{"capacity", fmt.Sprintf("not a non-negative integer: %q", s)}
		}
		q.CapacityOverride = &n
	}
	return q, nil
}
