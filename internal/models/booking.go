package models

// BookingRecord is a raw booking row as supplied by the loading collaborator
// (Postgres, a JSON export, or a caller). Dates are kept as text because the
// upstream sheets are inconsistent; they are parsed exactly once, by
// availability.Normalize.
type BookingRecord struct {
	ID         string  `json:"id"`
	Market     string  `json:"market"`
	Product    string  `json:"product"`    // media type label, e.g. "Digital Bulletin"
	StartDate  string  `json:"start_date"` // required
	EndDate    string  `json:"end_date"`   // optional, defaults to StartDate
	Quantity   float64 `json:"quantity"`   // faces booked, non-negative
	Stage      string  `json:"stage"`      // free-text lifecycle stage, e.g. "Contracted", "On Hold"
	Advertiser string  `json:"advertiser"` // advertiser or campaign name
}

// Interval is the canonical form of a booking: an inclusive calendar span
// with a quantity and the tags used for filtering and manifests.
type Interval struct {
	ID       string `json:"id"`
	Start    Date   `json:"start"`
	End      Date   `json:"end"`
	Quantity int    `json:"quantity"`
	Market   string `json:"market"`
	Product  string `json:"product"`
	Stage    string `json:"stage"`
	Campaign string `json:"campaign"`
	Held     bool   `json:"held"`
}

// Contains reports whether d falls within the interval, both ends inclusive.
func (iv Interval) Contains(d Date) bool {
	return !d.Before(iv.Start) && !d.After(iv.End)
}

// Overlaps reports whether the interval shares at least one day with [start, end].
func (iv Interval) Overlaps(start, end Date) bool {
	return !iv.Start.After(end) && !iv.End.Before(start)
}
