package api

import (
	"net/http"
	"strconv"
	"time"
)

// HealthResponse reports the loaded snapshot.
type HealthResponse struct {
	Status   string     `json:"status"`
	Snapshot string     `json:"snapshot,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	Bookings int        `json:"bookings"`
	Breaker  string     `json:"breaker,omitempty"`
}

// HealthHandler responds 200 once a snapshot is loaded and 503 before.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"
	const method = "GET"

	resp := HealthResponse{Status: "starting"}
	status := http.StatusServiceUnavailable
	if s.Snapshots != nil {
		resp.Breaker = s.Snapshots.BreakerState()
		if snap, err := s.Snapshots.Current(); err == nil {
			resp.Status = "ok"
			resp.Snapshot = snap.Version
			loaded := snap.LoadedAt
			resp.LoadedAt = &loaded
			resp.Bookings = len(snap.Intervals)
			status = http.StatusOK
		}
	}
	writeJSON(w, status, resp)

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
