package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/middleware"
)

// ReloadResponse describes the snapshot installed by a reload.
type ReloadResponse struct {
	Snapshot  string `json:"snapshot"`
	Records   int    `json:"records"`
	Discarded int    `json:"discarded"`
	Bookings  int    `json:"bookings"`
}

// ReloadHandler refreshes the booking snapshot from its source. Concurrent
// calls are serialized; a failed reload keeps the previous snapshot.
func (s *Server) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "reload"
	const method = "POST"

	logger := middleware.LoggerFromRequest(r, s.Logger)
	status := http.StatusOK
	defer func() {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	}()

	if s.Snapshots == nil {
		status = writeError(w, errors.New("no snapshot source configured"))
		return
	}

	s.reloadMu.Lock()
	snap, err := s.Snapshots.Refresh(r.Context())
	s.reloadMu.Unlock()
	if err != nil {
		logger.Error("reload failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		writeJSON(w, status, ErrorResponse{Code: "reload_failed", Message: err.Error()})
		return
	}

	logger.Info("snapshot reloaded", zap.String("version", snap.Version))
	writeJSON(w, status, ReloadResponse{
		Snapshot:  snap.Version,
		Records:   snap.Records,
		Discarded: snap.Discarded,
		Bookings:  len(snap.Intervals),
	})
}
