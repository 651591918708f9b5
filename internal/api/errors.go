package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, availability.ErrInvalidQuery),
		errors.Is(err, availability.ErrEmptyRange),
		errors.Is(err, availability.ErrInvalidGranularity),
		errors.Is(err, availability.ErrNegativeThreshold):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, db.ErrNoSnapshot):
		return http.StatusServiceUnavailable, "snapshot_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as an ErrorResponse and returns the status used.
// Internal errors are reported without detail.
func writeError(w http.ResponseWriter, err error) int {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
	return status
}
