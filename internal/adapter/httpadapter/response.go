package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error     string              `json:"error"`
	Problems  []domain.FieldError `json:"problems,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, problems []domain.FieldError) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Problems:  problems,
		RequestID: GetRequestID(r.Context()),
	})
}

// writeQueryError maps pipeline errors to status codes: invalid criteria are
// 400, retryable fetch failures 503, other upstream failures 502.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, "invalid criteria", verr.Problems)
	case domain.IsRetryable(err):
		w.Header().Set("Retry-After", "30")
		writeError(w, r, http.StatusServiceUnavailable, "earthquake catalog is temporarily unavailable", nil)
	case errors.Is(err, domain.ErrFetch):
		writeError(w, r, http.StatusBadGateway, "earthquake catalog request failed", nil)
	default:
		writeError(w, r, http.StatusInternalServerError, "query failed", nil)
	}
}
