package web

import (
	"encoding/json"
	"net/http"

	"maintenance-ledger/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeLedgerError maps a ledger error kind to its HTTP status. Unexpected errors are logged
// and reported without their internal detail.
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	switch kind {
	case core.KindValidation:
		writeError(w, r, err.Error(), string(kind), http.StatusBadRequest)
	case core.KindNotFound:
		writeError(w, r, err.Error(), string(kind), http.StatusNotFound)
	case core.KindInsufficientQuantity:
		writeError(w, r, err.Error(), string(kind), http.StatusConflict)
	case core.KindConflict:
		w.Header().Set("Retry-After", "1")
		writeError(w, r, core.ErrMsgConcurrentWrite, string(kind), http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", zapRequestID(r), zap.Error(err))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
