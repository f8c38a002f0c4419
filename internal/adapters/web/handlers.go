package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"maintenance-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	logger    *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, jwtSecret string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Work order line items ─────────────────────────────────────────────
		r.Get("/api/work-orders/{workOrderID}/line-items", h.apiListLineItems)
		r.Get("/api/work-orders/{workOrderID}/costs", h.apiWorkOrderCosts)
		r.Group(func(r chi.Router) {
			r.Use(RequireWriter)
			r.Post("/api/work-orders/{workOrderID}/line-items/reserve", h.lineItemAction(h.svc.Reserve))
			r.Post("/api/work-orders/{workOrderID}/line-items/unreserve", h.lineItemAction(h.svc.Unreserve))
			r.Post("/api/work-orders/{workOrderID}/line-items/issue", h.lineItemAction(h.svc.Issue))
			r.Post("/api/work-orders/{workOrderID}/line-items/return", h.lineItemAction(h.svc.ReturnIssued))
			r.Delete("/api/work-orders/{workOrderID}/line-items/{lineItemID}", h.apiDeleteLineItem)
		})

		// ── Stock and movement history ────────────────────────────────────────
		r.Get("/api/stock/{stockSourceID}", h.apiGetStock)
		r.Get("/api/stock/{stockSourceID}/reconcile", h.apiReconcileStock)
		r.Get("/api/movements", h.apiListMovements)
	})

	h.router = r
	return r
}

// health reports service status; 503 when the database cannot be reached.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	if err := h.svc.Health(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(response{Status: "unavailable"})
		return
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
