package web

import (
	"context"
	"net/http"
	"strconv"

	"maintenance-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// lineItemRequest is the body of the reserve, unreserve, issue and return endpoints.
// unit_cost accepts a JSON string or number.
type lineItemRequest struct {
	StockSourceID string               `json:"stock_source_id"`
	Quantity      int64                `json:"quantity"`
	UnitCost      *decimal.NullDecimal `json:"unit_cost,omitempty"`
}

type lineItemOp func(context.Context, app.LineItemRequest) (*app.LineItemListResult, error)

// lineItemAction handles POST /api/work-orders/{workOrderID}/line-items/{action}.
func (h *Handler) lineItemAction(action lineItemOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := authFromContext(r.Context())

		var body lineItemRequest
		if !decodeJSON(w, r, &body) {
			return
		}

		req := app.LineItemRequest{
			TenantID:      claims.TenantID,
			WorkOrderID:   chi.URLParam(r, "workOrderID"),
			StockSourceID: body.StockSourceID,
			Quantity:      body.Quantity,
			ActorID:       claims.UserID,
		}
		if body.UnitCost != nil && body.UnitCost.Valid {
			req.UnitCost = body.UnitCost.Decimal.String()
		}

		result, err := action(r.Context(), req)
		if err != nil {
			h.writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, result)
	}
}

// apiListLineItems handles GET /api/work-orders/{workOrderID}/line-items.
func (h *Handler) apiListLineItems(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.ListLineItems(r.Context(), claims.TenantID, chi.URLParam(r, "workOrderID"))
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiDeleteLineItem handles DELETE /api/work-orders/{workOrderID}/line-items/{lineItemID}.
func (h *Handler) apiDeleteLineItem(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	err := h.svc.DeleteLineItem(r.Context(), claims.TenantID,
		chi.URLParam(r, "workOrderID"), chi.URLParam(r, "lineItemID"), claims.UserID)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// apiWorkOrderCosts handles GET /api/work-orders/{workOrderID}/costs.
func (h *Handler) apiWorkOrderCosts(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.GetWorkOrderCosts(r.Context(), claims.TenantID, chi.URLParam(r, "workOrderID"))
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetStock handles GET /api/stock/{stockSourceID}.
func (h *Handler) apiGetStock(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.GetStockRecord(r.Context(), claims.TenantID, chi.URLParam(r, "stockSourceID"))
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReconcileStock handles GET /api/stock/{stockSourceID}/reconcile.
func (h *Handler) apiReconcileStock(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.Reconcile(r.Context(), claims.TenantID, chi.URLParam(r, "stockSourceID"))
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListMovements handles GET /api/movements?work_order_id=&part_id=&stock_source_id=&limit=.
func (h *Handler) apiListMovements(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	q := r.URL.Query()

	query := app.MovementQuery{
		TenantID:      claims.TenantID,
		WorkOrderID:   q.Get("work_order_id"),
		PartID:        q.Get("part_id"),
		StockSourceID: q.Get("stock_source_id"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "limit must be an integer", "VALIDATION", http.StatusBadRequest)
			return
		}
		query.Limit = limit
	}

	result, err := h.svc.ListMovements(r.Context(), query)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, result)
}
