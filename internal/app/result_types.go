package app

import "maintenance-ledger/internal/core"

// LineItemListResult is returned by ListLineItems and every line item mutation.
type LineItemListResult struct {
	WorkOrderID string          `json:"work_order_id"`
	LineItems   []core.LineItem `json:"line_items"`
}

// WorkOrderCostsResult is returned by GetWorkOrderCosts.
type WorkOrderCostsResult struct {
	Costs core.WorkOrderCosts `json:"costs"`
}

// StockResult is returned by GetStockRecord.
type StockResult struct {
	Stock core.StockRecord `json:"stock"`
}

// MovementListResult is returned by ListMovements.
type MovementListResult struct {
	Movements []core.Movement `json:"movements"`
}

// ReconciliationResult is returned by Reconcile.
type ReconciliationResult struct {
	Report     core.ReconciliationReport `json:"report"`
	Consistent bool                      `json:"consistent"`
}
