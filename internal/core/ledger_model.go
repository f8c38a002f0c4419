package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a single quantity change recorded in the movement log.
type MovementType string

const (
	MovementReserve   MovementType = "reserve"
	MovementUnreserve MovementType = "unreserve"
	MovementIssue     MovementType = "issue"
	MovementReturn    MovementType = "return"
)

// Valid reports whether t is one of the four ledger movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReserve, MovementUnreserve, MovementIssue, MovementReturn:
		return true
	}
	return false
}

// StockRecord holds the on-hand and reserved quantity of one part at one stock source.
// ID is the stock source id.
type StockRecord struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	SiteID    string    `json:"site_id"`
	PartID    string    `json:"part_id"`
	OnHand    int64     `json:"on_hand"`
	Reserved  int64     `json:"reserved"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem tracks one work order's reserve/issue/return activity for one part at one stock source.
// At most one active line item exists per (work order, part, stock source).
type LineItem struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	SiteID        string          `json:"site_id"`
	WorkOrderID   string          `json:"work_order_id"`
	PartID        string          `json:"part_id"`
	StockRecordID string          `json:"stock_source_id"`
	QtyReserved   int64           `json:"qty_reserved"`
	QtyIssued     int64           `json:"qty_issued"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// Active reports whether the line item has not been soft-deleted.
func (li *LineItem) Active() bool {
	return li.DeletedAt == nil
}

// CostContribution is unit_cost × (qty_reserved + qty_issued).
func (li *LineItem) CostContribution() decimal.Decimal {
	return li.UnitCost.Mul(decimal.NewFromInt(li.QtyReserved + li.QtyIssued))
}

// Movement is an immutable audit record of one quantity change and the stock balances right after it.
type Movement struct {
	ID            string          `json:"id"`
	Sequence      int64           `json:"sequence"`
	TenantID      string          `json:"tenant_id"`
	SiteID        string          `json:"site_id"`
	WorkOrderID   string          `json:"work_order_id"`
	PartID        string          `json:"part_id"`
	StockRecordID string          `json:"stock_source_id"`
	LineItemID    string          `json:"line_item_id"`
	Type          MovementType    `json:"type"`
	Quantity      int64           `json:"quantity"`
	OnHandAfter   int64           `json:"on_hand_after"`
	ReservedAfter int64           `json:"reserved_after"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ActorID       string          `json:"actor_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// WorkOrderCosts are the cost fields of a work order owned by the ledger.
// PartsCost is the legacy alias of PartsCostTotal and is always written with the same value.
type WorkOrderCosts struct {
	WorkOrderID       string          `json:"work_order_id"`
	TenantID          string          `json:"tenant_id"`
	SiteID            string          `json:"site_id"`
	PartsCostTotal    decimal.Decimal `json:"parts_cost_total"`
	PartsCost         decimal.Decimal `json:"parts_cost"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	MiscellaneousCost decimal.Decimal `json:"miscellaneous_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MutationRequest is the input of Reserve, Unreserve, Issue and ReturnIssued.
// UnitCost, when non-nil, overrides the catalog price for this mutation.
type MutationRequest struct {
	TenantID      string
	WorkOrderID   string
	StockRecordID string
	Quantity      int64
	UnitCost      *decimal.Decimal
	ActorID       string
}

// MovementFilter narrows a movement history query. Empty fields are not filtered on.
// Results are ordered by Sequence, oldest first unless Descending is set. Limit <= 0 means no limit.
type MovementFilter struct {
	TenantID      string
	WorkOrderID   string
	PartID        string
	StockRecordID string
	Descending    bool
	Limit         int
}

// ReconciliationReport compares a stock record with its movement trail and its line items.
type ReconciliationReport struct {
	Stock            StockRecord `json:"stock"`
	LastMovement     *Movement   `json:"last_movement,omitempty"`
	SnapshotMatches  bool        `json:"snapshot_matches"`
	LineItemReserved int64       `json:"line_item_reserved"`
	ReservedMatches  bool        `json:"reserved_matches"`
}

// Consistent reports whether both reconciliation checks passed.
func (r *ReconciliationReport) Consistent() bool {
	return r.SnapshotMatches && r.ReservedMatches
}
