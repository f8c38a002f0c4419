package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence port of the parts ledger. Implementations live in internal/db
// (Postgres) and internal/memstore (in-process, used by tests).
//
// Every method is scoped by tenant id; a record belonging to another tenant is reported as
// not found.
type Store interface {
	// InTx runs fn inside one atomic unit. If fn returns an error nothing fn wrote is visible.
	// Write conflicts detected by the store are returned as KindConflict errors.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetStockRecord(ctx context.Context, tenantID, stockRecordID string) (*StockRecord, error)
	GetWorkOrderCosts(ctx context.Context, tenantID, workOrderID string) (*WorkOrderCosts, error)
	ListActiveLineItems(ctx context.Context, tenantID, workOrderID string) ([]LineItem, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	// SumReservedForStock returns Σ qty_reserved over active line items backed by the stock record.
	SumReservedForStock(ctx context.Context, tenantID, stockRecordID string) (int64, error)
}

// Tx is the set of reads and writes available inside Store.InTx. Lock methods take a row
// lock held until the transaction ends.
type Tx interface {
	LockWorkOrder(ctx context.Context, tenantID, workOrderID string) (*WorkOrderCosts, error)
	LockStockRecord(ctx context.Context, tenantID, stockRecordID string) (*StockRecord, error)
	UpdateStockRecord(ctx context.Context, stock *StockRecord) error

	// FindActiveLineItem returns (nil, nil) when no active item exists for the tuple.
	FindActiveLineItem(ctx context.Context, tenantID, workOrderID, partID, stockRecordID string) (*LineItem, error)
	LockLineItem(ctx context.Context, tenantID, workOrderID, lineItemID string) (*LineItem, error)
	InsertLineItem(ctx context.Context, item *LineItem) error
	UpdateLineItem(ctx context.Context, item *LineItem) error
	ListActiveLineItems(ctx context.Context, tenantID, workOrderID string) ([]LineItem, error)

	// AppendMovement stores m and fills in its Sequence.
	AppendMovement(ctx context.Context, m *Movement) error

	UpdateWorkOrderCosts(ctx context.Context, costs *WorkOrderCosts) error
}

// PartCatalog resolves the default unit cost of a part. ok is false when the catalog has no
// price for it.
type PartCatalog interface {
	UnitCost(ctx context.Context, tenantID, partID string) (cost decimal.Decimal, ok bool, err error)
}

// MovementPublisher forwards committed movements to downstream consumers.
type MovementPublisher interface {
	Publish(ctx context.Context, movements []Movement) error
}
