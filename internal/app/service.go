package app

import (
	"context"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from the ledger. Implementations contain no display logic.
type ApplicationService interface {
	// ListLineItems returns the active line items of a work order.
	ListLineItems(ctx context.Context, tenantID, workOrderID string) (*LineItemListResult, error)

	// Reserve moves quantity from on-hand to reserved for a work order.
	Reserve(ctx context.Context, req LineItemRequest) (*LineItemListResult, error)

	// Unreserve releases reserved quantity back to on-hand.
	Unreserve(ctx context.Context, req LineItemRequest) (*LineItemListResult, error)

	// Issue consumes reserved quantity.
	Issue(ctx context.Context, req LineItemRequest) (*LineItemListResult, error)

	// ReturnIssued puts issued quantity back on hand.
	ReturnIssued(ctx context.Context, req LineItemRequest) (*LineItemListResult, error)

	// DeleteLineItem unreserves whatever is still reserved and soft-deletes the line item.
	DeleteLineItem(ctx context.Context, tenantID, workOrderID, lineItemID, actorID string) error

	// GetWorkOrderCosts returns the rolled-up cost fields of a work order.
	GetWorkOrderCosts(ctx context.Context, tenantID, workOrderID string) (*WorkOrderCostsResult, error)

	// GetStockRecord returns the current balances of a stock source.
	GetStockRecord(ctx context.Context, tenantID, stockSourceID string) (*StockResult, error)

	// ListMovements returns movement history, oldest first.
	ListMovements(ctx context.Context, q MovementQuery) (*MovementListResult, error)

	// Reconcile compares a stock source with its movement log and line items.
	Reconcile(ctx context.Context, tenantID, stockSourceID string) (*ReconciliationResult, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error
}
