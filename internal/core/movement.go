package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newMovement snapshots the stock record right after a mutation.
func newMovement(kind MovementType, qty int64, stock *StockRecord, item *LineItem, actorID string, now time.Time) *Movement {
	return &Movement{
		ID:            uuid.NewString(),
		TenantID:      stock.TenantID,
		SiteID:        stock.SiteID,
		WorkOrderID:   item.WorkOrderID,
		PartID:        stock.PartID,
		StockRecordID: stock.ID,
		LineItemID:    item.ID,
		Type:          kind,
		Quantity:      qty,
		OnHandAfter:   stock.OnHand,
		ReservedAfter: stock.Reserved,
		UnitCost:      item.UnitCost,
		ActorID:       actorID,
		CreatedAt:     now,
	}
}

// appendMovement writes m to the log. A failed append fails the whole operation.
func appendMovement(ctx context.Context, tx Tx, m *Movement) error {
	if m.Quantity <= 0 {
		return NewValidationError(ErrMsgQuantityPositive)
	}
	if !m.Type.Valid() {
		return NewValidationError("unknown movement type " + string(m.Type))
	}
	if err := tx.AppendMovement(ctx, m); err != nil {
		return fmt.Errorf("failed to append %s movement: %w", m.Type, err)
	}
	return nil
}
