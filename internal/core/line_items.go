package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// getOrCreateLineItem returns the active line item for (work order, part, stock source),
// creating an empty one if none exists. The unit cost of a new item is the caller-supplied
// value, else the catalog price, else zero. A supplied unit cost also reprices an existing item.
// created reports whether the item still has to be inserted.
func (s *partsLedger) getOrCreateLineItem(ctx context.Context, tx Tx, wo *WorkOrderCosts, stock *StockRecord,
	unitCost *decimal.Decimal, now time.Time) (item *LineItem, created bool, err error) {

	item, err = tx.FindActiveLineItem(ctx, wo.TenantID, wo.WorkOrderID, stock.PartID, stock.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load line item: %w", err)
	}
	if item != nil {
		if unitCost != nil {
			item.UnitCost = *unitCost
		}
		return item, false, nil
	}

	cost, err := s.resolveUnitCost(ctx, wo.TenantID, stock.PartID, unitCost)
	if err != nil {
		return nil, false, err
	}

	return &LineItem{
		ID:            uuid.NewString(),
		TenantID:      wo.TenantID,
		SiteID:        stock.SiteID,
		WorkOrderID:   wo.WorkOrderID,
		PartID:        stock.PartID,
		StockRecordID: stock.ID,
		UnitCost:      cost,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, true, nil
}

// findActiveLineItem is the non-creating lookup used by unreserve, issue and return.
func findActiveLineItem(ctx context.Context, tx Tx, wo *WorkOrderCosts, stock *StockRecord, notFoundMsg string) (*LineItem, error) {
	item, err := tx.FindActiveLineItem(ctx, wo.TenantID, wo.WorkOrderID, stock.PartID, stock.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line item: %w", err)
	}
	if item == nil {
		return nil, NewNotFoundError(notFoundMsg)
	}
	return item, nil
}

// resolveUnitCost applies the precedence supplied > catalog > 0.
func (s *partsLedger) resolveUnitCost(ctx context.Context, tenantID, partID string, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if supplied != nil {
		return *supplied, nil
	}
	if s.catalog == nil {
		return decimal.Zero, nil
	}
	cost, ok, err := s.catalog.UnitCost(ctx, tenantID, partID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve unit cost for part %s: %w", partID, err)
	}
	if !ok {
		s.logger.Warn("no catalog cost for part, defaulting to zero",
			zap.String("tenant_id", tenantID), zap.String("part_id", partID))
		return decimal.Zero, nil
	}
	return cost, nil
}

// saveLineItem inserts or updates item depending on whether it was just created.
func saveLineItem(ctx context.Context, tx Tx, item *LineItem, created bool) error {
	if created {
		if err := tx.InsertLineItem(ctx, item); err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
		return nil
	}
	if err := tx.UpdateLineItem(ctx, item); err != nil {
		return fmt.Errorf("failed to update line item: %w", err)
	}
	return nil
}
