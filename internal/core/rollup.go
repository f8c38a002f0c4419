package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Cost amounts are stored as NUMERIC(14, 4).
const CostScale = 4

// MaxCostAmount is the exclusive upper bound of any stored cost amount.
var MaxCostAmount = decimal.New(1, 10)

// ComputeRollup returns costs with the parts totals taken from the active items and
// TotalCost = LaborCost + PartsCostTotal + MiscellaneousCost. Deleted items are ignored.
func ComputeRollup(costs WorkOrderCosts, items []LineItem) WorkOrderCosts {
	parts := decimal.Zero
	for i := range items {
		if !items[i].Active() {
			continue
		}
		parts = parts.Add(items[i].CostContribution())
	}
	costs.PartsCostTotal = parts
	costs.PartsCost = parts
	costs.TotalCost = costs.LaborCost.Add(parts).Add(costs.MiscellaneousCost)
	return costs
}

// recomputeCosts is the last write of every operation touching a line item. It returns the
// active line items it summed so callers can hand them back without a second query.
func recomputeCosts(ctx context.Context, tx Tx, wo *WorkOrderCosts, now time.Time) ([]LineItem, error) {
	items, err := tx.ListActiveLineItems(ctx, wo.TenantID, wo.WorkOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items for rollup: %w", err)
	}

	updated := ComputeRollup(*wo, items)
	if updated.TotalCost.GreaterThanOrEqual(MaxCostAmount) {
		return nil, NewValidationError(ErrMsgCostTooLarge)
	}
	updated.UpdatedAt = now
	if err := tx.UpdateWorkOrderCosts(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update work order costs: %w", err)
	}
	*wo = updated
	return items, nil
}
