package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Demo ids written by SeedDemo.
const (
	DemoTenantID    = "tenant-demo"
	DemoSiteID      = "site-hangar-1"
	DemoWorkOrderID = "wo-1001"
	DemoStockFilter = "stock-filter-main"
	DemoStockGasket = "stock-gasket-main"
)

// SeedDemo restores a small demo data set for the demo tenant: two parts, two stock records and
// one work order, with no line items or movements.
func SeedDemo(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	steps := []struct {
		name string
		sql  string
		args []any
	}{
		// stock_movements is append-only; replica mode skips its trigger for this transaction.
		{"disable triggers", "SET LOCAL session_replication_role = replica", nil},
		{"clear movements", "DELETE FROM stock_movements WHERE tenant_id = $1", []any{DemoTenantID}},
		{"clear line items", "DELETE FROM work_order_line_items WHERE tenant_id = $1", []any{DemoTenantID}},
		{"enable triggers", "SET LOCAL session_replication_role = DEFAULT", nil},
		{"parts", `
			INSERT INTO parts (id, tenant_id, part_number, name, unit_cost) VALUES
			('part-oil-filter', $1, 'OF-220', 'Oil filter',   12.5000),
			('part-gasket',     $1, 'GK-17',  'Valve gasket', NULL)
			ON CONFLICT (id) DO UPDATE SET unit_cost = EXCLUDED.unit_cost`,
			[]any{DemoTenantID}},
		{"stock records", `
			INSERT INTO stock_records (id, tenant_id, site_id, part_id, on_hand, reserved) VALUES
			($3, $1, $2, 'part-oil-filter', 40, 0),
			($4, $1, $2, 'part-gasket',     10, 0)
			ON CONFLICT (id) DO UPDATE SET on_hand = EXCLUDED.on_hand, reserved = 0, updated_at = NOW()`,
			[]any{DemoTenantID, DemoSiteID, DemoStockFilter, DemoStockGasket}},
		{"work order", `
			INSERT INTO work_orders (id, tenant_id, site_id, labor_cost, miscellaneous_cost, total_cost) VALUES
			($3, $1, $2, 150.0000, 20.0000, 170.0000)
			ON CONFLICT (id) DO UPDATE SET parts_cost_total = 0, parts_cost = 0,
				labor_cost = EXCLUDED.labor_cost, miscellaneous_cost = EXCLUDED.miscellaneous_cost,
				total_cost = EXCLUDED.total_cost, updated_at = NOW()`,
			[]any{DemoTenantID, DemoSiteID, DemoWorkOrderID}},
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step.sql, step.args...); err != nil {
			return fmt.Errorf("failed to seed %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}
