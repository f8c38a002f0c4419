package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"maintenance-ledger/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SQLSTATE codes reported as write conflicts.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres implementation of core.Store and core.PartCatalog.
type Store struct {
	pool     *pgxpool.Pool
	isoLevel pgx.TxIsoLevel
}

var (
	_ core.Store       = (*Store)(nil)
	_ core.PartCatalog = (*Store)(nil)
)

// StoreOption configures NewStore.
type StoreOption func(*Store)

// WithIsolation sets the isolation level of ledger transactions. Default is serializable.
func WithIsolation(level pgx.TxIsoLevel) StoreOption {
	return func(s *Store) { s.isoLevel = level }
}

func NewStore(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	s := &Store{pool: pool, isoLevel: pgx.Serializable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseIsolation maps a config value (serializable, repeatable_read, read_committed) to a level.
func ParseIsolation(v string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), " ", "_")) {
	case "", "serializable":
		return pgx.Serializable, nil
	case "repeatable_read":
		return pgx.RepeatableRead, nil
	case "read_committed":
		return pgx.ReadCommitted, nil
	}
	return "", fmt.Errorf("unsupported isolation level %q", v)
}

// classify turns serialization failures, deadlocks and unique violations into conflict errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateUniqueViolation:
			if core.KindOf(err) != core.KindConflict {
				return core.NewConflictError(err)
			}
		}
	}
	return err
}

// ── core.Store ────────────────────────────────────────────────────────────────

func (s *Store) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: s.isoLevel})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) GetStockRecord(ctx context.Context, tenantID, stockRecordID string) (*core.StockRecord, error) {
	return selectStockRecord(ctx, s.pool, tenantID, stockRecordID, false)
}

func (s *Store) GetWorkOrderCosts(ctx context.Context, tenantID, workOrderID string) (*core.WorkOrderCosts, error) {
	return selectWorkOrder(ctx, s.pool, tenantID, workOrderID, false)
}

func (s *Store) ListActiveLineItems(ctx context.Context, tenantID, workOrderID string) ([]core.LineItem, error) {
	return selectActiveLineItems(ctx, s.pool, tenantID, workOrderID)
}

func (s *Store) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.Movement, error) {
	var (
		where = []string{"tenant_id = $1"}
		args  = []any{f.TenantID}
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("work_order_id", f.WorkOrderID)
	add("part_id", f.PartID)
	add("stock_record_id", f.StockRecordID)

	query := `
		SELECT id, seq, tenant_id, site_id, work_order_id, part_id, stock_record_id, line_item_id,
		       movement_type, quantity, on_hand_after, reserved_after, unit_cost, actor_id, created_at
		FROM stock_movements
		WHERE ` + strings.Join(where, " AND ")
	if f.Descending {
		query += " ORDER BY seq DESC"
	} else {
		query += " ORDER BY seq ASC"
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var out []core.Movement
	for rows.Next() {
		var (
			m    core.Movement
			kind string
		)
		if err := rows.Scan(&m.ID, &m.Sequence, &m.TenantID, &m.SiteID, &m.WorkOrderID, &m.PartID,
			&m.StockRecordID, &m.LineItemID, &kind, &m.Quantity, &m.OnHandAfter, &m.ReservedAfter,
			&m.UnitCost, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.Type = core.MovementType(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SumReservedForStock(ctx context.Context, tenantID, stockRecordID string) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty_reserved), 0)::BIGINT
		FROM work_order_line_items
		WHERE tenant_id = $1 AND stock_record_id = $2 AND deleted_at IS NULL
	`, tenantID, stockRecordID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum reserved quantity: %w", err)
	}
	return total, nil
}

// ── core.PartCatalog ──────────────────────────────────────────────────────────

func (s *Store) UnitCost(ctx context.Context, tenantID, partID string) (decimal.Decimal, bool, error) {
	var cost decimal.NullDecimal
	err := s.pool.QueryRow(ctx,
		"SELECT unit_cost FROM parts WHERE tenant_id = $1 AND id = $2",
		tenantID, partID,
	).Scan(&cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to load part cost: %w", err)
	}
	if !cost.Valid {
		return decimal.Zero, false, nil
	}
	return cost.Decimal, true, nil
}

// ── core.Tx ───────────────────────────────────────────────────────────────────

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockWorkOrder(ctx context.Context, tenantID, workOrderID string) (*core.WorkOrderCosts, error) {
	return selectWorkOrder(ctx, t.tx, tenantID, workOrderID, true)
}

func (t *pgTx) LockStockRecord(ctx context.Context, tenantID, stockRecordID string) (*core.StockRecord, error) {
	return selectStockRecord(ctx, t.tx, tenantID, stockRecordID, true)
}

func (t *pgTx) UpdateStockRecord(ctx context.Context, rec *core.StockRecord) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE stock_records SET on_hand = $1, reserved = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`, rec.OnHand, rec.Reserved, rec.UpdatedAt, rec.ID, rec.TenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("stock record %s not updated", rec.ID)
	}
	return nil
}

const lineItemColumns = `id, tenant_id, site_id, work_order_id, part_id, stock_record_id,
	qty_reserved, qty_issued, unit_cost, created_at, updated_at, deleted_at`

func (t *pgTx) FindActiveLineItem(ctx context.Context, tenantID, workOrderID, partID, stockRecordID string) (*core.LineItem, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+lineItemColumns+`
		FROM work_order_line_items
		WHERE tenant_id = $1 AND work_order_id = $2 AND part_id = $3 AND stock_record_id = $4
		  AND deleted_at IS NULL
		FOR UPDATE
	`, tenantID, workOrderID, partID, stockRecordID)
	li, err := scanLineItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return li, err
}

func (t *pgTx) LockLineItem(ctx context.Context, tenantID, workOrderID, lineItemID string) (*core.LineItem, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+lineItemColumns+`
		FROM work_order_line_items
		WHERE id = $1 AND tenant_id = $2 AND work_order_id = $3 AND deleted_at IS NULL
		FOR UPDATE
	`, lineItemID, tenantID, workOrderID)
	li, err := scanLineItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewNotFoundError(core.ErrMsgLineItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock line item: %w", err)
	}
	return li, nil
}

func (t *pgTx) InsertLineItem(ctx context.Context, li *core.LineItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO work_order_line_items (`+lineItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, li.ID, li.TenantID, li.SiteID, li.WorkOrderID, li.PartID, li.StockRecordID,
		li.QtyReserved, li.QtyIssued, li.UnitCost, li.CreatedAt, li.UpdatedAt, li.DeletedAt)
	return classify(err)
}

func (t *pgTx) UpdateLineItem(ctx context.Context, li *core.LineItem) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE work_order_line_items
		SET qty_reserved = $1, qty_issued = $2, unit_cost = $3, updated_at = $4, deleted_at = $5
		WHERE id = $6 AND tenant_id = $7
	`, li.QtyReserved, li.QtyIssued, li.UnitCost, li.UpdatedAt, li.DeletedAt, li.ID, li.TenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("line item %s not updated", li.ID)
	}
	return nil
}

func (t *pgTx) ListActiveLineItems(ctx context.Context, tenantID, workOrderID string) ([]core.LineItem, error) {
	return selectActiveLineItems(ctx, t.tx, tenantID, workOrderID)
}

func (t *pgTx) AppendMovement(ctx context.Context, m *core.Movement) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (id, tenant_id, site_id, work_order_id, part_id, stock_record_id,
			line_item_id, movement_type, quantity, on_hand_after, reserved_after, unit_cost, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq
	`, m.ID, m.TenantID, m.SiteID, m.WorkOrderID, m.PartID, m.StockRecordID, m.LineItemID,
		string(m.Type), m.Quantity, m.OnHandAfter, m.ReservedAfter, m.UnitCost, m.ActorID, m.CreatedAt,
	).Scan(&m.Sequence)
}

func (t *pgTx) UpdateWorkOrderCosts(ctx context.Context, c *core.WorkOrderCosts) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE work_orders
		SET parts_cost_total = $1, parts_cost = $2, total_cost = $3, updated_at = $4
		WHERE id = $5 AND tenant_id = $6
	`, c.PartsCostTotal, c.PartsCost, c.TotalCost, c.UpdatedAt, c.WorkOrderID, c.TenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("work order %s not updated", c.WorkOrderID)
	}
	return nil
}

// ── shared queries ────────────────────────────────────────────────────────────

func selectStockRecord(ctx context.Context, q querier, tenantID, id string, lock bool) (*core.StockRecord, error) {
	query := `
		SELECT id, tenant_id, site_id, part_id, on_hand, reserved, updated_at
		FROM stock_records
		WHERE id = $1 AND tenant_id = $2`
	if lock {
		query += " FOR UPDATE"
	}
	var rec core.StockRecord
	err := q.QueryRow(ctx, query, id, tenantID).Scan(
		&rec.ID, &rec.TenantID, &rec.SiteID, &rec.PartID, &rec.OnHand, &rec.Reserved, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewNotFoundError(core.ErrMsgStockSourceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock record: %w", err)
	}
	return &rec, nil
}

func selectWorkOrder(ctx context.Context, q querier, tenantID, id string, lock bool) (*core.WorkOrderCosts, error) {
	query := `
		SELECT id, tenant_id, site_id, parts_cost_total, parts_cost, labor_cost, miscellaneous_cost,
		       total_cost, updated_at
		FROM work_orders
		WHERE id = $1 AND tenant_id = $2`
	if lock {
		query += " FOR UPDATE"
	}
	var wo core.WorkOrderCosts
	err := q.QueryRow(ctx, query, id, tenantID).Scan(
		&wo.WorkOrderID, &wo.TenantID, &wo.SiteID, &wo.PartsCostTotal, &wo.PartsCost, &wo.LaborCost,
		&wo.MiscellaneousCost, &wo.TotalCost, &wo.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewNotFoundError(core.ErrMsgWorkOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}
	return &wo, nil
}

func selectActiveLineItems(ctx context.Context, q querier, tenantID, workOrderID string) ([]core.LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT `+lineItemColumns+`
		FROM work_order_line_items
		WHERE tenant_id = $1 AND work_order_id = $2 AND deleted_at IS NULL
		ORDER BY created_at, id
	`, tenantID, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := []core.LineItem{}
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *li)
	}
	return items, rows.Err()
}

func scanLineItem(row pgx.Row) (*core.LineItem, error) {
	var (
		li        core.LineItem
		deletedAt *time.Time
	)
	err := row.Scan(&li.ID, &li.TenantID, &li.SiteID, &li.WorkOrderID, &li.PartID, &li.StockRecordID,
		&li.QtyReserved, &li.QtyIssued, &li.UnitCost, &li.CreatedAt, &li.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	li.DeletedAt = deletedAt
	return &li, nil
}
