// Package memstore is an in-process implementation of core.Store.
//
// Transactions are serialized by a single mutex and run against a copy of the state; the
// copy replaces the live state only when the transaction function returns nil. That gives
// the same all-or-nothing visibility as the Postgres store, which makes it suitable for
// engine, handler and acceptance tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"maintenance-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type partKey struct {
	tenantID string
	partID   string
}

type state struct {
	stock      map[string]core.StockRecord
	workOrders map[string]core.WorkOrderCosts
	lineItems  map[string]core.LineItem
	movements  []core.Movement
	seq        int64
}

func newState() *state {
	return &state{
		stock:      make(map[string]core.StockRecord),
		workOrders: make(map[string]core.WorkOrderCosts),
		lineItems:  make(map[string]core.LineItem),
	}
}

func (st *state) clone() *state {
	c := &state{
		stock:      make(map[string]core.StockRecord, len(st.stock)),
		workOrders: make(map[string]core.WorkOrderCosts, len(st.workOrders)),
		lineItems:  make(map[string]core.LineItem, len(st.lineItems)),
		movements:  make([]core.Movement, len(st.movements)),
		seq:        st.seq,
	}
	for k, v := range st.stock {
		c.stock[k] = v
	}
	for k, v := range st.workOrders {
		c.workOrders[k] = v
	}
	for k, v := range st.lineItems {
		c.lineItems[k] = v
	}
	copy(c.movements, st.movements)
	return c
}

// Store implements core.Store and core.PartCatalog in memory.
type Store struct {
	mu    sync.Mutex
	state *state

	catalogMu sync.RWMutex
	parts     map[partKey]decimal.Decimal
}

var (
	_ core.Store       = (*Store)(nil)
	_ core.PartCatalog = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		state: newState(),
		parts: make(map[partKey]decimal.Decimal),
	}
}

// ── Seeding (stock records, work orders and catalog prices are created outside the ledger) ──

func (s *Store) AddStockRecord(rec core.StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.stock[rec.ID] = rec
}

func (s *Store) AddWorkOrder(wo core.WorkOrderCosts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.workOrders[wo.WorkOrderID] = wo
}

func (s *Store) SetPartCost(tenantID, partID string, cost decimal.Decimal) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.parts[partKey{tenantID, partID}] = cost
}

// LineItem returns a line item by id whether or not it is deleted.
func (s *Store) LineItem(id string) (core.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	li, ok := s.state.lineItems[id]
	return li, ok
}

// ── core.PartCatalog ──────────────────────────────────────────────────────────

func (s *Store) UnitCost(_ context.Context, tenantID, partID string) (decimal.Decimal, bool, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	cost, ok := s.parts[partKey{tenantID, partID}]
	return cost, ok, nil
}

// ── core.Store ────────────────────────────────────────────────────────────────

func (s *Store) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GetStockRecord(_ context.Context, tenantID, stockRecordID string) (*core.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getStock(s.state, tenantID, stockRecordID)
}

func (s *Store) GetWorkOrderCosts(_ context.Context, tenantID, workOrderID string) (*core.WorkOrderCosts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getWorkOrder(s.state, tenantID, workOrderID)
}

func (s *Store) ListActiveLineItems(_ context.Context, tenantID, workOrderID string) ([]core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return activeLineItems(s.state, tenantID, workOrderID), nil
}

func (s *Store) ListMovements(_ context.Context, f core.MovementFilter) ([]core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Movement
	for _, m := range s.state.movements {
		if m.TenantID != f.TenantID {
			continue
		}
		if f.WorkOrderID != "" && m.WorkOrderID != f.WorkOrderID {
			continue
		}
		if f.PartID != "" && m.PartID != f.PartID {
			continue
		}
		if f.StockRecordID != "" && m.StockRecordID != f.StockRecordID {
			continue
		}
		out = append(out, m)
	}
	if f.Descending {
		sort.Slice(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SumReservedForStock(_ context.Context, tenantID, stockRecordID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, li := range s.state.lineItems {
		if li.TenantID == tenantID && li.StockRecordID == stockRecordID && li.Active() {
			total += li.QtyReserved
		}
	}
	return total, nil
}

// ── core.Tx ───────────────────────────────────────────────────────────────────

type tx struct {
	st *state
}

func (t *tx) LockWorkOrder(_ context.Context, tenantID, workOrderID string) (*core.WorkOrderCosts, error) {
	return getWorkOrder(t.st, tenantID, workOrderID)
}

func (t *tx) LockStockRecord(_ context.Context, tenantID, stockRecordID string) (*core.StockRecord, error) {
	return getStock(t.st, tenantID, stockRecordID)
}

func (t *tx) UpdateStockRecord(_ context.Context, rec *core.StockRecord) error {
	if rec.OnHand < 0 || rec.Reserved < 0 {
		return fmt.Errorf("stock record %s would go negative (on_hand=%d, reserved=%d)", rec.ID, rec.OnHand, rec.Reserved)
	}
	if _, ok := t.st.stock[rec.ID]; !ok {
		return fmt.Errorf("stock record %s does not exist", rec.ID)
	}
	t.st.stock[rec.ID] = *rec
	return nil
}

func (t *tx) FindActiveLineItem(_ context.Context, tenantID, workOrderID, partID, stockRecordID string) (*core.LineItem, error) {
	for _, li := range t.st.lineItems {
		if li.Active() && li.TenantID == tenantID && li.WorkOrderID == workOrderID &&
			li.PartID == partID && li.StockRecordID == stockRecordID {
			found := li
			return &found, nil
		}
	}
	return nil, nil
}

func (t *tx) LockLineItem(_ context.Context, tenantID, workOrderID, lineItemID string) (*core.LineItem, error) {
	li, ok := t.st.lineItems[lineItemID]
	if !ok || !li.Active() || li.TenantID != tenantID || li.WorkOrderID != workOrderID {
		return nil, core.NewNotFoundError(core.ErrMsgLineItemNotFound)
	}
	return &li, nil
}

func (t *tx) InsertLineItem(ctx context.Context, item *core.LineItem) error {
	if err := checkLineItem(item); err != nil {
		return err
	}
	existing, _ := t.FindActiveLineItem(ctx, item.TenantID, item.WorkOrderID, item.PartID, item.StockRecordID)
	if existing != nil {
		return core.NewConflictError(fmt.Errorf("active line item already exists for work order %s, stock source %s",
			item.WorkOrderID, item.StockRecordID))
	}
	if _, ok := t.st.lineItems[item.ID]; ok {
		return fmt.Errorf("line item %s already exists", item.ID)
	}
	t.st.lineItems[item.ID] = *item
	return nil
}

func (t *tx) UpdateLineItem(_ context.Context, item *core.LineItem) error {
	if err := checkLineItem(item); err != nil {
		return err
	}
	if _, ok := t.st.lineItems[item.ID]; !ok {
		return fmt.Errorf("line item %s does not exist", item.ID)
	}
	t.st.lineItems[item.ID] = *item
	return nil
}

func (t *tx) ListActiveLineItems(_ context.Context, tenantID, workOrderID string) ([]core.LineItem, error) {
	return activeLineItems(t.st, tenantID, workOrderID), nil
}

func (t *tx) AppendMovement(_ context.Context, m *core.Movement) error {
	t.st.seq++
	m.Sequence = t.st.seq
	t.st.movements = append(t.st.movements, *m)
	return nil
}

func (t *tx) UpdateWorkOrderCosts(_ context.Context, costs *core.WorkOrderCosts) error {
	if _, ok := t.st.workOrders[costs.WorkOrderID]; !ok {
		return fmt.Errorf("work order %s does not exist", costs.WorkOrderID)
	}
	t.st.workOrders[costs.WorkOrderID] = *costs
	return nil
}

// ── shared lookups ────────────────────────────────────────────────────────────

func getStock(st *state, tenantID, id string) (*core.StockRecord, error) {
	rec, ok := st.stock[id]
	if !ok || rec.TenantID != tenantID {
		return nil, core.NewNotFoundError(core.ErrMsgStockSourceNotFound)
	}
	return &rec, nil
}

func getWorkOrder(st *state, tenantID, id string) (*core.WorkOrderCosts, error) {
	wo, ok := st.workOrders[id]
	if !ok || wo.TenantID != tenantID {
		return nil, core.NewNotFoundError(core.ErrMsgWorkOrderNotFound)
	}
	return &wo, nil
}

func activeLineItems(st *state, tenantID, workOrderID string) []core.LineItem {
	items := []core.LineItem{}
	for _, li := range st.lineItems {
		if li.Active() && li.TenantID == tenantID && li.WorkOrderID == workOrderID {
			items = append(items, li)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

func checkLineItem(item *core.LineItem) error {
	if item.QtyReserved < 0 || item.QtyIssued < 0 {
		return fmt.Errorf("line item %s would go negative (reserved=%d, issued=%d)", item.ID, item.QtyReserved, item.QtyIssued)
	}
	if item.UnitCost.IsNegative() {
		return fmt.Errorf("line item %s has negative unit cost", item.ID)
	}
	return nil
}
