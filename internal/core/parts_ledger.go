package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "maintenance-ledger/core"

// DefaultMaxRetries bounds how often a transaction is re-run after a write conflict.
const DefaultMaxRetries = 5

// PartsLedger reserves, issues, returns and unreserves inventory against work orders.
// These operations are the only sanctioned way to change stock records and line items.
type PartsLedger interface {
	// ListLineItems returns the active line items of a work order.
	ListLineItems(ctx context.Context, tenantID, workOrderID string) ([]LineItem, error)

	// Reserve moves quantity from on-hand to reserved, creating the line item on first use.
	Reserve(ctx context.Context, req MutationRequest) ([]LineItem, error)
	// Unreserve moves quantity from reserved back to on-hand.
	Unreserve(ctx context.Context, req MutationRequest) ([]LineItem, error)
	// Issue consumes previously reserved quantity. There is no issue path that skips reservation.
	Issue(ctx context.Context, req MutationRequest) ([]LineItem, error)
	// ReturnIssued puts issued quantity back on hand.
	ReturnIssued(ctx context.Context, req MutationRequest) ([]LineItem, error)
	// DeleteLineItem releases any reserved quantity and soft-deletes the line item.
	DeleteLineItem(ctx context.Context, tenantID, workOrderID, lineItemID, actorID string) error

	GetStockRecord(ctx context.Context, tenantID, stockRecordID string) (*StockRecord, error)
	GetWorkOrderCosts(ctx context.Context, tenantID, workOrderID string) (*WorkOrderCosts, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	// Reconcile checks a stock record against its latest movement snapshot and its line items.
	Reconcile(ctx context.Context, tenantID, stockRecordID string) (*ReconciliationReport, error)
}

type partsLedger struct {
	store      Store
	catalog    PartCatalog
	publisher  MovementPublisher
	logger     *zap.Logger
	tracer     trace.Tracer
	maxRetries uint64
	now        func() time.Time
}

// Option configures NewPartsLedger.
type Option func(*partsLedger)

func WithLogger(l *zap.Logger) Option {
	return func(s *partsLedger) { s.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *partsLedger) { s.tracer = t }
}

// WithPublisher sets where committed movements are forwarded. Publishing is best-effort.
func WithPublisher(p MovementPublisher) Option {
	return func(s *partsLedger) { s.publisher = p }
}

func WithMaxRetries(n int) Option {
	return func(s *partsLedger) {
		if n >= 0 {
			s.maxRetries = uint64(n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *partsLedger) { s.now = now }
}

// NewPartsLedger builds the reservation engine. catalog may be nil, in which case unit costs
// not supplied by the caller resolve to zero.
func NewPartsLedger(store Store, catalog PartCatalog, opts ...Option) PartsLedger {
	s := &partsLedger{
		store:      store,
		catalog:    catalog,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
		maxRetries: DefaultMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ── Mutating operations ───────────────────────────────────────────────────────

func (s *partsLedger) Reserve(ctx context.Context, req MutationRequest) ([]LineItem, error) {
	return s.mutate(ctx, MovementReserve, req)
}

func (s *partsLedger) Unreserve(ctx context.Context, req MutationRequest) ([]LineItem, error) {
	return s.mutate(ctx, MovementUnreserve, req)
}

func (s *partsLedger) Issue(ctx context.Context, req MutationRequest) ([]LineItem, error) {
	return s.mutate(ctx, MovementIssue, req)
}

func (s *partsLedger) ReturnIssued(ctx context.Context, req MutationRequest) ([]LineItem, error) {
	return s.mutate(ctx, MovementReturn, req)
}

// mutate runs one of the four state transitions as a single transaction:
// lock work order, lock stock record, load (or create) the line item, validate and apply,
// append the movement, recompute the work order rollup.
func (s *partsLedger) mutate(ctx context.Context, kind MovementType, req MutationRequest) ([]LineItem, error) {
	ctx, span := s.tracer.Start(ctx, "parts_ledger."+string(kind))
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", req.TenantID),
		attribute.String("work_order.id", req.WorkOrderID),
		attribute.String("stock_source.id", req.StockRecordID),
		attribute.Int64("ledger.quantity", req.Quantity),
	)

	if err := validateMutation(kind, req); err != nil {
		return nil, s.fail(span, string(kind), err)
	}

	var (
		items    []LineItem
		movement *Movement
	)
	err := s.inTxWithRetry(ctx, string(kind), func(tx Tx) error {
		now := s.now()

		wo, err := tx.LockWorkOrder(ctx, req.TenantID, req.WorkOrderID)
		if err != nil {
			return err
		}
		stock, err := tx.LockStockRecord(ctx, req.TenantID, req.StockRecordID)
		if err != nil {
			return err
		}

		var (
			item    *LineItem
			created bool
		)
		switch kind {
		case MovementReserve:
			item, created, err = s.getOrCreateLineItem(ctx, tx, wo, stock, req.UnitCost, now)
		case MovementReturn:
			item, err = findActiveLineItem(ctx, tx, wo, stock, ErrMsgNoIssue)
		default:
			item, err = findActiveLineItem(ctx, tx, wo, stock, ErrMsgNoReservation)
		}
		if err != nil {
			return err
		}
		if kind == MovementIssue && req.UnitCost != nil {
			item.UnitCost = *req.UnitCost
		}

		if err := applyMovement(stock, item, kind, req.Quantity); err != nil {
			return err
		}
		stock.UpdatedAt = now
		item.UpdatedAt = now

		if err := tx.UpdateStockRecord(ctx, stock); err != nil {
			return fmt.Errorf("failed to update stock record: %w", err)
		}
		if err := saveLineItem(ctx, tx, item, created); err != nil {
			return err
		}

		m := newMovement(kind, req.Quantity, stock, item, req.ActorID, now)
		if err := appendMovement(ctx, tx, m); err != nil {
			return err
		}

		items, err = recomputeCosts(ctx, tx, wo, now)
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return nil, s.fail(span, string(kind), err)
	}

	s.committed(ctx, span, movement)
	return items, nil
}

// DeleteLineItem returns any still-reserved quantity to stock with one unreserve movement,
// then soft-deletes the item. Issued quantity is consumed and stays on the item.
func (s *partsLedger) DeleteLineItem(ctx context.Context, tenantID, workOrderID, lineItemID, actorID string) error {
	ctx, span := s.tracer.Start(ctx, "parts_ledger.delete_line_item")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("work_order.id", workOrderID),
		attribute.String("line_item.id", lineItemID),
	)

	if err := requireIDs(tenantID, workOrderID); err != nil {
		return s.fail(span, "delete", err)
	}
	if lineItemID == "" {
		return s.fail(span, "delete", NewValidationError(ErrMsgLineItemRequired))
	}

	var movement *Movement
	err := s.inTxWithRetry(ctx, "delete", func(tx Tx) error {
		movement = nil
		now := s.now()

		wo, err := tx.LockWorkOrder(ctx, tenantID, workOrderID)
		if err != nil {
			return err
		}
		item, err := tx.LockLineItem(ctx, tenantID, workOrderID, lineItemID)
		if err != nil {
			return err
		}

		if item.QtyReserved > 0 {
			stock, err := tx.LockStockRecord(ctx, tenantID, item.StockRecordID)
			if err != nil {
				return err
			}
			qty := item.QtyReserved
			if err := applyMovement(stock, item, MovementUnreserve, qty); err != nil {
				return err
			}
			stock.UpdatedAt = now
			if err := tx.UpdateStockRecord(ctx, stock); err != nil {
				return fmt.Errorf("failed to update stock record: %w", err)
			}
			m := newMovement(MovementUnreserve, qty, stock, item, actorID, now)
			if err := appendMovement(ctx, tx, m); err != nil {
				return err
			}
			movement = m
		}

		item.DeletedAt = &now
		item.UpdatedAt = now
		if err := tx.UpdateLineItem(ctx, item); err != nil {
			return fmt.Errorf("failed to soft-delete line item: %w", err)
		}

		_, err = recomputeCosts(ctx, tx, wo, now)
		return err
	})
	if err != nil {
		return s.fail(span, "delete", err)
	}

	if movement != nil {
		s.committed(ctx, span, movement)
	} else {
		span.SetStatus(codes.Ok, "line item deleted")
		s.logger.Info("line item deleted",
			zap.String("tenant_id", tenantID),
			zap.String("work_order_id", workOrderID),
			zap.String("line_item_id", lineItemID))
	}
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *partsLedger) ListLineItems(ctx context.Context, tenantID, workOrderID string) ([]LineItem, error) {
	if err := requireIDs(tenantID, workOrderID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetWorkOrderCosts(ctx, tenantID, workOrderID); err != nil {
		return nil, err
	}
	items, err := s.store.ListActiveLineItems(ctx, tenantID, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	return items, nil
}

func (s *partsLedger) GetStockRecord(ctx context.Context, tenantID, stockRecordID string) (*StockRecord, error) {
	if tenantID == "" {
		return nil, NewValidationError(ErrMsgTenantRequired)
	}
	if stockRecordID == "" {
		return nil, NewValidationError(ErrMsgStockSourceRequired)
	}
	return s.store.GetStockRecord(ctx, tenantID, stockRecordID)
}

func (s *partsLedger) GetWorkOrderCosts(ctx context.Context, tenantID, workOrderID string) (*WorkOrderCosts, error) {
	if err := requireIDs(tenantID, workOrderID); err != nil {
		return nil, err
	}
	return s.store.GetWorkOrderCosts(ctx, tenantID, workOrderID)
}

func (s *partsLedger) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.TenantID == "" {
		return nil, NewValidationError(ErrMsgTenantRequired)
	}
	movements, err := s.store.ListMovements(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

func (s *partsLedger) Reconcile(ctx context.Context, tenantID, stockRecordID string) (*ReconciliationReport, error) {
	stock, err := s.GetStockRecord(ctx, tenantID, stockRecordID)
	if err != nil {
		return nil, err
	}

	latest, err := s.store.ListMovements(ctx, MovementFilter{
		TenantID:      tenantID,
		StockRecordID: stockRecordID,
		Descending:    true,
		Limit:         1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load latest movement: %w", err)
	}
	reserved, err := s.store.SumReservedForStock(ctx, tenantID, stockRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum line item reservations: %w", err)
	}

	report := &ReconciliationReport{
		Stock:            *stock,
		SnapshotMatches:  true,
		LineItemReserved: reserved,
		ReservedMatches:  reserved == stock.Reserved,
	}
	if len(latest) > 0 {
		last := latest[0]
		report.LastMovement = &last
		report.SnapshotMatches = last.OnHandAfter == stock.OnHand && last.ReservedAfter == stock.Reserved
	}
	if !report.Consistent() {
		s.logger.Warn("stock record out of balance",
			zap.String("tenant_id", tenantID),
			zap.String("stock_source_id", stockRecordID),
			zap.Bool("snapshot_matches", report.SnapshotMatches),
			zap.Bool("reserved_matches", report.ReservedMatches))
	}
	return report, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func requireIDs(tenantID, workOrderID string) error {
	if tenantID == "" {
		return NewValidationError(ErrMsgTenantRequired)
	}
	if workOrderID == "" {
		return NewValidationError(ErrMsgWorkOrderRequired)
	}
	return nil
}

func validateMutation(kind MovementType, req MutationRequest) error {
	if err := requireIDs(req.TenantID, req.WorkOrderID); err != nil {
		return err
	}
	if req.StockRecordID == "" {
		return NewValidationError(ErrMsgStockSourceRequired)
	}
	if req.Quantity <= 0 {
		return NewValidationError(ErrMsgQuantityPositive)
	}
	if req.UnitCost == nil {
		return nil
	}
	if kind != MovementReserve && kind != MovementIssue {
		return NewValidationError(ErrMsgUnitCostNotAllowed)
	}
	return validateUnitCost(*req.UnitCost)
}

func validateUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return NewValidationError(ErrMsgUnitCostNegative)
	}
	if !cost.Equal(cost.Truncate(CostScale)) {
		return NewValidationError(ErrMsgUnitCostScale)
	}
	if cost.GreaterThanOrEqual(MaxCostAmount) {
		return NewValidationError(ErrMsgUnitCostTooLarge)
	}
	return nil
}

// inTxWithRetry runs fn in a store transaction, re-running it with exponential backoff while
// the store reports write conflicts. Any other error stops immediately.
func (s *partsLedger) inTxWithRetry(ctx context.Context, op string, fn func(tx Tx) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 10 * time.Millisecond
	eb.MaxInterval = 250 * time.Millisecond

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.store.InTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConflict) {
			s.logger.Warn("write conflict, retrying transaction",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(eb, s.maxRetries), ctx))
}

// fail records err on the span and normalises infrastructure failures into KindUnexpected.
func (s *partsLedger) fail(span trace.Span, op string, err error) error {
	kind := KindOf(err)
	span.SetAttributes(attribute.String("ledger.error_kind", string(kind)))
	span.SetStatus(codes.Error, err.Error())

	if kind == KindUnexpected {
		span.RecordError(err)
		s.logger.Error("parts ledger operation failed", zap.String("operation", op), zap.Error(err))
		return &LedgerError{Kind: KindUnexpected, Message: "parts ledger " + op + " failed", Err: err}
	}
	s.logger.Info("parts ledger operation rejected",
		zap.String("operation", op),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return err
}

// committed logs the movement and forwards it to the publisher. A publish failure is logged
// only; the movement table remains the audit trail of record.
func (s *partsLedger) committed(ctx context.Context, span trace.Span, m *Movement) {
	span.SetAttributes(
		attribute.Int64("stock.on_hand_after", m.OnHandAfter),
		attribute.Int64("stock.reserved_after", m.ReservedAfter),
	)
	span.SetStatus(codes.Ok, string(m.Type)+" committed")

	s.logger.Info("movement committed",
		zap.String("movement_id", m.ID),
		zap.String("type", string(m.Type)),
		zap.String("tenant_id", m.TenantID),
		zap.String("work_order_id", m.WorkOrderID),
		zap.String("stock_source_id", m.StockRecordID),
		zap.Int64("quantity", m.Quantity),
		zap.Int64("on_hand_after", m.OnHandAfter),
		zap.Int64("reserved_after", m.ReservedAfter))

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, []Movement{*m}); err != nil {
		s.logger.Error("failed to publish movement",
			zap.String("movement_id", m.ID),
			zap.Error(err))
	}
}
