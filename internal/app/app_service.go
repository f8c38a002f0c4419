package app

import (
	"context"
	"fmt"

	"maintenance-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// MaxMovementLimit caps a single movement history page.
const MaxMovementLimit = 500

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type appService struct {
	ledger core.PartsLedger
	pinger Pinger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// pinger may be nil when there is no external store to check.
func NewAppService(ledger core.PartsLedger, pinger Pinger) ApplicationService {
	return &appService{ledger: ledger, pinger: pinger}
}

func (s *appService) ListLineItems(ctx context.Context, tenantID, workOrderID string) (*LineItemListResult, error) {
	items, err := s.ledger.ListLineItems(ctx, tenantID, workOrderID)
	if err != nil {
		return nil, err
	}
	return &LineItemListResult{WorkOrderID: workOrderID, LineItems: items}, nil
}

func (s *appService) Reserve(ctx context.Context, req LineItemRequest) (*LineItemListResult, error) {
	return s.mutate(ctx, req, s.ledger.Reserve)
}

func (s *appService) Unreserve(ctx context.Context, req LineItemRequest) (*LineItemListResult, error) {
	return s.mutate(ctx, req, s.ledger.Unreserve)
}

func (s *appService) Issue(ctx context.Context, req LineItemRequest) (*LineItemListResult, error) {
	return s.mutate(ctx, req, s.ledger.Issue)
}

func (s *appService) ReturnIssued(ctx context.Context, req LineItemRequest) (*LineItemListResult, error) {
	return s.mutate(ctx, req, s.ledger.ReturnIssued)
}

type mutation func(context.Context, core.MutationRequest) ([]core.LineItem, error)

func (s *appService) mutate(ctx context.Context, req LineItemRequest, op mutation) (*LineItemListResult, error) {
	mreq, err := toMutationRequest(req)
	if err != nil {
		return nil, err
	}
	items, err := op(ctx, mreq)
	if err != nil {
		return nil, err
	}
	return &LineItemListResult{WorkOrderID: req.WorkOrderID, LineItems: items}, nil
}

func toMutationRequest(req LineItemRequest) (core.MutationRequest, error) {
	mreq := core.MutationRequest{
		TenantID:      req.TenantID,
		WorkOrderID:   req.WorkOrderID,
		StockRecordID: req.StockSourceID,
		Quantity:      req.Quantity,
		ActorID:       req.ActorID,
	}
	if req.UnitCost != "" {
		cost, err := decimal.NewFromString(req.UnitCost)
		if err != nil {
			return mreq, core.NewValidationError(fmt.Sprintf("invalid unit cost %q", req.UnitCost))
		}
		mreq.UnitCost = &cost
	}
	return mreq, nil
}

func (s *appService) DeleteLineItem(ctx context.Context, tenantID, workOrderID, lineItemID, actorID string) error {
	return s.ledger.DeleteLineItem(ctx, tenantID, workOrderID, lineItemID, actorID)
}

func (s *appService) GetWorkOrderCosts(ctx context.Context, tenantID, workOrderID string) (*WorkOrderCostsResult, error) {
	costs, err := s.ledger.GetWorkOrderCosts(ctx, tenantID, workOrderID)
	if err != nil {
		return nil, err
	}
	return &WorkOrderCostsResult{Costs: *costs}, nil
}

func (s *appService) GetStockRecord(ctx context.Context, tenantID, stockSourceID string) (*StockResult, error) {
	stock, err := s.ledger.GetStockRecord(ctx, tenantID, stockSourceID)
	if err != nil {
		return nil, err
	}
	return &StockResult{Stock: *stock}, nil
}

// ListMovements applies a default and maximum page size of MaxMovementLimit.
func (s *appService) ListMovements(ctx context.Context, q MovementQuery) (*MovementListResult, error) {
	if q.Limit < 0 {
		return nil, core.NewValidationError("limit cannot be negative")
	}
	limit := q.Limit
	if limit == 0 || limit > MaxMovementLimit {
		limit = MaxMovementLimit
	}
	movements, err := s.ledger.ListMovements(ctx, core.MovementFilter{
		TenantID:      q.TenantID,
		WorkOrderID:   q.WorkOrderID,
		PartID:        q.PartID,
		StockRecordID: q.StockSourceID,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []core.Movement{}
	}
	return &MovementListResult{Movements: movements}, nil
}

func (s *appService) Reconcile(ctx context.Context, tenantID, stockSourceID string) (*ReconciliationResult, error) {
	report, err := s.ledger.Reconcile(ctx, tenantID, stockSourceID)
	if err != nil {
		return nil, err
	}
	return &ReconciliationResult{Report: *report, Consistent: report.Consistent()}, nil
}

func (s *appService) Health(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	if err := s.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
