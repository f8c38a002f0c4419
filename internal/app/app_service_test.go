package app_test

import (
	"context"
	"errors"
	"testing"

	"maintenance-ledger/internal/app"
	"maintenance-ledger/internal/core"
	"maintenance-ledger/internal/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newService(t *testing.T) app.ApplicationService {
	t.Helper()
	store := memstore.New()
	store.AddWorkOrder(core.WorkOrderCosts{WorkOrderID: "wo1", TenantID: "t1", SiteID: "site1"})
	store.AddStockRecord(core.StockRecord{ID: "s1", TenantID: "t1", SiteID: "site1", PartID: "p1", OnHand: 10})
	store.SetPartCost("t1", "p1", decimal.NewFromInt(2))
	return app.NewAppService(core.NewPartsLedger(store, store), nil)
}

func request(qty int64) app.LineItemRequest {
	return app.LineItemRequest{TenantID: "t1", WorkOrderID: "wo1", StockSourceID: "s1", Quantity: qty, ActorID: "u1"}
}

func TestAppService_ReserveAndIssue(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, request(4))
	require.NoError(t, err)
	require.Len(t, res.LineItems, 1)
	assert.Equal(t, "wo1", res.WorkOrderID)
	assert.Equal(t, int64(4), res.LineItems[0].QtyReserved)

	res, err = svc.Issue(ctx, request(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LineItems[0].QtyIssued)

	costs, err := svc.GetWorkOrderCosts(ctx, "t1", "wo1")
	require.NoError(t, err)
	assert.True(t, costs.Costs.PartsCostTotal.Equal(decimal.NewFromInt(8)))
}

func TestAppService_UnitCostParsing(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	req := request(1)
	req.UnitCost = "3.75"
	res, err := svc.Reserve(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.LineItems[0].UnitCost.Equal(decimal.RequireFromString("3.75")))

	req.UnitCost = "cheap"
	_, err = svc.Reserve(ctx, req)
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestAppService_ListMovementsLimits(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.ListMovements(ctx, app.MovementQuery{TenantID: "t1", Limit: -1})
	assert.True(t, errors.Is(err, core.ErrValidation))

	empty, err := svc.ListMovements(ctx, app.MovementQuery{TenantID: "t1"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Movements)
	assert.Empty(t, empty.Movements)

	for i := 0; i < 3; i++ {
		_, err := svc.Reserve(ctx, request(1))
		require.NoError(t, err)
	}
	page, err := svc.ListMovements(ctx, app.MovementQuery{TenantID: "t1", StockSourceID: "s1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Movements, 2)
}

func TestAppService_Reconcile(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, request(2))
	require.NoError(t, err)

	res, err := svc.Reconcile(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Equal(t, int64(2), res.Report.LineItemReserved)
}

func TestAppService_Health(t *testing.T) {
	assert.NoError(t, newService(t).Health(context.Background()))

	svc := app.NewAppService(core.NewPartsLedger(memstore.New(), nil), failingPinger{})
	assert.ErrorContains(t, svc.Health(context.Background()), "database unreachable")
}
