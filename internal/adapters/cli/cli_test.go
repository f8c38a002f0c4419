package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"maintenance-ledger/internal/adapters/cli"
	"maintenance-ledger/internal/app"
	"maintenance-ledger/internal/core"
	"maintenance-ledger/internal/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() app.ApplicationService {
	store := memstore.New()
	store.AddWorkOrder(core.WorkOrderCosts{WorkOrderID: "wo1", TenantID: "t1", SiteID: "site1"})
	store.AddStockRecord(core.StockRecord{ID: "s1", TenantID: "t1", SiteID: "site1", PartID: "p1", OnHand: 8})
	return app.NewAppService(core.NewPartsLedger(store, store), nil)
}

func run(t *testing.T, svc app.ApplicationService, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	err := cli.Run(context.Background(), svc, cli.Session{TenantID: "t1", ActorID: "cli"}, args, &out)
	return &out, err
}

func TestRun_ReserveThenHistory(t *testing.T) {
	svc := newService()

	out, err := run(t, svc, "reserve", "wo1", "s1", "3", "4.50")
	require.NoError(t, err)
	var list app.LineItemListResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	require.Len(t, list.LineItems, 1)
	assert.Equal(t, "4.5", list.LineItems[0].UnitCost.String())

	_, err = run(t, svc, "issue", "wo1", "s1", "1")
	require.NoError(t, err)

	out, err = run(t, svc, "history", "--work-order", "wo1", "--limit", "10")
	require.NoError(t, err)
	var history app.MovementListResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &history))
	require.Len(t, history.Movements, 2)
	assert.Equal(t, "cli", history.Movements[0].ActorID)

	out, err = run(t, svc, "stock", "s1")
	require.NoError(t, err)
	var stock app.StockResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &stock))
	assert.Equal(t, int64(5), stock.Stock.OnHand)
	assert.Equal(t, int64(2), stock.Stock.Reserved)
}

func TestRun_TenantFlagOverridesSession(t *testing.T) {
	svc := newService()
	_, err := run(t, svc, "--tenant", "t2", "stock", "s1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestRun_UsageErrors(t *testing.T) {
	svc := newService()
	for _, args := range [][]string{
		{},
		{"launch"},
		{"reserve", "wo1", "s1"},
		{"reserve", "wo1", "s1", "three"},
		{"unreserve", "wo1", "s1", "1", "9.99"},
		{"history", "--bogus"},
	} {
		_, err := run(t, svc, args...)
		assert.True(t, errors.Is(err, cli.ErrUsage), "args %v: %v", args, err)
	}
}

func TestRun_LedgerErrorsPassThrough(t *testing.T) {
	svc := newService()
	_, err := run(t, svc, "reserve", "wo1", "s1", "9")
	assert.True(t, errors.Is(err, core.ErrInsufficientQuantity))
}
