package repl_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"maintenance-ledger/internal/adapters/cli"
	"maintenance-ledger/internal/adapters/repl"
	"maintenance-ledger/internal/app"
	"maintenance-ledger/internal/core"
	"maintenance-ledger/internal/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() app.ApplicationService {
	store := memstore.New()
	store.AddWorkOrder(core.WorkOrderCosts{
		WorkOrderID: "wo1",
		TenantID:    "t1",
		SiteID:      "site1",
		LaborCost:   decimal.NewFromInt(40),
	})
	store.AddStockRecord(core.StockRecord{ID: "s1", TenantID: "t1", SiteID: "site1", PartID: "p1", OnHand: 8})
	return app.NewAppService(core.NewPartsLedger(store, store), nil)
}

func session(input string, svc app.ApplicationService) (string, error) {
	var out bytes.Buffer
	err := repl.Run(context.Background(), svc, cli.Session{TenantID: "t1", ActorID: "tech"}, strings.NewReader(input), &out)
	return out.String(), err
}

func TestRun_CommandsPrintTables(t *testing.T) {
	svc := newService()

	out, err := session("/reserve wo1 s1 3 2.00\n/costs wo1\n/stock s1\n/exit\n", svc)
	require.NoError(t, err)
	assert.Contains(t, out, "LINE ITEMS - Work order wo1")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "46.00")
	assert.Contains(t, out, "On hand: 5   Reserved: 3")
	assert.Contains(t, out, "Goodbye!")
}

func TestRun_ErrorsDoNotEndSession(t *testing.T) {
	svc := newService()

	out, err := session("/issue wo1 s1 1\n/bogus\nhello\n/stock s1\n", svc)
	require.NoError(t, err, "EOF ends the session cleanly")
	assert.Contains(t, out, "Error: "+core.ErrMsgNoReservation)
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "Commands start with /.")
	assert.Contains(t, out, "On hand: 8   Reserved: 0")
}

func TestRun_PickWizardReservesAndIssues(t *testing.T) {
	svc := newService()

	out, err := session("/pick\nwo1\ns1\n2\n\ny\n/exit\n", svc)
	require.NoError(t, err)
	assert.Contains(t, out, "Part p1: 8 on hand, 0 reserved")
	assert.Contains(t, out, "Reserved 2 of p1.")
	assert.Contains(t, out, "Issued 2 of p1.")

	stock, err := svc.GetStockRecord(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), stock.Stock.OnHand)
	assert.Equal(t, int64(0), stock.Stock.Reserved)
}

func TestRun_PickWizardCancel(t *testing.T) {
	svc := newService()

	out, err := session("/pick\nwo1\ncancel\n/exit\n", svc)
	require.NoError(t, err)
	assert.Contains(t, out, "Pick cancelled.")

	movements, err := svc.ListMovements(context.Background(), app.MovementQuery{TenantID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, movements.Movements)
}

func TestRun_TenantSwitch(t *testing.T) {
	svc := newService()

	out, err := session("/tenant t2\n/stock s1\n", svc)
	require.NoError(t, err)
	assert.Contains(t, out, "Tenant set to t2.")
	assert.Contains(t, out, "Error: "+core.ErrMsgStockSourceNotFound)
}

func TestRun_RequiresTenant(t *testing.T) {
	var out bytes.Buffer
	err := repl.Run(context.Background(), newService(), cli.Session{}, strings.NewReader(""), &out)
	assert.ErrorIs(t, err, cli.ErrUsage)
}
