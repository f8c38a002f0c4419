package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"maintenance-ledger/internal/adapters/web"
	"maintenance-ledger/internal/app"
	"maintenance-ledger/internal/core"
	"maintenance-ledger/internal/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testServer struct {
	handler http.Handler
	store   *memstore.Store
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	store.AddWorkOrder(core.WorkOrderCosts{
		WorkOrderID: "wo1", TenantID: "t1", SiteID: "site1",
		LaborCost: decimal.NewFromInt(100),
	})
	store.AddStockRecord(core.StockRecord{ID: "s1", TenantID: "t1", SiteID: "site1", PartID: "p1", OnHand: 5})
	store.SetPartCost("t1", "p1", decimal.NewFromInt(10))

	svc := app.NewAppService(core.NewPartsLedger(store, store), nil)
	token, err := web.SignToken(testSecret, web.AuthClaims{TenantID: "t1", UserID: "u1", Role: "technician"}, time.Hour)
	require.NoError(t, err)

	return &testServer{
		handler: web.NewHandler(svc, []string{"http://localhost:3000"}, testSecret, nil),
		store:   store,
		token:   token,
	}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/work-orders/wo1/line-items", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/work-orders/wo1/line-items", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := web.SignToken("other-secret", web.AuthClaims{TenantID: "t1", UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/work-orders/wo1/line-items", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthCookie(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/work-orders/wo1/line-items", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: s.token})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestViewerCannotMutate(t *testing.T) {
	s := newTestServer(t)
	viewer, err := web.SignToken(testSecret, web.AuthClaims{TenantID: "t1", UserID: "v1", Role: web.RoleViewer}, time.Hour)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
		`{"stock_source_id":"s1","quantity":1}`, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/stock/s1", "", viewer)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReserveIssueFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
		`{"stock_source_id":"s1","quantity":3}`, s.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list app.LineItemListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.LineItems, 1)
	assert.Equal(t, int64(3), list.LineItems[0].QtyReserved)
	assert.Equal(t, "s1", list.LineItems[0].StockRecordID)

	rec = s.do(t, http.MethodPost, "/api/work-orders/wo1/line-items/issue",
		`{"stock_source_id":"s1","quantity":2,"unit_cost":"12.50"}`, s.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/work-orders/wo1/costs", "", s.token)
	require.Equal(t, http.StatusOK, rec.Code)
	var costs app.WorkOrderCostsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &costs))
	// 12.50 × 3 = 37.50, plus 100 labor.
	assert.True(t, costs.Costs.PartsCostTotal.Equal(decimal.RequireFromString("37.5")), costs.Costs.PartsCostTotal.String())
	assert.True(t, costs.Costs.TotalCost.Equal(decimal.RequireFromString("137.5")), costs.Costs.TotalCost.String())

	rec = s.do(t, http.MethodGet, "/api/movements?work_order_id=wo1", "", s.token)
	require.Equal(t, http.StatusOK, rec.Code)
	var history app.MovementListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Movements, 2)
	assert.Equal(t, core.MovementReserve, history.Movements[0].Type)
	assert.Equal(t, "u1", history.Movements[0].ActorID)
	assert.Equal(t, core.MovementIssue, history.Movements[1].Type)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"zero quantity", http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
			`{"stock_source_id":"s1","quantity":0}`, http.StatusBadRequest, "VALIDATION"},
		{"bad unit cost", http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
			`{"stock_source_id":"s1","quantity":1,"unit_cost":"abc"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
			`{"stock_source_id":"s1","qty":1}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown work order", http.MethodPost, "/api/work-orders/nope/line-items/reserve",
			`{"stock_source_id":"s1","quantity":1}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown stock", http.MethodGet, "/api/stock/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"oversell", http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
			`{"stock_source_id":"s1","quantity":6}`, http.StatusConflict, "INSUFFICIENT_QUANTITY"},
		{"issue without reservation", http.MethodPost, "/api/work-orders/wo1/line-items/issue",
			`{"stock_source_id":"s1","quantity":1}`, http.StatusNotFound, "NOT_FOUND"},
		{"bad limit", http.MethodGet, "/api/movements?limit=ten", "", http.StatusBadRequest, "VALIDATION"},
		{"unknown line item", http.MethodDelete, "/api/work-orders/wo1/line-items/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"unit cost on unreserve", http.MethodPost, "/api/work-orders/wo1/line-items/unreserve",
			`{"stock_source_id":"s1","quantity":1,"unit_cost":"3.00"}`, http.StatusBadRequest, "VALIDATION"},
		{"unit cost on return", http.MethodPost, "/api/work-orders/wo1/line-items/return",
			`{"stock_source_id":"s1","quantity":1,"unit_cost":3}`, http.StatusBadRequest, "VALIDATION"},
		{"unit cost too precise", http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
			`{"stock_source_id":"s1","quantity":1,"unit_cost":"1.23456"}`, http.StatusBadRequest, "VALIDATION"},
		{"unit cost too large", http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
			`{"stock_source_id":"s1","quantity":1,"unit_cost":"10000000000"}`, http.StatusBadRequest, "VALIDATION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.body, s.token)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestDeleteLineItem(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/work-orders/wo1/line-items/reserve",
		`{"stock_source_id":"s1","quantity":4}`, s.token)
	require.Equal(t, http.StatusOK, rec.Code)
	var list app.LineItemListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))

	rec = s.do(t, http.MethodDelete, "/api/work-orders/wo1/line-items/"+list.LineItems[0].ID, "", s.token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/stock/s1", "", s.token)
	var stock app.StockResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stock))
	assert.Equal(t, int64(5), stock.Stock.OnHand)
	assert.Equal(t, int64(0), stock.Stock.Reserved)

	rec = s.do(t, http.MethodGet, "/api/stock/s1/reconcile", "", s.token)
	var rec2 app.ReconciliationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rec2))
	assert.True(t, rec2.Consistent)
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	other, err := web.SignToken(testSecret, web.AuthClaims{TenantID: "t2", UserID: "x"}, time.Hour)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/stock/s1", "", other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/stock/s1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
