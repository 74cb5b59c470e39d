package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
)

func TestHandleCancelAllStopsAlgorithmsAndOrders(t *testing.T) {
	srv, orch, client := newTestServer(t)
	srv.RegisterCancelAll()
	primeTick(client, 100)

	order, err := client.PlaceOrder(context.Background(), core.OrderRequest{
		Symbol: testSymbol(), Side: core.SideBuy, Type: core.OrderTypeLimit,
		Price: decimal.NewFromInt(90), Quantity: decimal.NewFromInt(1), ClientOrderID: "c1",
	})
	require.NoError(t, err)
	orch.Portfolio().UpsertOrder(order)

	req := httptest.NewRequest(http.MethodPost, "/cancel-all", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp cancelAllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.CancelledOrders)

	open, err := client.OpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 0)
}

func TestHandleCancelAllRejectsNonPost(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterCancelAll()

	req := httptest.NewRequest(http.MethodGet, "/cancel-all", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
