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

func TestHandleOpenOrdersReturnsRestingOrders(t *testing.T) {
	srv, orch, client := newTestServer(t)
	srv.RegisterOpenOrders()
	primeTick(client, 100)

	order, err := client.PlaceOrder(context.Background(), core.OrderRequest{
		Symbol: testSymbol(), Side: core.SideBuy, Type: core.OrderTypeLimit,
		Price: decimal.NewFromInt(90), Quantity: decimal.NewFromInt(1), ClientOrderID: "c1",
	})
	require.NoError(t, err)
	orch.Portfolio().UpsertOrder(order)

	req := httptest.NewRequest(http.MethodGet, "/orders/open", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]core.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body["orders"], 1)
}

func TestHandleOpenOrdersRejectsNonGet(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterOpenOrders()

	req := httptest.NewRequest(http.MethodDelete, "/orders/open", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
