package venue

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/fees"
)

func symbolBTC() core.Symbol { return core.Symbol{Venue: "paper", Code: "BTCUSDT"} }

func TestMarketOrderRequiresPriorTick(t *testing.T) {
	c := NewPaperExecutionClient(fees.Flat(decimal.Zero).BuildModel(), nil)
	_, err := c.PlaceOrder(context.Background(), core.OrderRequest{Symbol: symbolBTC(), Side: core.SideBuy, Type: core.OrderTypeMarket, Quantity: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrNoMarketPrice)
}

func TestMarketOrderFillsAtLastPrice(t *testing.T) {
	c := NewPaperExecutionClient(fees.Flat(decimal.Zero).BuildModel(), nil)
	c.OnTick(core.Tick{Symbol: symbolBTC(), Price: decimal.NewFromInt(100), Timestamp: time.Now()})

	order, err := c.PlaceOrder(context.Background(), core.OrderRequest{Symbol: symbolBTC(), Side: core.SideBuy, Type: core.OrderTypeMarket, Quantity: decimal.NewFromInt(2)})
	require.NoError(t, err)
	require.Equal(t, core.OrderStatusFilled, order.Status)

	fills, err := c.ListOrderFills(context.Background(), order.VenueOrderID)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	require.True(t, fills[0].Price.Equal(decimal.NewFromInt(100)))

	positions, err := c.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.True(t, positions[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestLimitOrderRestsUntilCrossed(t *testing.T) {
	c := NewPaperExecutionClient(fees.Flat(decimal.Zero).BuildModel(), nil)
	c.OnTick(core.Tick{Symbol: symbolBTC(), Price: decimal.NewFromInt(100), Timestamp: time.Now()})

	order, err := c.PlaceOrder(context.Background(), core.OrderRequest{Symbol: symbolBTC(), Side: core.SideBuy, Type: core.OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(90)})
	require.NoError(t, err)
	require.Equal(t, core.OrderStatusNew, order.Status)

	open, err := c.OpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)

	c.OnTick(core.Tick{Symbol: symbolBTC(), Price: decimal.NewFromInt(85), Timestamp: time.Now()})

	open, err = c.OpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 0)

	fills, err := c.ListOrderFills(context.Background(), order.VenueOrderID)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	require.True(t, fills[0].IsMaker)
}

func TestCancelOrderRemovesFromOpenBook(t *testing.T) {
	c := NewPaperExecutionClient(fees.Flat(decimal.Zero).BuildModel(), nil)
	c.OnTick(core.Tick{Symbol: symbolBTC(), Price: decimal.NewFromInt(100), Timestamp: time.Now()})
	order, err := c.PlaceOrder(context.Background(), core.OrderRequest{Symbol: symbolBTC(), Side: core.SideBuy, Type: core.OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(90)})
	require.NoError(t, err)

	require.NoError(t, c.CancelOrder(context.Background(), order.VenueOrderID))
	open, err := c.OpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 0)
}

func TestAmendOrderUpdatesPrice(t *testing.T) {
	c := NewPaperExecutionClient(fees.Flat(decimal.Zero).BuildModel(), nil)
	c.OnTick(core.Tick{Symbol: symbolBTC(), Price: decimal.NewFromInt(100), Timestamp: time.Now()})
	order, err := c.PlaceOrder(context.Background(), core.OrderRequest{Symbol: symbolBTC(), Side: core.SideBuy, Type: core.OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(80), ClientOrderID: "c1"})
	require.NoError(t, err)

	amended, err := c.AmendOrder(context.Background(), core.UpdateRequest{ClientOrderID: "c1", NewPrice: decimal.NewFromInt(95)})
	require.NoError(t, err)
	require.True(t, amended.Price.Equal(decimal.NewFromInt(95)))
	_ = order
}
