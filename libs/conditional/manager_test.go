package conditional

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
)

func pendingOrder(side core.Side, trigger decimal.Decimal, clientOrderID string) core.OrderRequest {
	return core.OrderRequest{
		Symbol:        core.Symbol{Venue: "paper", Code: "BTCUSDT"},
		Side:          side,
		Type:          core.OrderTypeStop,
		Quantity:      decimal.NewFromInt(1),
		TriggerPrice:  trigger,
		ClientOrderID: clientOrderID,
	}
}

func TestStopLossWinsOverTakeProfit(t *testing.T) {
	m := New()
	m.Push(pendingOrder(core.SideSell, decimal.NewFromInt(90), "base-sl"))
	m.Push(pendingOrder(core.SideSell, decimal.NewFromInt(110), "base-tp"))

	candle := core.Candle{
		Symbol:    core.Symbol{Venue: "paper", Code: "BTCUSDT"},
		Open:      decimal.NewFromInt(100),
		High:      decimal.NewFromInt(120),
		Low:       decimal.NewFromInt(80),
		Close:     decimal.NewFromInt(95),
		Timestamp: time.Now(),
	}

	triggered := m.TriggerWithCandle(candle)
	require.Len(t, triggered, 1)
	require.Equal(t, core.TriggerStopLoss, triggered[0].Kind)
	require.Equal(t, 0, m.Pending())
}

func TestStandaloneOrdersTriggerIndependently(t *testing.T) {
	m := New()
	m.Push(pendingOrder(core.SideBuy, decimal.NewFromInt(100), "standalone-a"))
	m.Push(pendingOrder(core.SideBuy, decimal.NewFromInt(200), "standalone-b"))

	triggered := m.TriggerWithPrice(decimal.NewFromInt(150), time.Now())
	require.Len(t, triggered, 1)
	require.Equal(t, core.TriggerStandalone, triggered[0].Kind)
	require.Equal(t, 1, m.Pending())
}

func TestUntouchedOrdersSurvive(t *testing.T) {
	m := New()
	m.Push(pendingOrder(core.SideSell, decimal.NewFromInt(50), "far-sl"))

	triggered := m.TriggerWithPrice(decimal.NewFromInt(100), time.Now())
	require.Empty(t, triggered)
	require.Equal(t, 1, m.Pending())
}
