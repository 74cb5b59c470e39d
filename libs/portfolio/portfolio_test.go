package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/reconcile"
)

func TestApplyFillOpensAndClosesPosition(t *testing.T) {
	p := New(nil)
	ctx := context.Background()
	symbol := core.Symbol{Venue: "paper", Code: "BTCUSDT"}

	require.NoError(t, p.ApplyFill(ctx, core.Fill{
		FillID: "f1", Symbol: symbol, Side: core.SideBuy,
		Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100), Timestamp: time.Now(),
	}))
	pos := p.Position(symbol)
	require.NotNil(t, pos.Side)
	require.Equal(t, core.SideBuy, *pos.Side)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(1)))

	require.NoError(t, p.ApplyFill(ctx, core.Fill{
		FillID: "f2", Symbol: symbol, Side: core.SideSell,
		Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(110), Timestamp: time.Now(),
	}))
	pos = p.Position(symbol)
	require.Nil(t, pos.Side)
	require.True(t, pos.Quantity.IsZero())
}

func TestApplyFillIsIdempotent(t *testing.T) {
	p := New(nil)
	ctx := context.Background()
	symbol := core.Symbol{Venue: "paper", Code: "ETHUSDT"}
	fill := core.Fill{FillID: "dup", Symbol: symbol, Side: core.SideBuy, Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(50), Timestamp: time.Now()}

	require.NoError(t, p.ApplyFill(ctx, fill))
	require.NoError(t, p.ApplyFill(ctx, fill))

	pos := p.Position(symbol)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(2)))
}

func TestApplyFillIsIdempotentWithoutFillID(t *testing.T) {
	p := New(nil)
	ctx := context.Background()
	symbol := core.Symbol{Venue: "paper", Code: "ETHUSDT"}
	fill := core.Fill{
		OrderID: "order-1", Symbol: symbol, Side: core.SideBuy,
		Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(50), Timestamp: time.Now(),
	}

	require.NoError(t, p.ApplyFill(ctx, fill))
	require.NoError(t, p.ApplyFill(ctx, fill))

	pos := p.Position(symbol)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(2)))
}

func TestApplyFillDeductsFee(t *testing.T) {
	p := New(map[core.AssetID]core.AccountBalance{"paper:USDT": {Asset: "paper:USDT", Free: decimal.NewFromInt(1000)}})
	ctx := context.Background()

	require.NoError(t, p.ApplyFill(ctx, core.Fill{
		FillID: "f3", Symbol: core.Symbol{Venue: "paper", Code: "BTCUSDT"}, Side: core.SideBuy,
		Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100),
		Fee: decimal.NewFromInt(1), FeeAsset: "paper:USDT", Timestamp: time.Now(),
	}))

	bal := p.Balance("paper:USDT")
	require.True(t, bal.Free.Equal(decimal.NewFromInt(999)))
}

func TestEnterLiquidateOnlyIsIdempotent(t *testing.T) {
	p := New(nil)
	require.False(t, p.LiquidateOnly())
	require.NoError(t, p.EnterLiquidateOnly(context.Background()))
	require.True(t, p.LiquidateOnly())
	require.NoError(t, p.EnterLiquidateOnly(context.Background()))
	p.Resume()
	require.False(t, p.LiquidateOnly())
}

func TestSnapshotAndAdoptRemote(t *testing.T) {
	p := New(nil)
	symbol := core.Symbol{Venue: "paper", Code: "BTCUSDT"}
	side := core.SideBuy
	remote := reconcile.RemoteSnapshot{
		Positions: []core.Position{{Symbol: symbol, Side: &side, Quantity: decimal.NewFromInt(3)}},
		Balances:  []core.AccountBalance{{Asset: "paper:USDT", Free: decimal.NewFromInt(500)}},
		OpenOrders: []core.Order{
			{VenueOrderID: "o1", Symbol: symbol, Status: core.OrderStatusNew},
		},
	}
	p.AdoptRemoteSnapshot(remote)

	snap := p.Snapshot()
	require.Len(t, snap.Positions, 1)
	require.Len(t, snap.Balances, 1)
	require.Len(t, snap.OpenOrders, 1)
	require.True(t, snap.Positions[symbol].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestUpsertOrderRemovesTerminalOrders(t *testing.T) {
	p := New(nil)
	symbol := core.Symbol{Venue: "paper", Code: "BTCUSDT"}
	p.UpsertOrder(core.Order{VenueOrderID: "o1", Symbol: symbol, Status: core.OrderStatusNew})
	require.Len(t, p.OpenOrders(), 1)

	p.UpsertOrder(core.Order{VenueOrderID: "o1", Symbol: symbol, Status: core.OrderStatusFilled})
	require.Len(t, p.OpenOrders(), 0)
}
