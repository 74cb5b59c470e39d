package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
)

func spotInstrument() core.Instrument {
	return core.Instrument{
		Symbol:     core.Symbol{Venue: "paper", Code: "BTCUSDT"},
		Kind:       core.InstrumentSpot,
		BaseAsset:  "paper:BTC",
		QuoteAsset: "paper:USDT",
	}
}

func TestEntriesFromFillSpotBuy(t *testing.T) {
	fill := core.Fill{
		OrderID:   "order-1",
		Symbol:    core.Symbol{Venue: "paper", Code: "BTCUSDT"},
		Side:      core.SideBuy,
		Quantity:  decimal.NewFromFloat(0.5),
		Price:     decimal.NewFromInt(25_000),
		Timestamp: time.Now(),
	}
	entries := EntriesFromFill(FillContext{Fill: fill, Instrument: spotInstrument()})
	require.Len(t, entries, 2)

	var base, quote *Entry
	for i := range entries {
		switch entries[i].Asset {
		case "paper:BTC":
			base = &entries[i]
		case "paper:USDT":
			quote = &entries[i]
		}
	}
	require.NotNil(t, base)
	require.NotNil(t, quote)
	require.True(t, base.Amount.Equal(decimal.NewFromFloat(0.5)))
	require.True(t, quote.Amount.Equal(decimal.NewFromInt(-12_500)))
}

func TestEntriesFromFillIncludesFeeAndPnl(t *testing.T) {
	fill := core.Fill{
		OrderID:     "order-2",
		Symbol:      core.Symbol{Venue: "paper", Code: "BTCUSDT"},
		Side:        core.SideSell,
		Quantity:    decimal.NewFromInt(1),
		Price:       decimal.NewFromInt(100),
		Fee:         decimal.NewFromFloat(0.1),
		FeeAsset:    "paper:USDT",
		RealizedPnl: decimal.NewFromInt(10),
		Timestamp:   time.Now(),
	}
	ctx := FillContext{Fill: fill, Instrument: spotInstrument(), RealizedPnl: decimal.NewFromInt(10)}
	entries := EntriesFromFill(ctx)

	var sawFee, sawPnl bool
	for _, e := range entries {
		if e.Type == TypeFee {
			sawFee = true
			require.True(t, e.Amount.Equal(decimal.NewFromFloat(-0.1)))
		}
		if e.Type == TypeTradeRealizedPnl {
			sawPnl = true
			require.True(t, e.Amount.Equal(decimal.NewFromInt(10)))
		}
	}
	require.True(t, sawFee)
	require.True(t, sawPnl)
}

func TestEntriesFromFillDerivative(t *testing.T) {
	instrument := core.Instrument{
		Symbol:      core.Symbol{Venue: "paper", Code: "BTCUSD-PERP"},
		Kind:        core.InstrumentLinearPerp,
		SettleAsset: "paper:USDT",
	}
	fill := core.Fill{
		OrderID:   "order-3",
		Symbol:    instrument.Symbol,
		Side:      core.SideBuy,
		Quantity:  decimal.NewFromInt(2),
		Price:     decimal.NewFromInt(50),
		Timestamp: time.Now(),
	}
	entries := EntriesFromFill(FillContext{Fill: fill, Instrument: instrument})
	require.Len(t, entries, 1)
	require.True(t, entries[0].Amount.Equal(decimal.NewFromInt(-100)))
}

func TestAccountingIdentityHolds(t *testing.T) {
	entries := []Entry{
		NewEntry("paper", "paper:USDT", decimal.NewFromInt(100), TypeTransferIn, "ref-1"),
		NewEntry("paper", "paper:USDT", decimal.NewFromInt(-25), TypeTransferOut, "ref-2"),
		NewEntry("paper", "paper:USDT", decimal.NewFromInt(60), TypeTradeRealizedPnl, "ref-3"),
		NewEntry("paper", "paper:USDT", decimal.NewFromInt(-15), TypeFee, "ref-4"),
	}
	assets, liabilities, equity := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case TypeTransferIn, TypeTransferOut:
			assets = assets.Add(e.Amount)
		case TypeFee:
			liabilities = liabilities.Add(e.Amount.Neg())
		case TypeFunding, TypeTradeRealizedPnl, TypeAdjustment:
			equity = equity.Add(e.Amount)
		}
	}
	require.True(t, assets.Equal(liabilities.Add(equity)))
}
