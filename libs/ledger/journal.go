package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

// FillContext carries what EntriesFromFill needs beyond the Fill itself: the
// instrument's settlement shape and the realized P&L the portfolio computed
// for this fill (zero for an opening trade).
type FillContext struct {
	Fill        core.Fill
	Instrument  core.Instrument
	RealizedPnl decimal.Decimal
}

// EntriesFromFill derives the ledger entries representing a single fill's
// cash movements. Spot instruments post separate base and quote adjustments;
// perpetuals (linear or inverse) post one settlement-currency adjustment.
// A nonzero realized P&L and a nonzero fee each add their own entry.
func EntriesFromFill(ctx FillContext) []Entry {
	var entries []Entry
	switch ctx.Instrument.Kind {
	case core.InstrumentSpot:
		entries = spotEntries(ctx.Fill, ctx.Instrument)
	case core.InstrumentLinearPerp, core.InstrumentInversePerp:
		entries = derivativeEntries(ctx.Fill, ctx.Instrument)
	}

	if !ctx.RealizedPnl.IsZero() {
		entries = append(entries, buildEntry(ctx.Instrument.SettleAsset, ctx.RealizedPnl, ctx.Fill, TypeTradeRealizedPnl, "realized_pnl"))
	}

	if !ctx.Fill.Fee.IsZero() {
		feeAsset := ctx.Fill.FeeAsset
		if feeAsset == "" {
			if ctx.Instrument.Kind == core.InstrumentSpot {
				feeAsset = ctx.Instrument.QuoteAsset
			} else {
				feeAsset = ctx.Instrument.SettleAsset
			}
		}
		entries = append(entries, buildEntry(feeAsset, ctx.Fill.Fee.Neg(), ctx.Fill, TypeFee, "fee"))
	}

	return entries
}

func spotEntries(fill core.Fill, instrument core.Instrument) []Entry {
	qty := fill.Quantity
	notional := fill.Price.Mul(qty)

	var entries []Entry
	baseDelta := qty
	if fill.Side == core.SideSell {
		baseDelta = qty.Neg()
	}
	if !baseDelta.IsZero() {
		entries = append(entries, buildEntry(instrument.BaseAsset, baseDelta, fill, TypeAdjustment, "base"))
	}

	quoteDelta := notional.Neg()
	if fill.Side == core.SideSell {
		quoteDelta = notional
	}
	if !quoteDelta.IsZero() {
		entries = append(entries, buildEntry(instrument.QuoteAsset, quoteDelta, fill, TypeAdjustment, "quote"))
	}

	return entries
}

func derivativeEntries(fill core.Fill, instrument core.Instrument) []Entry {
	notional := fill.Price.Mul(fill.Quantity)
	direction := decimal.NewFromInt(1)
	if fill.Side == core.SideSell {
		direction = decimal.NewFromInt(-1)
	}
	settlementDelta := notional.Mul(direction).Neg()

	var entries []Entry
	if !settlementDelta.IsZero() {
		entries = append(entries, buildEntry(instrument.SettleAsset, settlementDelta, fill, TypeAdjustment, "settlement"))
	}
	return entries
}

func buildEntry(asset core.AssetID, amount decimal.Decimal, fill core.Fill, entryType Type, component string) Entry {
	entry := NewEntry(fill.Symbol.Venue, asset, amount, entryType, fill.OrderID)
	entry.Timestamp = fill.Timestamp
	if component != "" {
		meta, _ := json.Marshal(map[string]string{
			"symbol":    fill.Symbol.String(),
			"component": component,
		})
		entry.Meta = meta
	}
	return entry
}
