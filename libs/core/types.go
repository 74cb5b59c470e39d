// Package core defines the shared vocabulary of the live execution kernel:
// symbols, instruments, orders, fills, positions and balances. Every other
// execution package (conditional, execalgo, orchestrator, reconcile, ledger,
// portfolio) builds on these types rather than inventing its own.
//
// Monetary and quantity fields are decimal.Decimal, never float64 — binary
// floats accumulate rounding error across fills and ledger postings that a
// double-entry accounting system cannot tolerate.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeID identifies a venue, e.g. "paper", "binance-futures".
type ExchangeID string

// AssetID identifies a settlement asset, scoped to an exchange, e.g. "paper:USDT".
type AssetID string

// Symbol identifies a tradeable instrument on a venue.
type Symbol struct {
	Venue ExchangeID
	Code  string
}

func (s Symbol) String() string { return string(s.Venue) + ":" + s.Code }

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// InstrumentKind distinguishes settlement mechanics that the ledger cares about.
type InstrumentKind string

const (
	InstrumentSpot          InstrumentKind = "spot"
	InstrumentLinearPerp    InstrumentKind = "linear_perp"
	InstrumentInversePerp   InstrumentKind = "inverse_perp"
)

// Instrument describes a tradeable symbol's settlement shape.
type Instrument struct {
	Symbol        Symbol
	Kind          InstrumentKind
	BaseAsset     AssetID
	QuoteAsset    AssetID
	SettleAsset   AssetID // used by perpetuals; equals QuoteAsset for linear, BaseAsset for inverse
	PriceTick     decimal.Decimal
	QuantityStep  decimal.Decimal
	ContractSize  decimal.Decimal // 1 for spot/linear; contract multiplier for inverse
}

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

// TimeInForce controls order lifetime at the venue.
type TimeInForce string

const (
	TIFGoodTilCancel  TimeInForce = "gtc"
	TIFImmediateOrCan TimeInForce = "ioc"
	TIFFillOrKill     TimeInForce = "fok"
)

// OrderStatus is the lifecycle state of an order. Terminal states never
// transition further.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// IsTerminal reports whether the status absorbs — no further transitions are valid.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// TriggerKind distinguishes conditional orders for OCO priority ordering.
// Lower values win ties when multiple conditional orders trigger at once.
type TriggerKind int

const (
	TriggerStopLoss   TriggerKind = 0
	TriggerTakeProfit TriggerKind = 1
	TriggerStandalone TriggerKind = 2
)

// OrderRequest is what a caller submits to place a new order.
type OrderRequest struct {
	Symbol         Symbol
	Side           Side
	Type           OrderType
	Quantity       decimal.Decimal
	Price          decimal.Decimal // zero for market orders
	TriggerPrice   decimal.Decimal // zero unless conditional
	TimeInForce    TimeInForce
	ClientOrderID  string
	DisplayQty     decimal.Decimal // zero means fully visible
	Trigger        TriggerKind
}

// UpdateRequest amends an existing resting order.
type UpdateRequest struct {
	ClientOrderID string
	NewPrice      decimal.Decimal
	NewQuantity   decimal.Decimal
}

// Order is the venue's view of a previously submitted OrderRequest.
type Order struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        Symbol
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	FilledQty     decimal.Decimal
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Fill is a single execution report against an order.
type Fill struct {
	FillID        string
	OrderID       string // VenueOrderID
	ClientOrderID string
	Symbol        Symbol
	Side          Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Fee           decimal.Decimal
	FeeAsset      AssetID
	IsMaker       bool
	RealizedPnl   decimal.Decimal
	Timestamp     time.Time
}

// Position is the net exposure in a single instrument.
type Position struct {
	Symbol     Symbol
	Side       *Side // nil when flat
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	UpdatedAt  time.Time
}

// IsFlat reports whether the position carries no exposure.
func (p Position) IsFlat() bool { return p.Quantity.IsZero() }

// AccountBalance is a single asset's free/locked balance at a venue.
type AccountBalance struct {
	Asset     AssetID
	Free      decimal.Decimal
	Locked    decimal.Decimal
	UpdatedAt time.Time
}

// Total returns Free+Locked.
func (b AccountBalance) Total() decimal.Decimal { return b.Free.Add(b.Locked) }

// Candle is an OHLCV bar.
type Candle struct {
	Symbol    Symbol
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	Timestamp time.Time
}

// Tick is a single trade print or quote update.
type Tick struct {
	Symbol    Symbol
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// OrderBookLevel is a single price/quantity level.
type OrderBookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a depth snapshot.
type OrderBook struct {
	Symbol    Symbol
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	Timestamp time.Time
}

// Signal is a strategy's request to enter or manage a position; the kernel
// treats its contents as opaque sizing/targeting hints, not a strategy
// decision — strategy authorship is out of scope for this module.
type Signal struct {
	ID             string
	Symbol         Symbol
	Side           Side
	TargetQuantity decimal.Decimal
	EntryPrice     decimal.Decimal
	StopLoss       decimal.Decimal
	TakeProfit     decimal.Decimal
	Params         map[string]string
	CreatedAt      time.Time
}
