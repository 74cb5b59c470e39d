// Package eventbus fans out market data, signals, fills, and order updates
// to any number of subscribers over bounded channels. A slow subscriber
// falls behind rather than stalling the publisher: once its buffer fills,
// the oldest pending event is dropped and the subscriber is told how many
// events it missed.
package eventbus

import (
	"jax-trading-assistant/libs/core"
)

// Kind identifies which payload an Event carries.
type Kind string

const (
	KindTick        Kind = "tick"
	KindCandle      Kind = "candle"
	KindOrderBook   Kind = "order_book"
	KindSignal      Kind = "signal"
	KindFill        Kind = "fill"
	KindOrderUpdate Kind = "order_update"
)

// Event is the envelope published on the bus. Exactly one of the payload
// fields is populated, selected by Kind.
type Event struct {
	Kind       Kind
	Tick       *core.Tick
	Candle     *core.Candle
	OrderBook  *core.OrderBook
	Signal     *core.Signal
	Fill       *core.Fill
	OrderState *core.Order
}

func TickEvent(t core.Tick) Event             { return Event{Kind: KindTick, Tick: &t} }
func CandleEvent(c core.Candle) Event         { return Event{Kind: KindCandle, Candle: &c} }
func OrderBookEvent(b core.OrderBook) Event   { return Event{Kind: KindOrderBook, OrderBook: &b} }
func SignalEvent(s core.Signal) Event         { return Event{Kind: KindSignal, Signal: &s} }
func FillEvent(f core.Fill) Event             { return Event{Kind: KindFill, Fill: &f} }
func OrderUpdateEvent(o core.Order) Event     { return Event{Kind: KindOrderUpdate, OrderState: &o} }
