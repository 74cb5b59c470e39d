// Package venue defines the kernel's boundary with the outside world: an
// ExecutionClient for order placement/cancellation/account queries and a
// MarketStream for tick feeds (candles and order books are not streamed
// through it). PaperExecutionClient and
// ReplayMarketStream are the concrete, in-process implementations this
// module ships; a live venue adapter (REST + websocket, à la the teacher's
// IB bridge client) plugs into the same interfaces without the rest of the
// kernel changing.
package venue

import (
	"context"

	"jax-trading-assistant/libs/core"
)

// ExecutionClient places and manages orders at a venue and reports account
// state. Every execution-path package (orchestrator, reconcile) depends on
// this interface, never on a concrete client.
type ExecutionClient interface {
	PlaceOrder(ctx context.Context, req core.OrderRequest) (core.Order, error)
	AmendOrder(ctx context.Context, req core.UpdateRequest) (core.Order, error)
	CancelOrder(ctx context.Context, venueOrderID string) error
	ListOrderFills(ctx context.Context, venueOrderID string) ([]core.Fill, error)
	OpenOrders(ctx context.Context) ([]core.Order, error)
	Positions(ctx context.Context) ([]core.Position, error)
	Balances(ctx context.Context) ([]core.AccountBalance, error)
}

// MarketStream delivers a continuous feed of ticks for the given symbols.
// Implementations close the returned channel when ctx is cancelled or the
// underlying feed ends.
type MarketStream interface {
	Subscribe(ctx context.Context, symbols []core.Symbol) (<-chan core.Tick, error)
}
