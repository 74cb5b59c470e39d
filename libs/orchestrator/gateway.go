// Package orchestrator wires together the execution algorithms, conditional
// order manager, rate limiter, ledger, and portfolio into the single
// coordination point the live runtime drives: one Signal in, a sequence of
// rate-limited child orders out, with every fill routed back to the
// algorithm that requested it, the portfolio, and the ledger. No fee model
// is applied in this package; child orders are sized without regard to fees,
// and ledger fee entries come from the fee each venue fill reports.
package orchestrator

import (
	"context"
	"fmt"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/ratelimit"
	"jax-trading-assistant/libs/resilience"
	"jax-trading-assistant/libs/venue"
)

// BrokerGateway is the rate-limited, circuit-broken front door to a
// venue.ExecutionClient. Every call blocks on the limiter before reaching the
// client, so a burst of algorithm activity degrades to the venue's real
// request budget instead of tripping its own rate limits; the circuit
// breaker then protects against a venue that is up but failing, tripping
// open after a run of errors instead of letting every algorithm hammer a
// broken connection.
type BrokerGateway struct {
	client  venue.ExecutionClient
	limiter *ratelimit.Limiter
	breaker *resilience.CircuitBreaker
}

// NewBrokerGateway wraps client with limiter and breaker. A nil limiter
// disables throttling and a nil breaker disables trip protection, useful in
// tests.
func NewBrokerGateway(client venue.ExecutionClient, limiter *ratelimit.Limiter, breaker *resilience.CircuitBreaker) *BrokerGateway {
	return &BrokerGateway{client: client, limiter: limiter, breaker: breaker}
}

func (g *BrokerGateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.UntilReady(ctx)
}

func (g *BrokerGateway) guard(fn func() (any, error)) (any, error) {
	if g.breaker == nil {
		return fn()
	}
	return g.breaker.Execute(fn)
}

// PlaceOrder rate-limits, circuit-breaks, then forwards to the underlying client.
func (g *BrokerGateway) PlaceOrder(ctx context.Context, req core.OrderRequest) (core.Order, error) {
	if err := g.wait(ctx); err != nil {
		return core.Order{}, fmt.Errorf("orchestrator: rate limit wait: %w", err)
	}
	result, err := g.guard(func() (any, error) {
		return g.client.PlaceOrder(ctx, req)
	})
	if err != nil {
		return core.Order{}, err
	}
	return result.(core.Order), nil
}

// AmendOrder rate-limits, circuit-breaks, then forwards to the underlying client.
func (g *BrokerGateway) AmendOrder(ctx context.Context, req core.UpdateRequest) (core.Order, error) {
	if err := g.wait(ctx); err != nil {
		return core.Order{}, fmt.Errorf("orchestrator: rate limit wait: %w", err)
	}
	result, err := g.guard(func() (any, error) {
		return g.client.AmendOrder(ctx, req)
	})
	if err != nil {
		return core.Order{}, err
	}
	return result.(core.Order), nil
}

// CancelOrder rate-limits, circuit-breaks, then forwards to the underlying client.
func (g *BrokerGateway) CancelOrder(ctx context.Context, venueOrderID string) error {
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("orchestrator: rate limit wait: %w", err)
	}
	_, err := g.guard(func() (any, error) {
		return nil, g.client.CancelOrder(ctx, venueOrderID)
	})
	return err
}

// Client returns the wrapped execution client, for callers that need direct
// access bypassing both the rate limiter and the circuit breaker.
func (g *BrokerGateway) Client() venue.ExecutionClient { return g.client }
