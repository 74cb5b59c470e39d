package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/ratelimit"
	"jax-trading-assistant/libs/resilience"
)

type failingClient struct {
	err error
}

func (c *failingClient) PlaceOrder(context.Context, core.OrderRequest) (core.Order, error) {
	return core.Order{}, c.err
}
func (c *failingClient) AmendOrder(context.Context, core.UpdateRequest) (core.Order, error) {
	return core.Order{}, c.err
}
func (c *failingClient) CancelOrder(context.Context, string) error { return c.err }
func (c *failingClient) ListOrderFills(context.Context, string) ([]core.Fill, error) {
	return nil, c.err
}
func (c *failingClient) OpenOrders(context.Context) ([]core.Order, error)         { return nil, c.err }
func (c *failingClient) Positions(context.Context) ([]core.Position, error)       { return nil, c.err }
func (c *failingClient) Balances(context.Context) ([]core.AccountBalance, error)  { return nil, c.err }

func TestBrokerGatewayPassesThroughWithoutLimiterOrBreaker(t *testing.T) {
	client := &failingClient{err: nil}
	gw := NewBrokerGateway(client, nil, nil)
	_, err := gw.PlaceOrder(context.Background(), core.OrderRequest{})
	require.NoError(t, err)
}

func TestBrokerGatewayWaitsOnLimiter(t *testing.T) {
	limiter := ratelimit.Direct(ratelimit.Quota{RatePerSecond: 1, Burst: 1})
	client := &failingClient{err: nil}
	gw := NewBrokerGateway(client, limiter, nil)

	ctx := context.Background()
	_, err := gw.PlaceOrder(ctx, core.OrderRequest{})
	require.NoError(t, err)

	// Second call exhausts the burst-1 bucket; bound the wait so the test
	// fails fast instead of blocking forever if the limiter misbehaves.
	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = gw.PlaceOrder(ctx2, core.OrderRequest{})
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestBrokerGatewayTripsCircuitBreakerAfterRepeatedFailures(t *testing.T) {
	boom := errors.New("venue unreachable")
	client := &failingClient{err: boom}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "test",
		MaxRequests: 1,
		MaxFailures: 2,
	})
	gw := NewBrokerGateway(client, nil, breaker)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := gw.PlaceOrder(ctx, core.OrderRequest{})
		require.Error(t, err)
	}

	// After enough consecutive failures the breaker should be open, rejecting
	// calls without reaching the underlying client.
	_, err := gw.PlaceOrder(ctx, core.OrderRequest{})
	require.Error(t, err)
}

func TestBrokerGatewayCancelOrderPropagatesError(t *testing.T) {
	boom := errors.New("cancel failed")
	client := &failingClient{err: boom}
	gw := NewBrokerGateway(client, nil, nil)
	err := gw.CancelOrder(context.Background(), "v1")
	require.ErrorIs(t, err, boom)
}
