package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirectRejectsKeyedOps(t *testing.T) {
	l := Direct(Quota{RatePerSecond: 10, Burst: 1})
	err := l.UntilKeyReady(context.Background(), "anything")
	require.ErrorIs(t, err, ErrUnexpectedKey)
}

func TestKeyedRejectsDirectOps(t *testing.T) {
	l := Keyed(Quota{RatePerSecond: 10, Burst: 1})
	err := l.UntilReady(context.Background())
	require.ErrorIs(t, err, ErrKeyRequired)
}

func TestDirectInsufficientCapacity(t *testing.T) {
	l := Direct(Quota{RatePerSecond: 10, Burst: 2})
	err := l.UntilUnitsReady(context.Background(), 3)
	require.ErrorIs(t, err, ErrInsufficientCapacity)
}

func TestKeyedBucketsAreIndependent(t *testing.T) {
	l := Keyed(Quota{RatePerSecond: 1000, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, l.UntilKeyReady(ctx, "a"))
	// "b" has its own bucket and should not be starved by "a" consuming its token.
	require.NoError(t, l.UntilKeyReady(ctx, "b"))
}

func TestDirectEventuallyReady(t *testing.T) {
	l := Direct(Quota{RatePerSecond: 1000, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, l.UntilReady(ctx))
	require.NoError(t, l.UntilReady(ctx)) // waits for refill, should not exceed context deadline
}
