// Package ratelimit provides the two rate-limiting shapes the broker gateway
// needs: a single direct bucket for a venue's global request quota, and a
// keyed family of buckets for per-endpoint or per-symbol quotas. Both sit on
// top of golang.org/x/time/rate, the idiomatic Go analogue of the token-bucket
// limiter the original connector built on its async runtime's governor crate.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrKeyRequired is returned when a direct-only operation (UntilReady,
// UntilUnitsReady) is called on a limiter constructed with Keyed, which
// requires a key for every wait.
var ErrKeyRequired = errors.New("ratelimit: this limiter requires a key identifier")

// ErrUnexpectedKey is returned when a keyed-only operation (UntilKeyReady,
// UntilKeyUnitsReady) is called on a limiter constructed with Direct.
var ErrUnexpectedKey = errors.New("ratelimit: this limiter does not accept keys")

// ErrInsufficientCapacity is returned when a requested burst exceeds the
// limiter's maximum burst size — waiting could never satisfy it.
var ErrInsufficientCapacity = errors.New("ratelimit: requested burst exceeds limiter capacity")

// Quota describes a steady rate plus the burst capacity the bucket can hold.
type Quota struct {
	RatePerSecond float64
	Burst         int
}

type kind int

const (
	kindDirect kind = iota
	kindKeyed
)

// Limiter is either a single direct bucket or a keyed family of buckets.
// The zero value is not usable — construct with Direct or Keyed.
type Limiter struct {
	kind   kind
	quota  Quota
	direct *rate.Limiter

	mu    sync.Mutex
	keyed map[string]*rate.Limiter
}

// Direct constructs a limiter with one shared bucket.
func Direct(q Quota) *Limiter {
	return &Limiter{kind: kindDirect, quota: q, direct: rate.NewLimiter(rate.Limit(q.RatePerSecond), q.Burst)}
}

// Keyed constructs a limiter that lazily creates one bucket per key, each
// with the same quota.
func Keyed(q Quota) *Limiter {
	return &Limiter{kind: kindKeyed, quota: q, keyed: make(map[string]*rate.Limiter)}
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.keyed[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.quota.RatePerSecond), l.quota.Burst)
		l.keyed[key] = b
	}
	return b
}

// UntilReady blocks until the direct bucket has one token available.
func (l *Limiter) UntilReady(ctx context.Context) error {
	if l.kind != kindDirect {
		return ErrKeyRequired
	}
	return l.direct.Wait(ctx)
}

// UntilKeyReady blocks until the named key's bucket has one token available.
func (l *Limiter) UntilKeyReady(ctx context.Context, key string) error {
	if l.kind != kindKeyed {
		return ErrUnexpectedKey
	}
	return l.bucketFor(key).Wait(ctx)
}

// UntilUnitsReady blocks until the direct bucket has n tokens available.
func (l *Limiter) UntilUnitsReady(ctx context.Context, n int) error {
	if l.kind != kindDirect {
		return ErrKeyRequired
	}
	if n > l.direct.Burst() {
		return ErrInsufficientCapacity
	}
	return l.direct.WaitN(ctx, n)
}

// UntilKeyUnitsReady blocks until the named key's bucket has n tokens available.
func (l *Limiter) UntilKeyUnitsReady(ctx context.Context, key string, n int) error {
	if l.kind != kindKeyed {
		return ErrUnexpectedKey
	}
	b := l.bucketFor(key)
	if n > b.Burst() {
		return ErrInsufficientCapacity
	}
	return b.WaitN(ctx, n)
}
