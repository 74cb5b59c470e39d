package venue

import (
	"context"
	"sort"
	"time"

	"jax-trading-assistant/libs/core"
)

// ReplayMarketStream replays a fixed, pre-loaded sequence of ticks in
// timestamp order, pacing delivery by speed relative to the ticks' own
// timestamps. A speed of zero delivers every tick as fast as the consumer
// can drain the channel, useful for deterministic tests; a positive speed
// reproduces the original inter-tick gaps scaled by 1/speed.
type ReplayMarketStream struct {
	ticks []core.Tick
	speed float64
}

// NewReplayMarketStream returns a stream over ticks, sorted by timestamp.
// speed <= 0 means replay as fast as possible.
func NewReplayMarketStream(ticks []core.Tick, speed float64) *ReplayMarketStream {
	sorted := make([]core.Tick, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	return &ReplayMarketStream{ticks: sorted, speed: speed}
}

// Subscribe streams the loaded ticks filtered to the requested symbols. The
// returned channel is closed when replay completes or ctx is cancelled.
func (r *ReplayMarketStream) Subscribe(ctx context.Context, symbols []core.Symbol) (<-chan core.Tick, error) {
	wanted := make(map[core.Symbol]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	out := make(chan core.Tick, 64)
	go func() {
		defer close(out)
		var prevTs time.Time
		for i, tick := range r.ticks {
			if len(wanted) > 0 && !wanted[tick.Symbol] {
				continue
			}
			if r.speed > 0 && i > 0 && !prevTs.IsZero() {
				gap := tick.Timestamp.Sub(prevTs)
				if gap > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(time.Duration(float64(gap) / r.speed)):
					}
				}
			}
			prevTs = tick.Timestamp
			select {
			case <-ctx.Done():
				return
			case out <- tick:
			}
		}
	}()
	return out, nil
}
