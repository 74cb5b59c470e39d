package ledger

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Sequencer assigns monotonic, gap-free sequence numbers to ledger entries.
// Bootstrap from the repository's latest persisted sequence so a restart
// never reuses or skips a number.
type Sequencer struct {
	next atomic.Uint64
}

// Bootstrap returns a Sequencer primed from repo.LatestSequence().
func Bootstrap(ctx context.Context, repo Repository) (*Sequencer, error) {
	latest, err := repo.LatestSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: bootstrapping sequencer: %w", err)
	}
	s := &Sequencer{}
	s.next.Store(latest + 1)
	return s, nil
}

// Next returns the next sequence number and advances the counter.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1) - 1
}
