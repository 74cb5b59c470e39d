package ledger

import "context"

// Repository is the storage contract both the transactional SQL store and
// the columnar archive satisfy. Append is expected to assign entries their
// final sequence number via a Sequencer before calling the backend.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	AppendBatch(ctx context.Context, entries []Entry) error
	LatestSequence(ctx context.Context) (uint64, error)
	Query(ctx context.Context, q Query) ([]Entry, error)
}
