package ledger

import "time"

// Query filters which ledger entries to load from storage. The zero value
// matches every entry in ascending sequence order.
type Query struct {
	Exchange     string
	Asset        string
	Type         Type
	StartSeq     *uint64
	EndSeq       *uint64
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Descending   bool
}

// WithExchange scopes the query to a single exchange.
func (q Query) WithExchange(exchange string) Query { q.Exchange = exchange; return q }

// WithAsset scopes the query to a single asset.
func (q Query) WithAsset(asset string) Query { q.Asset = asset; return q }

// WithType scopes the query to a single entry type.
func (q Query) WithType(t Type) Query { q.Type = t; return q }

// WithSequenceRange bounds the query by sequence number, inclusive.
func (q Query) WithSequenceRange(start, end *uint64) Query {
	q.StartSeq, q.EndSeq = start, end
	return q
}

// WithTimeRange bounds the query by timestamp, inclusive.
func (q Query) WithTimeRange(start, end *time.Time) Query {
	q.StartTime, q.EndTime = start, end
	return q
}

// WithLimit caps the number of entries returned.
func (q Query) WithLimit(limit int) Query { q.Limit = limit; return q }

// Desc returns a copy of the query with Descending set, reversing the default
// ascending-sequence order.
func (q Query) Desc() Query { q.Descending = true; return q }
