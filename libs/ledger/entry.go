// Package ledger implements the append-only double-entry accounting journal:
// deriving entries from fills, assigning gap-free sequence numbers, and
// persisting them to a transactional store plus a date-partitioned
// analytical archive. See Repository for the storage contract both
// backends satisfy.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

// Type enumerates the ledger's line-item categories.
type Type string

const (
	TypeTradeRealizedPnl Type = "trade_realized_pnl"
	TypeFee              Type = "fee"
	TypeFunding          Type = "funding"
	TypeTransferIn       Type = "transfer_in"
	TypeTransferOut      Type = "transfer_out"
	TypeAdjustment       Type = "adjustment"
)

// ParseType validates a stored string against the known Type values.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeTradeRealizedPnl, TypeFee, TypeFunding, TypeTransferIn, TypeTransferOut, TypeAdjustment:
		return Type(s), nil
	default:
		return "", fmt.Errorf("ledger: unknown entry type %q", s)
	}
}

// Entry is the canonical record of a single balance delta.
type Entry struct {
	ID          uuid.UUID
	Sequence    uint64
	Timestamp   time.Time
	Exchange    core.ExchangeID
	Asset       core.AssetID
	Amount      decimal.Decimal
	Type        Type
	ReferenceID string
	Meta        json.RawMessage
}

// NewEntry creates an entry with sequence zero; the Sequencer assigns the
// real sequence number immediately before append.
func NewEntry(exchange core.ExchangeID, asset core.AssetID, amount decimal.Decimal, entryType Type, referenceID string) Entry {
	return Entry{
		ID:          uuid.New(),
		Timestamp:   time.Now().UTC(),
		Exchange:    exchange,
		Asset:       asset,
		Amount:      amount,
		Type:        entryType,
		ReferenceID: referenceID,
	}
}

// WithSequence returns a copy of e with the given sequence number assigned.
func (e Entry) WithSequence(seq uint64) Entry {
	e.Sequence = seq
	return e
}

// WithTimestamp returns a copy of e with the given timestamp assigned.
func (e Entry) WithTimestamp(ts time.Time) Entry {
	e.Timestamp = ts
	return e
}
