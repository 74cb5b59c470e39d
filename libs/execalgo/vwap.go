package execalgo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

const KindVWAP = "VWAP"

func init() {
	RegisterKind(KindVWAP, func(raw json.RawMessage) (Algorithm, error) {
		var state vwapState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("execalgo: restore vwap: %w", err)
		}
		return &VWAP{state: state}, nil
	})
}

type vwapState struct {
	ID          uuid.UUID         `json:"id"`
	Symbol      core.Symbol       `json:"symbol"`
	Side        core.Side         `json:"side"`
	Status      string            `json:"status"`
	Remaining   decimal.Decimal   `json:"remaining"`
	Total       decimal.Decimal   `json:"total"`
	VolumeCurve []decimal.Decimal `json:"volume_curve"` // fraction of total volume per bucket, sums to ~1
	BucketIndex int               `json:"bucket_index"`
	LastPrice   decimal.Decimal   `json:"last_price"`
}

// VWAP slices TargetQuantity across buckets weighted by a supplied
// historical volume curve rather than splitting evenly like TWAP — each
// OnTimer call consumes the next bucket's weight. Supplements the distilled
// spec with the volume-weighted counterpart to TWAP that a complete
// execution-algorithm library would carry alongside it.
type VWAP struct {
	state vwapState
}

// NewVWAP constructs a VWAP algorithm. volumeCurve weights need not sum to
// exactly one; the final bucket always consumes whatever remains.
func NewVWAP(signal core.Signal, volumeCurve []decimal.Decimal, initialPrice decimal.Decimal) (*VWAP, error) {
	if len(volumeCurve) == 0 {
		return nil, fmt.Errorf("execalgo: vwap volume curve must not be empty")
	}
	total := signal.TargetQuantity
	if total.Sign() < 0 {
		total = decimal.Zero
	}
	curve := make([]decimal.Decimal, len(volumeCurve))
	copy(curve, volumeCurve)
	return &VWAP{state: vwapState{
		ID:          uuid.New(),
		Symbol:      signal.Symbol,
		Side:        signal.Side,
		Status:      "Working",
		Remaining:   total,
		Total:       total,
		VolumeCurve: curve,
		LastPrice:   initialPrice,
	}}, nil
}

func (v *VWAP) Kind() string  { return KindVWAP }
func (v *VWAP) ID() uuid.UUID { return v.state.ID }

func (v *VWAP) Status() Status {
	switch v.state.Status {
	case "Working":
		return Status{Working: true}
	case "Completed":
		return Status{Completed: true}
	case "Cancelled":
		return Status{Cancelled: true}
	default:
		return Status{Failed: v.state.Status}
	}
}

func (v *VWAP) Start() ([]ChildOrderRequest, error) { return nil, nil }

func (v *VWAP) OnChildOrderPlaced(core.Order) {}

func (v *VWAP) OnFill(fill core.Fill) ([]ChildOrderRequest, error) {
	v.state.Remaining = v.state.Remaining.Sub(fill.Quantity)
	if v.state.Remaining.Sign() < 0 {
		v.state.Remaining = decimal.Zero
	}
	if v.state.Remaining.IsZero() {
		v.state.Status = "Completed"
	}
	return nil, nil
}

func (v *VWAP) OnTick(tick core.Tick) ([]ChildOrderRequest, error) {
	v.state.LastPrice = tick.Price
	return nil, nil
}

func (v *VWAP) OnTimer() ([]ChildOrderRequest, error) {
	if !v.Status().Working || v.state.BucketIndex >= len(v.state.VolumeCurve) {
		return nil, nil
	}
	last := v.state.BucketIndex == len(v.state.VolumeCurve)-1
	weight := v.state.VolumeCurve[v.state.BucketIndex]
	v.state.BucketIndex++

	var slice decimal.Decimal
	if last {
		slice = v.state.Remaining
	} else {
		slice = v.state.Total.Mul(weight)
		if slice.GreaterThan(v.state.Remaining) {
			slice = v.state.Remaining
		}
	}
	if slice.Sign() <= 0 {
		return nil, nil
	}
	v.state.Remaining = v.state.Remaining.Sub(slice)
	req := core.OrderRequest{
		Symbol:   v.state.Symbol,
		Side:     v.state.Side,
		Type:     core.OrderTypeLimit,
		Quantity: slice,
		Price:    v.state.LastPrice,
	}
	return []ChildOrderRequest{{ParentAlgoID: v.state.ID, Place: &req}}, nil
}

func (v *VWAP) Cancel() error {
	v.state.Status = "Cancelled"
	return nil
}

func (v *VWAP) Snapshot() (json.RawMessage, error) {
	return json.Marshal(v.state)
}
