package execalgo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

const KindTWAP = "TWAP"

func init() {
	RegisterKind(KindTWAP, func(raw json.RawMessage) (Algorithm, error) {
		var state twapState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("execalgo: restore twap: %w", err)
		}
		return &TWAP{state: state}, nil
	})
}

type twapState struct {
	ID             uuid.UUID       `json:"id"`
	Symbol         core.Symbol     `json:"symbol"`
	Side           core.Side       `json:"side"`
	Status         string          `json:"status"`
	Remaining      decimal.Decimal `json:"remaining"`
	ClipQty        decimal.Decimal `json:"clip_qty"`
	ClipsRemaining int             `json:"clips_remaining"`
	LastPrice      decimal.Decimal `json:"last_price"`
}

// TWAP splits TargetQuantity into equal clips fired on successive OnTimer
// calls, reaching full size after the configured clip count regardless of
// price. Supplements the distilled spec with the time-weighted slicing
// primitive implied by the data model's generic OrderRequest shape.
type TWAP struct {
	state twapState
}

// NewTWAP splits signal.TargetQuantity into numClips equal clips by decimal
// division (the final clip sends whatever quantity remains, absorbing any
// rounding left by that division).
func NewTWAP(signal core.Signal, numClips int, initialPrice decimal.Decimal) (*TWAP, error) {
	if numClips <= 0 {
		return nil, fmt.Errorf("execalgo: twap clip count must be positive")
	}
	total := signal.TargetQuantity
	if total.Sign() < 0 {
		total = decimal.Zero
	}
	clip := total.Div(decimal.NewFromInt(int64(numClips)))
	return &TWAP{state: twapState{
		ID:             uuid.New(),
		Symbol:         signal.Symbol,
		Side:           signal.Side,
		Status:         "Working",
		Remaining:      total,
		ClipQty:        clip,
		ClipsRemaining: numClips,
		LastPrice:      initialPrice,
	}}, nil
}

func (w *TWAP) Kind() string  { return KindTWAP }
func (w *TWAP) ID() uuid.UUID { return w.state.ID }

func (w *TWAP) Status() Status {
	switch w.state.Status {
	case "Working":
		return Status{Working: true}
	case "Completed":
		return Status{Completed: true}
	case "Cancelled":
		return Status{Cancelled: true}
	default:
		return Status{Failed: w.state.Status}
	}
}

func (w *TWAP) Start() ([]ChildOrderRequest, error) { return nil, nil }

func (w *TWAP) OnChildOrderPlaced(core.Order) {}

func (w *TWAP) OnFill(fill core.Fill) ([]ChildOrderRequest, error) {
	w.state.Remaining = w.state.Remaining.Sub(fill.Quantity)
	if w.state.Remaining.Sign() < 0 {
		w.state.Remaining = decimal.Zero
	}
	if w.state.Remaining.IsZero() {
		w.state.Status = "Completed"
	}
	return nil, nil
}

func (w *TWAP) OnTick(tick core.Tick) ([]ChildOrderRequest, error) {
	w.state.LastPrice = tick.Price
	return nil, nil
}

func (w *TWAP) OnTimer() ([]ChildOrderRequest, error) {
	if !w.Status().Working || w.state.ClipsRemaining <= 0 {
		return nil, nil
	}
	slice := w.state.ClipQty
	w.state.ClipsRemaining--
	if w.state.ClipsRemaining == 0 || slice.GreaterThan(w.state.Remaining) {
		slice = w.state.Remaining
	}
	w.state.Remaining = w.state.Remaining.Sub(slice)
	req := core.OrderRequest{
		Symbol:   w.state.Symbol,
		Side:     w.state.Side,
		Type:     core.OrderTypeLimit,
		Quantity: slice,
		Price:    w.state.LastPrice,
	}
	return []ChildOrderRequest{{ParentAlgoID: w.state.ID, Place: &req}}, nil
}

func (w *TWAP) Cancel() error {
	w.state.Status = "Cancelled"
	return nil
}

func (w *TWAP) Snapshot() (json.RawMessage, error) {
	return json.Marshal(w.state)
}
