package execalgo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

const KindTrailingStop = "TRAILING_STOP"

func init() {
	RegisterKind(KindTrailingStop, func(raw json.RawMessage) (Algorithm, error) {
		var state trailingStopState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("execalgo: restore trailing stop: %w", err)
		}
		return &TrailingStop{state: state}, nil
	})
}

type trailingStopState struct {
	ID                 uuid.UUID       `json:"id"`
	ParentSignal       core.Signal     `json:"parent_signal"`
	Status             string          `json:"status"` // "Working" | "Completed" | "Cancelled" | other=Failed(other)
	TotalQuantity      decimal.Decimal `json:"total_quantity"`
	FilledQuantity     decimal.Decimal `json:"filled_quantity"`
	ActivationPrice    decimal.Decimal `json:"activation_price"`
	CallbackRate       decimal.Decimal `json:"callback_rate"`
	HighestMarketPrice decimal.Decimal `json:"highest_market_price"`
	Activated          bool            `json:"activated"`
	Triggered          bool            `json:"triggered"`
}

// TrailingStop arms once price trades through an activation level, then
// fires a market order once price retraces by the configured callback rate
// from the highest price observed since activation.
type TrailingStop struct {
	state trailingStopState
}

// NewTrailingStop constructs an armed-but-inactive trailing stop for a
// sell-side exit signal. totalQuantity, activationPrice must be positive and
// callbackRate must lie in (0, 1).
func NewTrailingStop(signal core.Signal, totalQuantity, activationPrice, callbackRate decimal.Decimal) (*TrailingStop, error) {
	if totalQuantity.Sign() <= 0 {
		return nil, fmt.Errorf("execalgo: trailing stop quantity must be positive")
	}
	if signal.Side != core.SideSell {
		return nil, fmt.Errorf("execalgo: trailing stop currently supports sell-side signals only")
	}
	if activationPrice.Sign() <= 0 {
		return nil, fmt.Errorf("execalgo: activation price must be positive")
	}
	if callbackRate.Sign() <= 0 || callbackRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("execalgo: callback rate must be between 0 and 1")
	}
	return &TrailingStop{state: trailingStopState{
		ID:                 uuid.New(),
		ParentSignal:       signal,
		Status:             "Working",
		TotalQuantity:      totalQuantity,
		FilledQuantity:     decimal.Zero,
		ActivationPrice:    activationPrice,
		CallbackRate:       callbackRate,
		HighestMarketPrice: activationPrice,
	}}, nil
}

func (t *TrailingStop) Kind() string    { return KindTrailingStop }
func (t *TrailingStop) ID() uuid.UUID   { return t.state.ID }

func (t *TrailingStop) Status() Status {
	switch t.state.Status {
	case "Working":
		return Status{Working: true}
	case "Completed":
		return Status{Completed: true}
	case "Cancelled":
		return Status{Cancelled: true}
	default:
		return Status{Failed: t.state.Status}
	}
}

func (t *TrailingStop) remaining() decimal.Decimal {
	rem := t.state.TotalQuantity.Sub(t.state.FilledQuantity)
	if rem.Sign() < 0 {
		return decimal.Zero
	}
	return rem
}

func (t *TrailingStop) tryActivate(price decimal.Decimal) {
	if !t.state.Activated && price.GreaterThanOrEqual(t.state.ActivationPrice) {
		t.state.Activated = true
		t.state.HighestMarketPrice = price
	}
}

func (t *TrailingStop) updateTrail(price decimal.Decimal) {
	if price.GreaterThan(t.state.HighestMarketPrice) {
		t.state.HighestMarketPrice = price
	}
}

func (t *TrailingStop) buildChild(qty decimal.Decimal) ChildOrderRequest {
	req := core.OrderRequest{
		Symbol:        t.state.ParentSignal.Symbol,
		Side:          t.state.ParentSignal.Side,
		Type:          core.OrderTypeMarket,
		Quantity:      qty,
		ClientOrderID: fmt.Sprintf("trailing-%s", t.state.ID),
	}
	return ChildOrderRequest{ParentAlgoID: t.state.ID, Place: &req}
}

func (t *TrailingStop) Start() ([]ChildOrderRequest, error) { return nil, nil }

func (t *TrailingStop) OnChildOrderPlaced(core.Order) {}

func (t *TrailingStop) OnFill(fill core.Fill) ([]ChildOrderRequest, error) {
	t.state.FilledQuantity = t.state.FilledQuantity.Add(fill.Quantity)
	if t.remaining().Sign() <= 0 {
		t.state.Status = "Completed"
	}
	return nil, nil
}

var one = decimal.NewFromInt(1)

func (t *TrailingStop) OnTick(tick core.Tick) ([]ChildOrderRequest, error) {
	if !t.Status().Working {
		return nil, nil
	}

	if !t.state.Activated {
		t.tryActivate(tick.Price)
		return nil, nil
	}

	if t.state.Triggered {
		return nil, nil
	}

	t.updateTrail(tick.Price)
	threshold := t.state.HighestMarketPrice.Mul(one.Sub(t.state.CallbackRate))
	if tick.Price.LessThanOrEqual(threshold) {
		t.state.Triggered = true
		qty := t.remaining()
		if qty.Sign() > 0 {
			return []ChildOrderRequest{t.buildChild(qty)}, nil
		}
	}
	return nil, nil
}

func (t *TrailingStop) OnTimer() ([]ChildOrderRequest, error) { return nil, nil }

func (t *TrailingStop) Cancel() error {
	t.state.Status = "Cancelled"
	return nil
}

func (t *TrailingStop) Snapshot() (json.RawMessage, error) {
	return json.Marshal(t.state)
}
