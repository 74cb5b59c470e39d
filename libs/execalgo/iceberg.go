package execalgo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

const KindIceberg = "ICEBERG"

func init() {
	RegisterKind(KindIceberg, func(raw json.RawMessage) (Algorithm, error) {
		var state icebergState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("execalgo: restore iceberg: %w", err)
		}
		return &Iceberg{state: state}, nil
	})
}

type icebergState struct {
	ID           uuid.UUID       `json:"id"`
	Symbol       core.Symbol     `json:"symbol"`
	Side         core.Side       `json:"side"`
	Status       string          `json:"status"`
	LimitPrice   decimal.Decimal `json:"limit_price"`
	Remaining    decimal.Decimal `json:"remaining"`
	DisplayQty   decimal.Decimal `json:"display_qty"`
	AwaitingSlot bool            `json:"awaiting_slot"` // true while a display-sized child order is resting
}

// Iceberg reveals only DisplayQty of TotalQty at a time, replenishing with a
// fresh slice each time the previous display slice fully fills. Supplements
// the distilled spec: OrderRequest.DisplayQty implies an iceberg execution
// style the trailing-stop-only spec excerpt didn't name a concrete algorithm
// for.
type Iceberg struct {
	state icebergState
}

// NewIceberg constructs an iceberg algorithm with the given limit price and
// per-slice display quantity.
func NewIceberg(signal core.Signal, limitPrice, displayQty decimal.Decimal) (*Iceberg, error) {
	if displayQty.Sign() <= 0 {
		return nil, fmt.Errorf("execalgo: iceberg display quantity must be positive")
	}
	if limitPrice.Sign() <= 0 {
		return nil, fmt.Errorf("execalgo: iceberg limit price must be positive")
	}
	remaining := signal.TargetQuantity
	if remaining.Sign() < 0 {
		remaining = decimal.Zero
	}
	return &Iceberg{state: icebergState{
		ID:         uuid.New(),
		Symbol:     signal.Symbol,
		Side:       signal.Side,
		Status:     "Working",
		LimitPrice: limitPrice,
		Remaining:  remaining,
		DisplayQty: displayQty,
	}}, nil
}

func (i *Iceberg) Kind() string  { return KindIceberg }
func (i *Iceberg) ID() uuid.UUID { return i.state.ID }

func (i *Iceberg) Status() Status {
	switch i.state.Status {
	case "Working":
		return Status{Working: true}
	case "Completed":
		return Status{Completed: true}
	case "Cancelled":
		return Status{Cancelled: true}
	default:
		return Status{Failed: i.state.Status}
	}
}

func (i *Iceberg) nextSlice() ChildOrderRequest {
	slice := i.state.DisplayQty
	if i.state.Remaining.LessThan(slice) {
		slice = i.state.Remaining
	}
	i.state.AwaitingSlot = true
	req := core.OrderRequest{
		Symbol:   i.state.Symbol,
		Side:     i.state.Side,
		Type:     core.OrderTypeLimit,
		Quantity: slice,
		Price:    i.state.LimitPrice,
	}
	return ChildOrderRequest{ParentAlgoID: i.state.ID, Place: &req}
}

func (i *Iceberg) Start() ([]ChildOrderRequest, error) {
	if i.state.Remaining.Sign() <= 0 {
		i.state.Status = "Completed"
		return nil, nil
	}
	return []ChildOrderRequest{i.nextSlice()}, nil
}

func (i *Iceberg) OnChildOrderPlaced(core.Order) {}

func (i *Iceberg) OnFill(fill core.Fill) ([]ChildOrderRequest, error) {
	i.state.Remaining = i.state.Remaining.Sub(fill.Quantity)
	if i.state.Remaining.Sign() < 0 {
		i.state.Remaining = decimal.Zero
	}
	i.state.AwaitingSlot = false
	if i.state.Remaining.IsZero() {
		i.state.Status = "Completed"
		return nil, nil
	}
	if !i.Status().Working {
		return nil, nil
	}
	return []ChildOrderRequest{i.nextSlice()}, nil
}

func (i *Iceberg) OnTick(core.Tick) ([]ChildOrderRequest, error)  { return nil, nil }
func (i *Iceberg) OnTimer() ([]ChildOrderRequest, error)          { return nil, nil }

func (i *Iceberg) Cancel() error {
	i.state.Status = "Cancelled"
	return nil
}

func (i *Iceberg) Snapshot() (json.RawMessage, error) {
	return json.Marshal(i.state)
}
