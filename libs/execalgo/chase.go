package execalgo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

const KindChase = "CHASE"

func init() {
	RegisterKind(KindChase, func(raw json.RawMessage) (Algorithm, error) {
		var state chaseState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("execalgo: restore chase: %w", err)
		}
		return &Chase{state: state}, nil
	})
}

type chaseState struct {
	ID        uuid.UUID       `json:"id"`
	Symbol    core.Symbol     `json:"symbol"`
	Side      core.Side       `json:"side"`
	Status    string          `json:"status"`
	Remaining decimal.Decimal `json:"remaining"`
	ClipSize  decimal.Decimal `json:"clip_size"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// Chase places successive limit clips at the last observed trade price,
// re-quoting every timer tick until the target quantity is exhausted.
// Grounded on the chase execution plugin's init/on_tick/on_timer shape.
type Chase struct {
	state chaseState
}

// NewChase constructs a chase algorithm for signal with the given clip size
// and initial reference price.
func NewChase(signal core.Signal, clipSize, initialPrice decimal.Decimal) (*Chase, error) {
	if clipSize.Sign() <= 0 {
		return nil, fmt.Errorf("execalgo: chase clip size must be positive")
	}
	remaining := signal.TargetQuantity
	if remaining.Sign() < 0 {
		remaining = decimal.Zero
	}
	price := initialPrice
	if price.Sign() <= 0 {
		price = one
	}
	return &Chase{state: chaseState{
		ID:        uuid.New(),
		Symbol:    signal.Symbol,
		Side:      signal.Side,
		Status:    "Working",
		Remaining: remaining,
		ClipSize:  clipSize,
		LastPrice: price,
	}}, nil
}

func (c *Chase) Kind() string  { return KindChase }
func (c *Chase) ID() uuid.UUID { return c.state.ID }

func (c *Chase) Status() Status {
	switch c.state.Status {
	case "Working":
		return Status{Working: true}
	case "Completed":
		return Status{Completed: true}
	case "Cancelled":
		return Status{Cancelled: true}
	default:
		return Status{Failed: c.state.Status}
	}
}

func (c *Chase) Start() ([]ChildOrderRequest, error) { return nil, nil }

func (c *Chase) OnChildOrderPlaced(core.Order) {}

func (c *Chase) OnFill(fill core.Fill) ([]ChildOrderRequest, error) {
	c.state.Remaining = c.state.Remaining.Sub(fill.Quantity)
	if c.state.Remaining.Sign() < 0 {
		c.state.Remaining = decimal.Zero
	}
	if c.state.Remaining.IsZero() {
		c.state.Status = "Completed"
	}
	return nil, nil
}

func (c *Chase) OnTick(tick core.Tick) ([]ChildOrderRequest, error) {
	c.state.LastPrice = tick.Price
	return nil, nil
}

func (c *Chase) OnTimer() ([]ChildOrderRequest, error) {
	if !c.Status().Working || c.state.Remaining.Sign() <= 0 {
		return nil, nil
	}
	slice := c.state.ClipSize
	if c.state.Remaining.LessThan(slice) {
		slice = c.state.Remaining
	}
	c.state.Remaining = c.state.Remaining.Sub(slice)
	req := core.OrderRequest{
		Symbol:   c.state.Symbol,
		Side:     c.state.Side,
		Type:     core.OrderTypeLimit,
		Quantity: slice,
		Price:    c.state.LastPrice,
	}
	return []ChildOrderRequest{{ParentAlgoID: c.state.ID, Place: &req}}, nil
}

func (c *Chase) Cancel() error {
	c.state.Status = "Cancelled"
	return nil
}

func (c *Chase) Snapshot() (json.RawMessage, error) {
	return json.Marshal(c.state)
}
