package venue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/fees"
)

// ErrUnknownOrder is returned when an order id is not tracked by the paper
// client, either because it was never placed or already reached a terminal
// state.
var ErrUnknownOrder = fmt.Errorf("venue: unknown order")

// ErrNoMarketPrice is returned placing a market order for a symbol the
// client has never received a tick for.
var ErrNoMarketPrice = fmt.Errorf("venue: no market price available")

type restingOrder struct {
	order core.Order
	req   core.OrderRequest
}

// PaperExecutionClient is an in-memory order matching simulator: market
// orders fill immediately against the last observed tick price, limit
// orders rest until a subsequent tick crosses their price. It exists so the
// orchestrator and control plane can be exercised end to end without a real
// venue connection, the same role the original system's paper connector
// played.
type PaperExecutionClient struct {
	mu        sync.Mutex
	feeModel  fees.Model
	lastPrice map[core.Symbol]decimal.Decimal
	orders    map[string]*restingOrder // keyed by VenueOrderID
	fills     map[string][]core.Fill   // keyed by VenueOrderID
	positions map[core.Symbol]core.Position
	balances  map[core.AssetID]core.AccountBalance
}

// NewPaperExecutionClient returns a simulator seeded with starting balances.
func NewPaperExecutionClient(feeModel fees.Model, startingBalances map[core.AssetID]core.AccountBalance) *PaperExecutionClient {
	balances := make(map[core.AssetID]core.AccountBalance, len(startingBalances))
	for asset, bal := range startingBalances {
		balances[asset] = bal
	}
	return &PaperExecutionClient{
		feeModel:  feeModel,
		lastPrice: make(map[core.Symbol]decimal.Decimal),
		orders:    make(map[string]*restingOrder),
		fills:     make(map[string][]core.Fill),
		positions: make(map[core.Symbol]core.Position),
		balances:  balances,
	}
}

// OnTick feeds a new market print into the simulator, filling any resting
// limit order whose price the tick crosses.
func (c *PaperExecutionClient) OnTick(tick core.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPrice[tick.Symbol] = tick.Price

	for id, ro := range c.orders {
		if ro.order.Symbol != tick.Symbol || ro.order.Status.IsTerminal() {
			continue
		}
		if !crosses(ro.order, tick.Price) {
			continue
		}
		c.fill(id, ro, tick.Price, tick.Timestamp)
	}
}

func crosses(order core.Order, price decimal.Decimal) bool {
	switch order.Side {
	case core.SideBuy:
		return price.LessThanOrEqual(order.Price)
	default:
		return price.GreaterThanOrEqual(order.Price)
	}
}

func (c *PaperExecutionClient) PlaceOrder(ctx context.Context, req core.OrderRequest) (core.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New().String()
	order := core.Order{
		ClientOrderID: req.ClientOrderID,
		VenueOrderID:  id,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        core.OrderStatusNew,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if req.Type == core.OrderTypeMarket {
		last, ok := c.lastPrice[req.Symbol]
		if !ok {
			return core.Order{}, fmt.Errorf("%w: %s", ErrNoMarketPrice, req.Symbol)
		}
		ro := &restingOrder{order: order, req: req}
		c.orders[id] = ro
		c.fill(id, ro, last, time.Now().UTC())
		return c.orders[id].order, nil
	}

	ro := &restingOrder{order: order, req: req}
	c.orders[id] = ro
	if last, ok := c.lastPrice[req.Symbol]; ok && crosses(order, last) {
		c.fill(id, ro, last, time.Now().UTC())
	}
	return c.orders[id].order, nil
}

func (c *PaperExecutionClient) fill(id string, ro *restingOrder, price decimal.Decimal, ts time.Time) {
	remaining := ro.order.Quantity.Sub(ro.order.FilledQty)
	if remaining.IsZero() || remaining.IsNegative() {
		return
	}

	role := fees.RoleTaker
	if ro.order.Type == core.OrderTypeLimit {
		role = fees.RoleMaker
	}
	fee := c.feeModel.Fee(fees.Context{Symbol: ro.order.Symbol, Side: ro.order.Side, Role: role}, price, remaining)

	fillRecord := core.Fill{
		FillID:        uuid.New().String(),
		OrderID:       ro.order.VenueOrderID,
		ClientOrderID: ro.order.ClientOrderID,
		Symbol:        ro.order.Symbol,
		Side:          ro.order.Side,
		Quantity:      remaining,
		Price:         price,
		Fee:           fee,
		IsMaker:       role == fees.RoleMaker,
		Timestamp:     ts,
	}
	c.fills[id] = append(c.fills[id], fillRecord)

	ro.order.FilledQty = ro.order.Quantity
	ro.order.Status = core.OrderStatusFilled
	ro.order.UpdatedAt = ts
	c.applyPositionLocked(fillRecord)

	log.Printf("venue/paper: filled order=%s symbol=%s side=%s qty=%s price=%s", id, ro.order.Symbol, ro.order.Side, fillRecord.Quantity, price)
}

func (c *PaperExecutionClient) applyPositionLocked(fill core.Fill) {
	pos := c.positions[fill.Symbol]
	pos.Symbol = fill.Symbol
	signed := fill.Quantity
	if fill.Side == core.SideSell {
		signed = signed.Neg()
	}
	current := decimal.Zero
	if pos.Side != nil {
		current = pos.Quantity
		if *pos.Side == core.SideSell {
			current = current.Neg()
		}
	}
	updated := current.Add(signed)
	switch {
	case updated.IsZero():
		pos.Side = nil
		pos.Quantity = decimal.Zero
	case updated.IsPositive():
		side := core.SideBuy
		pos.Side = &side
		pos.Quantity = updated
	default:
		side := core.SideSell
		pos.Side = &side
		pos.Quantity = updated.Neg()
	}
	pos.UpdatedAt = fill.Timestamp
	c.positions[fill.Symbol] = pos
}

func (c *PaperExecutionClient) AmendOrder(ctx context.Context, req core.UpdateRequest) (core.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ro := range c.orders {
		if ro.order.ClientOrderID != req.ClientOrderID {
			continue
		}
		if ro.order.Status.IsTerminal() {
			return core.Order{}, fmt.Errorf("%w: %s is terminal", ErrUnknownOrder, req.ClientOrderID)
		}
		if !req.NewPrice.IsZero() {
			ro.order.Price = req.NewPrice
		}
		if !req.NewQuantity.IsZero() {
			ro.order.Quantity = req.NewQuantity
		}
		ro.order.UpdatedAt = time.Now().UTC()
		return ro.order, nil
	}
	return core.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, req.ClientOrderID)
}

func (c *PaperExecutionClient) CancelOrder(ctx context.Context, venueOrderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ro, ok := c.orders[venueOrderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, venueOrderID)
	}
	if ro.order.Status.IsTerminal() {
		return nil
	}
	ro.order.Status = core.OrderStatusCancelled
	ro.order.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *PaperExecutionClient) ListOrderFills(ctx context.Context, venueOrderID string) ([]core.Fill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Fill, len(c.fills[venueOrderID]))
	copy(out, c.fills[venueOrderID])
	return out, nil
}

func (c *PaperExecutionClient) OpenOrders(ctx context.Context) ([]core.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.Order
	for _, ro := range c.orders {
		if !ro.order.Status.IsTerminal() {
			out = append(out, ro.order)
		}
	}
	return out, nil
}

func (c *PaperExecutionClient) Positions(ctx context.Context) ([]core.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Position, 0, len(c.positions))
	for _, p := range c.positions {
		if !p.IsFlat() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *PaperExecutionClient) Balances(ctx context.Context) ([]core.AccountBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.AccountBalance, 0, len(c.balances))
	for _, b := range c.balances {
		out = append(out, b)
	}
	return out, nil
}
