// Package portfolio tracks positions, balances, and open orders for the
// live execution kernel: one mutex-guarded book of record that the
// orchestrator, control plane, and reconciliation handlers all read and
// mutate through. Fill application is idempotent on the composite key
// (order id, fill timestamp, fill quantity, fill price), so a replayed fill
// from the reconciliation path never double-counts — including a fill
// reported with no FillID at all.
package portfolio

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/reconcile"
)

// Portfolio is the single in-memory book of positions, balances, and open
// orders. All access goes through its mutex; there is no actor goroutine —
// callers invoke methods directly, matching the synchronous style the rest
// of this codebase uses for shared state.
type Portfolio struct {
	mu            sync.RWMutex
	positions     map[core.Symbol]core.Position
	balances      map[core.AssetID]core.AccountBalance
	openOrders    map[string]core.Order // keyed by VenueOrderID
	appliedFills  map[string]struct{}
	liquidateOnly bool
	liquidateSince time.Time
}

// New returns an empty Portfolio seeded with the given starting balances.
func New(startingBalances map[core.AssetID]core.AccountBalance) *Portfolio {
	balances := make(map[core.AssetID]core.AccountBalance, len(startingBalances))
	for asset, bal := range startingBalances {
		balances[asset] = bal
	}
	return &Portfolio{
		positions:    make(map[core.Symbol]core.Position),
		balances:     balances,
		openOrders:   make(map[string]core.Order),
		appliedFills: make(map[string]struct{}),
	}
}

// ApplyFill updates the position and balance books for a single execution
// report. Applying the same (order id, fill timestamp, fill quantity, fill
// price) twice is a no-op, which makes fill replay from the reconciliation
// runtime handler safe even for a fill reported with no FillID.
func (p *Portfolio) ApplyFill(ctx context.Context, fill core.Fill) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := fillIdempotencyKey(fill)
	if _, seen := p.appliedFills[key]; seen {
		return nil
	}
	p.appliedFills[key] = struct{}{}

	pos := p.positions[fill.Symbol]
	pos.Symbol = fill.Symbol
	signedFillQty := fill.Quantity
	if fill.Side == core.SideSell {
		signedFillQty = signedFillQty.Neg()
	}

	current := signedQuantity(pos)
	updated := current.Add(signedFillQty)
	switch {
	case updated.IsZero():
		pos.Side = nil
		pos.Quantity = decimal.Zero
		pos.EntryPrice = decimal.Zero
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
	p.positions[fill.Symbol] = pos

	if fill.Fee.IsPositive() && fill.FeeAsset != "" {
		bal := p.balances[fill.FeeAsset]
		bal.Asset = fill.FeeAsset
		bal.Free = bal.Free.Sub(fill.Fee)
		bal.UpdatedAt = fill.Timestamp
		p.balances[fill.FeeAsset] = bal
	}

	log.Printf("portfolio: applied fill id=%s symbol=%s side=%s qty=%s price=%s", fill.FillID, fill.Symbol, fill.Side, fill.Quantity, fill.Price)
	return nil
}

// fillIdempotencyKey composes the identity of a fill for replay-safety
// purposes: order id, fill timestamp, quantity, and price. FillID alone is
// not used since some venues report fills with an empty FillID.
func fillIdempotencyKey(fill core.Fill) string {
	return fmt.Sprintf("%s|%s|%s|%s", fill.OrderID, fill.Timestamp.UTC().Format(time.RFC3339Nano), fill.Quantity.String(), fill.Price.String())
}

func signedQuantity(p core.Position) decimal.Decimal {
	if p.Side == nil {
		return decimal.Zero
	}
	if *p.Side == core.SideBuy {
		return p.Quantity
	}
	return p.Quantity.Neg()
}

// UpsertOrder records or updates an order in the open-order book. Terminal
// orders are removed.
func (p *Portfolio) UpsertOrder(order core.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if order.Status.IsTerminal() {
		delete(p.openOrders, order.VenueOrderID)
		return
	}
	p.openOrders[order.VenueOrderID] = order
}

// RemoveOrder drops an order from the open-order book regardless of status,
// used after a confirmed cancellation.
func (p *Portfolio) RemoveOrder(venueOrderID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.openOrders, venueOrderID)
}

// OpenOrders returns a snapshot copy of the open-order book.
func (p *Portfolio) OpenOrders() []core.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]core.Order, 0, len(p.openOrders))
	for _, o := range p.openOrders {
		out = append(out, o)
	}
	return out
}

// Position returns the current position for symbol, the zero value if flat.
func (p *Portfolio) Position(symbol core.Symbol) core.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positions[symbol]
}

// Balance returns the current balance for asset, the zero value if untracked.
func (p *Portfolio) Balance(asset core.AssetID) core.AccountBalance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[asset]
}

// SetBalance overwrites the tracked balance for an asset, used when adopting
// venue-reported truth at startup.
func (p *Portfolio) SetBalance(bal core.AccountBalance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[bal.Asset] = bal
}

// Equity returns Total() of the reportingCurrency balance alone, or zero when
// no balance in that asset is tracked. Balances in other assets and open
// positions are not valued; this package has no live prices to mark them.
func (p *Portfolio) Equity(reportingCurrency core.AssetID) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bal, ok := p.balances[reportingCurrency]
	if !ok {
		return decimal.Zero
	}
	return bal.Total()
}

// LiquidateOnly reports whether the portfolio has been flipped into
// liquidate-only mode.
func (p *Portfolio) LiquidateOnly() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.liquidateOnly
}

// EnterLiquidateOnly flips the portfolio into liquidate-only mode, after
// which the orchestrator must reject every order that would increase risk.
// Satisfies reconcile.LiquidateOnlySwitch.
func (p *Portfolio) EnterLiquidateOnly(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.liquidateOnly {
		p.liquidateOnly = true
		p.liquidateSince = time.Now().UTC()
		log.Printf("portfolio: entering liquidate-only mode")
	}
	return nil
}

// Resume clears liquidate-only mode. There is no automatic recovery path —
// an operator must call this after manual review.
func (p *Portfolio) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liquidateOnly = false
	p.liquidateSince = time.Time{}
	log.Printf("portfolio: liquidate-only mode cleared by operator")
}

// Snapshot captures the current book as a reconcile.LocalSnapshot for
// comparison against venue-reported truth.
func (p *Portfolio) Snapshot() reconcile.LocalSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make(map[core.Symbol]core.Position, len(p.positions))
	for sym, pos := range p.positions {
		positions[sym] = pos
	}
	balances := make(map[core.AssetID]core.AccountBalance, len(p.balances))
	for asset, bal := range p.balances {
		balances[asset] = bal
	}
	openOrders := make([]core.Order, 0, len(p.openOrders))
	for _, o := range p.openOrders {
		openOrders = append(openOrders, o)
	}
	return reconcile.LocalSnapshot{Positions: positions, Balances: balances, OpenOrders: openOrders}
}

// AdoptRemoteSnapshot overwrites the local book with venue-reported truth,
// used by the startup handler before resuming normal operation.
func (p *Portfolio) AdoptRemoteSnapshot(remote reconcile.RemoteSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.positions = make(map[core.Symbol]core.Position, len(remote.Positions))
	for _, pos := range remote.Positions {
		p.positions[pos.Symbol] = pos
	}
	p.balances = make(map[core.AssetID]core.AccountBalance, len(remote.Balances))
	for _, bal := range remote.Balances {
		p.balances[bal.Asset] = bal
	}
	p.openOrders = make(map[string]core.Order, len(remote.OpenOrders))
	for _, o := range remote.OpenOrders {
		p.openOrders[o.VenueOrderID] = o
	}
	log.Printf("portfolio: adopted remote snapshot: %d positions, %d balances, %d open orders",
		len(p.positions), len(p.balances), len(p.openOrders))
}

// ErrUnknownAsset is returned by callers that look up an asset never seen by
// the portfolio; portfolio methods themselves return zero values instead of
// this error, but collaborators (e.g. the control plane) use it to
// distinguish "zero balance" from "unknown asset" when needed.
var ErrUnknownAsset = fmt.Errorf("portfolio: unknown asset")
