package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"jax-trading-assistant/libs/conditional"
	"jax-trading-assistant/libs/core"
	"jax-trading-assistant/libs/eventbus"
	"jax-trading-assistant/libs/execalgo"
	"jax-trading-assistant/libs/ledger"
	"jax-trading-assistant/libs/portfolio"
)

// Orchestrator is the single coordination point of the live runtime: it owns
// every running execution algorithm, routes ticks and fills to them, resolves
// conditional orders, and keeps the portfolio and ledger in sync with every
// child order the algorithms place. Nothing outside this package talks to
// BrokerGateway directly once an algorithm is Submit-ed.
type Orchestrator struct {
	mu          sync.Mutex
	algorithms  map[uuid.UUID]execalgo.Algorithm
	owners      map[string]uuid.UUID // ClientOrderID -> owning algo
	lastTickAt  time.Time

	gateway     *BrokerGateway
	conditional *conditional.Manager
	portfolio   *portfolio.Portfolio
	ledgerRepo  ledger.Repository
	sequencer   *ledger.Sequencer
	bus         *eventbus.Bus
	instruments map[core.Symbol]core.Instrument
}

// New returns an Orchestrator wired to its collaborators. instruments maps
// every tradeable symbol to its settlement shape, needed to derive ledger
// entries from fills.
func New(
	gateway *BrokerGateway,
	conditionalMgr *conditional.Manager,
	book *portfolio.Portfolio,
	ledgerRepo ledger.Repository,
	sequencer *ledger.Sequencer,
	bus *eventbus.Bus,
	instruments map[core.Symbol]core.Instrument,
) *Orchestrator {
	return &Orchestrator{
		algorithms:  make(map[uuid.UUID]execalgo.Algorithm),
		owners:      make(map[string]uuid.UUID),
		gateway:     gateway,
		conditional: conditionalMgr,
		portfolio:   book,
		ledgerRepo:  ledgerRepo,
		sequencer:   sequencer,
		bus:         bus,
		instruments: instruments,
	}
}

// Submit registers algo and starts it, routing whatever child orders it
// requests on startup.
func (o *Orchestrator) Submit(ctx context.Context, algo execalgo.Algorithm) error {
	o.mu.Lock()
	o.algorithms[algo.ID()] = algo
	o.mu.Unlock()

	requests, err := algo.Start()
	if err != nil {
		return fmt.Errorf("orchestrator: starting algorithm %s: %w", algo.ID(), err)
	}
	return o.routeChildOrders(ctx, algo, requests)
}

func (o *Orchestrator) routeChildOrders(ctx context.Context, algo execalgo.Algorithm, requests []execalgo.ChildOrderRequest) error {
	for _, req := range requests {
		switch {
		case req.Place != nil:
			order, err := o.gateway.PlaceOrder(ctx, *req.Place)
			if err != nil {
				log.Printf("orchestrator: place order failed algo=%s symbol=%s: %v", algo.ID(), req.Place.Symbol, err)
				return fmt.Errorf("orchestrator: placing child order: %w", err)
			}
			o.mu.Lock()
			if order.ClientOrderID != "" {
				o.owners[order.ClientOrderID] = algo.ID()
			}
			o.mu.Unlock()
			o.portfolio.UpsertOrder(order)
			algo.OnChildOrderPlaced(order)
			o.bus.Publish(eventbus.OrderUpdateEvent(order))
		case req.Amend != nil:
			order, err := o.gateway.AmendOrder(ctx, *req.Amend)
			if err != nil {
				log.Printf("orchestrator: amend order failed algo=%s client_order_id=%s: %v", algo.ID(), req.Amend.ClientOrderID, err)
				return fmt.Errorf("orchestrator: amending child order: %w", err)
			}
			o.portfolio.UpsertOrder(order)
			o.bus.Publish(eventbus.OrderUpdateEvent(order))
		}
	}
	return nil
}

// RouteFill applies a venue fill to the owning algorithm (if any), the
// portfolio, and the ledger, then publishes it on the event bus. A fill with
// no known owning algorithm (e.g. a manually placed order, or one from a
// conditional trigger) still updates the portfolio and ledger.
func (o *Orchestrator) RouteFill(ctx context.Context, fill core.Fill) error {
	o.mu.Lock()
	algoID, owned := o.owners[fill.ClientOrderID]
	algo := o.algorithms[algoID]
	o.mu.Unlock()

	if owned && algo != nil {
		requests, err := algo.OnFill(fill)
		if err != nil {
			log.Printf("orchestrator: algo %s OnFill error: %v", algoID, err)
		} else if err := o.routeChildOrders(ctx, algo, requests); err != nil {
			return err
		}
	}

	if err := o.portfolio.ApplyFill(ctx, fill); err != nil {
		return fmt.Errorf("orchestrator: applying fill to portfolio: %w", err)
	}

	if err := o.postLedgerEntries(ctx, fill); err != nil {
		return err
	}

	o.bus.Publish(eventbus.FillEvent(fill))
	return nil
}

func (o *Orchestrator) postLedgerEntries(ctx context.Context, fill core.Fill) error {
	instrument, ok := o.instruments[fill.Symbol]
	if !ok {
		return fmt.Errorf("orchestrator: no instrument registered for symbol %s", fill.Symbol)
	}

	entries := ledger.EntriesFromFill(ledger.FillContext{
		Fill:        fill,
		Instrument:  instrument,
		RealizedPnl: fill.RealizedPnl,
	})
	if len(entries) == 0 {
		return nil
	}
	for i, entry := range entries {
		entries[i] = entry.WithSequence(o.sequencer.Next())
	}
	if err := o.ledgerRepo.AppendBatch(ctx, entries); err != nil {
		return fmt.Errorf("orchestrator: posting ledger entries for fill %s: %w", fill.FillID, err)
	}
	return nil
}

// RouteTick resolves any conditional orders the price crossing triggers,
// submits them, feeds the tick to every working algorithm, and publishes it
// on the event bus.
func (o *Orchestrator) RouteTick(ctx context.Context, tick core.Tick) error {
	o.mu.Lock()
	o.lastTickAt = tick.Timestamp
	o.mu.Unlock()

	for _, triggered := range o.conditional.TriggerWithPrice(tick.Price, tick.Timestamp) {
		if _, err := o.gateway.PlaceOrder(ctx, triggered.Order); err != nil {
			log.Printf("orchestrator: conditional order trigger failed symbol=%s: %v", triggered.Order.Symbol, err)
		}
	}

	o.mu.Lock()
	algos := make([]execalgo.Algorithm, 0, len(o.algorithms))
	for _, algo := range o.algorithms {
		if algo.Status().Working {
			algos = append(algos, algo)
		}
	}
	o.mu.Unlock()

	for _, algo := range algos {
		requests, err := algo.OnTick(tick)
		if err != nil {
			log.Printf("orchestrator: algo %s OnTick error: %v", algo.ID(), err)
			continue
		}
		if err := o.routeChildOrders(ctx, algo, requests); err != nil {
			return err
		}
	}

	o.bus.Publish(eventbus.TickEvent(tick))
	return nil
}

// RouteTimer drives the periodic OnTimer callback of every working
// algorithm, used by time-sliced algorithms like Chase and TWAP.
func (o *Orchestrator) RouteTimer(ctx context.Context) error {
	o.mu.Lock()
	algos := make([]execalgo.Algorithm, 0, len(o.algorithms))
	for _, algo := range o.algorithms {
		if algo.Status().Working {
			algos = append(algos, algo)
		}
	}
	o.mu.Unlock()

	for _, algo := range algos {
		requests, err := algo.OnTimer()
		if err != nil {
			log.Printf("orchestrator: algo %s OnTimer error: %v", algo.ID(), err)
			continue
		}
		if err := o.routeChildOrders(ctx, algo, requests); err != nil {
			return err
		}
	}
	return nil
}

// CancelAlgo cancels a running algorithm's state machine and any of its
// resting child orders still tracked in the portfolio's open-order book.
func (o *Orchestrator) CancelAlgo(ctx context.Context, id uuid.UUID) error {
	o.mu.Lock()
	algo, ok := o.algorithms[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: unknown algorithm %s", id)
	}

	if err := algo.Cancel(); err != nil {
		return fmt.Errorf("orchestrator: cancelling algorithm %s: %w", id, err)
	}

	for _, order := range o.portfolio.OpenOrders() {
		o.mu.Lock()
		owner, owned := o.owners[order.ClientOrderID]
		o.mu.Unlock()
		if !owned || owner != id {
			continue
		}
		if err := o.gateway.CancelOrder(ctx, order.VenueOrderID); err != nil {
			log.Printf("orchestrator: cancel child order failed algo=%s order=%s: %v", id, order.VenueOrderID, err)
		}
	}
	return nil
}

// AlgorithmStatuses returns a snapshot of every registered algorithm's status.
func (o *Orchestrator) AlgorithmStatuses() map[uuid.UUID]execalgo.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[uuid.UUID]execalgo.Status, len(o.algorithms))
	for id, algo := range o.algorithms {
		out[id] = algo.Status()
	}
	return out
}

// ActiveAlgorithmsCount returns the number of algorithms still Working.
func (o *Orchestrator) ActiveAlgorithmsCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, algo := range o.algorithms {
		if algo.Status().Working {
			count++
		}
	}
	return count
}

// LastTickAt reports the timestamp of the most recently routed tick, the
// zero time if none has been routed yet.
func (o *Orchestrator) LastTickAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastTickAt
}

// Portfolio returns the portfolio book this orchestrator updates, used by
// read-only collaborators like the control plane.
func (o *Orchestrator) Portfolio() *portfolio.Portfolio { return o.portfolio }

// CancelAll cancels every registered algorithm, whatever its current status,
// and, for each, any of its
// resting child orders still tracked in the portfolio's open-order book. It
// mirrors the original system's panic-button control-plane action: stop
// every algorithm, then sweep whatever orders remain.
func (o *Orchestrator) CancelAll(ctx context.Context) (cancelledAlgorithms, cancelledOrders int, err error) {
	o.mu.Lock()
	ids := make([]uuid.UUID, 0, len(o.algorithms))
	for id := range o.algorithms {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		if err := o.CancelAlgo(ctx, id); err != nil {
			log.Printf("orchestrator: cancel-all failed to cancel algorithm %s: %v", id, err)
			continue
		}
		cancelledAlgorithms++
	}

	for _, order := range o.portfolio.OpenOrders() {
		if err := o.gateway.CancelOrder(ctx, order.VenueOrderID); err != nil {
			log.Printf("orchestrator: cancel-all failed to cancel order %s: %v", order.VenueOrderID, err)
			continue
		}
		o.portfolio.RemoveOrder(order.VenueOrderID)
		cancelledOrders++
	}

	return cancelledAlgorithms, cancelledOrders, nil
}
