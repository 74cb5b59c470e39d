// Package conditional implements touch-triggered (stop-loss / take-profit)
// order management and one-cancels-other resolution. It is a single-owner
// type held by the order orchestrator, not safe for concurrent use from
// multiple goroutines.
package conditional

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

// TriggeredOrder is a conditional order whose threshold has just been
// crossed, ready for the orchestrator to submit at the given fill price.
type TriggeredOrder struct {
	Order     core.OrderRequest
	FillPrice decimal.Decimal
	Timestamp time.Time
	Kind      core.TriggerKind
	Group     string // empty when standalone
}

type pending struct {
	order core.OrderRequest
	kind  core.TriggerKind
	group string
}

// Manager maintains the queue of conditional orders and resolves OCO groups
// when more than one leg of a group triggers at once.
type Manager struct {
	orders []pending
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{}
}

// Push registers a conditional order so it may be triggered later. The
// order's client-order-id suffix ("-sl"/"-tp") determines its OCO group and
// trigger kind; an order without either suffix is Standalone and triggers
// independently.
func (m *Manager) Push(order core.OrderRequest) {
	group, kind := parseGroup(order.ClientOrderID)
	m.orders = append(m.orders, pending{order: order, kind: kind, group: group})
}

// Pending returns the count of orders still awaiting a trigger.
func (m *Manager) Pending() int { return len(m.orders) }

// TriggerWithCandle evaluates every pending order against a candle's high/low
// range: a buy-side trigger fires when the candle's high reached it, a
// sell-side trigger fires when the low reached it.
func (m *Manager) TriggerWithCandle(candle core.Candle) []TriggeredOrder {
	return m.evaluate(func(p pending) (decimal.Decimal, time.Time, bool) {
		if p.order.TriggerPrice.IsZero() {
			return decimal.Decimal{}, time.Time{}, false
		}
		var touched bool
		if p.order.Side == core.SideBuy {
			touched = candle.High.GreaterThanOrEqual(p.order.TriggerPrice)
		} else {
			touched = candle.Low.LessThanOrEqual(p.order.TriggerPrice)
		}
		return p.order.TriggerPrice, candle.Timestamp, touched
	})
}

// TriggerWithPrice evaluates every pending order against a single trade
// price crossing.
func (m *Manager) TriggerWithPrice(lastPrice decimal.Decimal, ts time.Time) []TriggeredOrder {
	return m.evaluate(func(p pending) (decimal.Decimal, time.Time, bool) {
		if p.order.TriggerPrice.IsZero() {
			return decimal.Decimal{}, time.Time{}, false
		}
		var touched bool
		if p.order.Side == core.SideBuy {
			touched = lastPrice.GreaterThanOrEqual(p.order.TriggerPrice)
		} else {
			touched = lastPrice.LessThanOrEqual(p.order.TriggerPrice)
		}
		return lastPrice, ts, touched
	})
}

// evaluate runs the touch test against every pending order, then resolves
// OCO groups among the orders that triggered: within a group, only the
// lowest-priority-value kind (StopLoss < TakeProfit < Standalone) survives
// and the rest of the group is dropped without being submitted. Ties within
// a group (same kind twice) are broken by push order, the order the slice
// already preserves.
func (m *Manager) evaluate(touch func(pending) (decimal.Decimal, time.Time, bool)) []TriggeredOrder {
	survivors := make([]pending, 0, len(m.orders))
	var triggered []TriggeredOrder

	for _, p := range m.orders {
		price, ts, ok := touch(p)
		if !ok {
			survivors = append(survivors, p)
			continue
		}
		triggered = append(triggered, TriggeredOrder{
			Order:     p.order,
			FillPrice: price,
			Timestamp: ts,
			Kind:      p.kind,
			Group:     p.group,
		})
	}

	grouped := make(map[string][]TriggeredOrder)
	var resolved []TriggeredOrder
	for _, event := range triggered {
		if event.Group == "" {
			resolved = append(resolved, event)
			continue
		}
		grouped[event.Group] = append(grouped[event.Group], event)
	}

	dropGroups := make(map[string]bool, len(grouped))
	for group, events := range grouped {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Kind < events[j].Kind })
		resolved = append(resolved, events[0])
		dropGroups[group] = true
	}

	m.orders = m.orders[:0]
	for _, p := range survivors {
		if p.group != "" && dropGroups[p.group] {
			continue
		}
		m.orders = append(m.orders, p)
	}

	return resolved
}

func parseGroup(clientOrderID string) (group string, kind core.TriggerKind) {
	if base, ok := strings.CutSuffix(clientOrderID, "-sl"); ok {
		return base, core.TriggerStopLoss
	}
	if base, ok := strings.CutSuffix(clientOrderID, "-tp"); ok {
		return base, core.TriggerTakeProfit
	}
	return "", core.TriggerStandalone
}
