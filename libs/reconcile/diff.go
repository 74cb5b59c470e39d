// Package reconcile compares the orchestrator's local book of truth against a
// venue's reported state and produces corrective actions: cancel orders we
// lost local track of (zombies), replay fills for orders the venue closed
// without us knowing (ghosts), and flag position/balance drift beyond a
// configurable severity threshold.
//
// Terminology: a "ghost" order exists locally but not at the venue (it was
// filled, cancelled, or rejected out from under us); a "zombie" order exists
// at the venue but not locally (we lost track of something we placed, or a
// process restart dropped state). StateDiffer is pure — it never performs
// I/O — so it is exercised the same way whether called from the startup
// handler or the runtime loop.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

// LocalSnapshot is the orchestrator's in-memory view of the world.
type LocalSnapshot struct {
	Positions  map[core.Symbol]core.Position
	Balances   map[core.AssetID]core.AccountBalance
	OpenOrders []core.Order
}

// RemoteSnapshot is the venue's reported view of the world, fetched via the
// ExecutionClient.
type RemoteSnapshot struct {
	Positions  []core.Position
	Balances   []core.AccountBalance
	OpenOrders []core.Order
}

// OrderPair is a local/remote order matched by venue order id.
type OrderPair struct {
	Local  core.Order
	Remote core.Order
}

// OrderDiff partitions orders into matched, ghost (local-only), and zombie
// (remote-only) sets.
type OrderDiff struct {
	Matched []OrderPair
	Ghosts  []core.Order
	Zombies []core.Order
}

// PositionDiscrepancy is a single symbol whose signed local and remote
// quantities disagree.
type PositionDiscrepancy struct {
	Symbol       core.Symbol
	Local        *core.Position
	Remote       *core.Position
	LocalSigned  decimal.Decimal
	RemoteSigned decimal.Decimal
	Delta        decimal.Decimal
}

// PositionDiff aggregates all position discrepancies found.
type PositionDiff struct {
	Discrepancies []PositionDiscrepancy
}

// BalanceDiscrepancy is a single asset whose local and remote available
// quantities disagree.
type BalanceDiscrepancy struct {
	Asset           core.AssetID
	LocalAvailable  *decimal.Decimal
	RemoteAvailable *decimal.Decimal
	Delta           decimal.Decimal
}

// BalanceDiff aggregates all balance discrepancies found.
type BalanceDiff struct {
	Discrepancies []BalanceDiscrepancy
}

// Report is the complete result of comparing a LocalSnapshot against a
// RemoteSnapshot.
type Report struct {
	Local        LocalSnapshot
	Remote       RemoteSnapshot
	GeneratedAt  time.Time
	OrderDiff    OrderDiff
	PositionDiff PositionDiff
	BalanceDiff  BalanceDiff
}

// StateDiffer is a stateless comparison engine; it never mutates its inputs
// and never performs I/O, so both the startup handler and runtime handler
// call the same Diff.
type StateDiffer struct{}

// Diff computes a reconciliation Report for the given snapshots.
func (StateDiffer) Diff(local LocalSnapshot, remote RemoteSnapshot) Report {
	return Report{
		Local:        local,
		Remote:       remote,
		GeneratedAt:  time.Now().UTC(),
		OrderDiff:    diffOrders(local.OpenOrders, remote.OpenOrders),
		PositionDiff: diffPositions(local, remote),
		BalanceDiff:  diffBalances(local, remote),
	}
}

func diffOrders(local, remote []core.Order) OrderDiff {
	remoteIndex := make(map[string]core.Order, len(remote))
	for _, o := range remote {
		remoteIndex[o.VenueOrderID] = o
	}

	var matched []OrderPair
	var ghosts []core.Order
	for _, lo := range local {
		if ro, ok := remoteIndex[lo.VenueOrderID]; ok {
			matched = append(matched, OrderPair{Local: lo, Remote: ro})
			delete(remoteIndex, lo.VenueOrderID)
		} else {
			ghosts = append(ghosts, lo)
		}
	}

	var zombies []core.Order
	for _, ro := range remoteIndex {
		zombies = append(zombies, ro)
	}

	return OrderDiff{Matched: matched, Ghosts: ghosts, Zombies: zombies}
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

func diffPositions(local LocalSnapshot, remote RemoteSnapshot) PositionDiff {
	symbols := make(map[core.Symbol]struct{})
	for sym := range local.Positions {
		symbols[sym] = struct{}{}
	}
	remoteIndex := make(map[core.Symbol]core.Position, len(remote.Positions))
	for _, p := range remote.Positions {
		remoteIndex[p.Symbol] = p
		symbols[p.Symbol] = struct{}{}
	}

	var out []PositionDiscrepancy
	for sym := range symbols {
		lp, hasLocal := local.Positions[sym]
		rp, hasRemote := remoteIndex[sym]

		localSigned := decimal.Zero
		if hasLocal {
			localSigned = signedQuantity(lp)
		}
		remoteSigned := decimal.Zero
		if hasRemote {
			remoteSigned = signedQuantity(rp)
		}
		if localSigned.Equal(remoteSigned) {
			continue
		}

		d := PositionDiscrepancy{
			Symbol:       sym,
			LocalSigned:  localSigned,
			RemoteSigned: remoteSigned,
			Delta:        localSigned.Sub(remoteSigned),
		}
		if hasLocal {
			lpCopy := lp
			d.Local = &lpCopy
		}
		if hasRemote {
			rpCopy := rp
			d.Remote = &rpCopy
		}
		out = append(out, d)
	}

	return PositionDiff{Discrepancies: out}
}

func diffBalances(local LocalSnapshot, remote RemoteSnapshot) BalanceDiff {
	assets := make(map[core.AssetID]struct{})
	for asset := range local.Balances {
		assets[asset] = struct{}{}
	}
	remoteIndex := make(map[core.AssetID]core.AccountBalance, len(remote.Balances))
	for _, b := range remote.Balances {
		remoteIndex[b.Asset] = b
		assets[b.Asset] = struct{}{}
	}

	var out []BalanceDiscrepancy
	for asset := range assets {
		lb, hasLocal := local.Balances[asset]
		rb, hasRemote := remoteIndex[asset]

		localValue := decimal.Zero
		if hasLocal {
			localValue = lb.Free
		}
		remoteValue := decimal.Zero
		if hasRemote {
			remoteValue = rb.Free
		}
		if localValue.Equal(remoteValue) {
			continue
		}
		delta := localValue.Sub(remoteValue)
		if delta.IsZero() {
			continue
		}

		d := BalanceDiscrepancy{Asset: asset, Delta: delta}
		if hasLocal {
			v := lb.Free
			d.LocalAvailable = &v
		}
		if hasRemote {
			v := rb.Free
			d.RemoteAvailable = &v
		}
		out = append(out, d)
	}

	return BalanceDiff{Discrepancies: out}
}
