// Package execalgo implements the execution-algorithm state machines that
// turn a single Signal into a sequence of child orders: trailing stops,
// iceberg/TWAP/VWAP slicing, and price-chasing. Each algorithm is a small
// state machine driven by fills, ticks, and timer callbacks, and can be
// snapshotted/restored for durable persistence across restarts — the
// orchestrator (libs/orchestrator) owns the registry of live instances.
package execalgo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"jax-trading-assistant/libs/core"
)

// Status is the lifecycle state of a running algorithm.
type Status struct {
	Working   bool
	Completed bool
	Cancelled bool
	Failed    string // non-empty when the algorithm has failed
}

// ChildOrderRequest is a single action an algorithm wants to take: either
// placing a new order or amending a resting one.
type ChildOrderRequest struct {
	ParentAlgoID uuid.UUID
	Place        *core.OrderRequest  // non-nil for a Place action
	Amend        *core.UpdateRequest // non-nil for an Amend action
}

// Algorithm is the contract every execution algorithm implements. Mutating
// methods return the child-order actions to submit, never performing I/O
// themselves — the orchestrator is responsible for routing those actions
// through the broker gateway and rate limiter.
type Algorithm interface {
	Kind() string
	ID() uuid.UUID
	Status() Status
	Start() ([]ChildOrderRequest, error)
	OnChildOrderPlaced(order core.Order)
	OnFill(fill core.Fill) ([]ChildOrderRequest, error)
	OnTick(tick core.Tick) ([]ChildOrderRequest, error)
	OnTimer() ([]ChildOrderRequest, error)
	Cancel() error
	Snapshot() (json.RawMessage, error)
}

// Factory restores an algorithm of a known kind from a snapshot produced by
// Snapshot(). Concrete algorithms register themselves in the package-level
// registry via RegisterKind so the orchestrator can recover running
// algorithms after a restart without a type switch per kind.
type Factory func(raw json.RawMessage) (Algorithm, error)

var registry = make(map[string]Factory)

// RegisterKind makes an algorithm kind recoverable via FromState. Intended to
// be called from each algorithm's package init().
func RegisterKind(kind string, factory Factory) {
	registry[kind] = factory
}

// FromState restores a persisted algorithm by its kind tag.
func FromState(kind string, raw json.RawMessage) (Algorithm, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("execalgo: unknown algorithm kind %q", kind)
	}
	return factory(raw)
}

// ErrNotWorking is returned by operations that only make sense while an
// algorithm is still Working.
var ErrNotWorking = errors.New("execalgo: algorithm is not in the working state")
