package reconcile

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

// FillSource fetches venue-reported fills for a single order, used to replay
// a ghost order's fills into the local book before it is dropped.
type FillSource interface {
	ListOrderFills(ctx context.Context, venueOrderID string) ([]core.Fill, error)
}

// OrderCanceller cancels a resting order at the venue, used to clean up
// zombie orders that were adopted into the local book.
type OrderCanceller interface {
	CancelOrder(ctx context.Context, venueOrderID string) error
}

// FillSink applies a replayed fill to the local portfolio/ledger.
type FillSink interface {
	ApplyFill(ctx context.Context, fill core.Fill) error
}

// OrderUpdateSink records an order's current state in the local OMS, so a
// ghost's terminal status or a zombie's adoption is attributable to
// subsequent events rather than silently applied. Satisfied directly by
// *portfolio.Portfolio.UpsertOrder.
type OrderUpdateSink interface {
	UpsertOrder(order core.Order)
}

// LiquidateOnlySwitch flips the OMS into liquidate-only mode when
// reconciliation finds a divergence severe enough that new risk should not
// be taken on.
type LiquidateOnlySwitch interface {
	EnterLiquidateOnly(ctx context.Context) error
}

// AlertNotifier delivers a human-facing alert for a severe reconciliation
// finding.
type AlertNotifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// defaultThreshold matches the original connector's floor: below this, a
// discrepancy is noise, not a divergence worth escalating.
var defaultThreshold = decimal.New(1, 6) // 0.000001

// RuntimeHandlerConfig wires a RuntimeHandler's collaborators.
type RuntimeHandlerConfig struct {
	Fills             FillSource
	Canceller         OrderCanceller
	Sink              FillSink
	Orders            OrderUpdateSink
	Liquidate         LiquidateOnlySwitch
	Alerts            AlertNotifier
	ReportingCurrency core.AssetID
	Threshold         decimal.Decimal
}

// RuntimeHandler applies fine-grained corrections during the live
// reconciliation loop. Unlike a log-only reconciler, it actively repairs
// divergence: ghost orders have their fills replayed into the local book and
// are then marked Filled (weighted-average fill price, last fill timestamp)
// or, if nothing was found to replay and the order was not already
// terminal, Cancelled; zombie orders are adopted into the local book, then
// cancelled at the venue, then marked Cancelled on success — so nothing is
// left resting unmanaged or unattributed.
type RuntimeHandler struct {
	cfg RuntimeHandlerConfig
}

// NewRuntimeHandler constructs a RuntimeHandler, defaulting an unset or
// non-positive Threshold to 1e-6.
func NewRuntimeHandler(cfg RuntimeHandlerConfig) *RuntimeHandler {
	if cfg.Threshold.Sign() <= 0 {
		cfg.Threshold = defaultThreshold
	}
	return &RuntimeHandler{cfg: cfg}
}

// Handle applies corrective actions for a reconciliation Report. Position
// and balance divergence beyond the configured threshold escalates to an
// alert and a liquidate-only transition; below threshold it is only logged.
func (h *RuntimeHandler) Handle(ctx context.Context, report Report) error {
	var severe []string
	h.handlePositions(report.PositionDiff.Discrepancies, &severe)
	h.handleBalances(report.BalanceDiff.Discrepancies, &severe)
	if err := h.handleOrders(ctx, report); err != nil {
		return fmt.Errorf("reconcile: handling order diff: %w", err)
	}

	if len(severe) == 0 {
		log.Printf("reconcile: state reconciliation complete with no critical divergence")
		return nil
	}

	body := strings.Join(severe, "; ")
	if h.cfg.Alerts != nil {
		if err := h.cfg.Alerts.Notify(ctx, "State reconciliation divergence", body); err != nil {
			log.Printf("reconcile: alert delivery failed: %v", err)
		}
	}
	if h.cfg.Liquidate != nil {
		if err := h.cfg.Liquidate.EnterLiquidateOnly(ctx); err != nil {
			return fmt.Errorf("reconcile: entering liquidate-only mode: %w", err)
		}
	}
	return nil
}

func (h *RuntimeHandler) handlePositions(entries []PositionDiscrepancy, severe *[]string) {
	for _, entry := range entries {
		diff := entry.Delta.Abs()
		if diff.IsZero() {
			continue
		}
		log.Printf("reconcile: position mismatch symbol=%s local=%s remote=%s diff=%s",
			entry.Symbol, entry.LocalSigned, entry.RemoteSigned, diff)

		pct := normalizeDiff(diff, entry.RemoteSigned)
		if pct.GreaterThanOrEqual(h.cfg.Threshold) {
			log.Printf("reconcile: position mismatch exceeds threshold symbol=%s pct=%s", entry.Symbol, pct)
			*severe = append(*severe, fmt.Sprintf("%s local=%s remote=%s diff=%s", entry.Symbol, entry.LocalSigned, entry.RemoteSigned, diff))
		}
	}
}

func (h *RuntimeHandler) handleBalances(entries []BalanceDiscrepancy, severe *[]string) {
	var local, remote decimal.Decimal
	for _, entry := range entries {
		if entry.Asset != h.cfg.ReportingCurrency {
			continue
		}
		if entry.LocalAvailable != nil {
			local = *entry.LocalAvailable
		}
		if entry.RemoteAvailable != nil {
			remote = *entry.RemoteAvailable
		}
		break
	}
	diff := local.Sub(remote).Abs()
	if diff.IsZero() {
		return
	}
	log.Printf("reconcile: balance mismatch currency=%s local=%s remote=%s diff=%s", h.cfg.ReportingCurrency, local, remote, diff)

	pct := normalizeDiff(diff, remote)
	if pct.GreaterThanOrEqual(h.cfg.Threshold) {
		log.Printf("reconcile: balance mismatch exceeds threshold currency=%s pct=%s", h.cfg.ReportingCurrency, pct)
		*severe = append(*severe, fmt.Sprintf("%s balance local=%s remote=%s diff=%s", h.cfg.ReportingCurrency, local, remote, diff))
	}
}

// handleOrders replays ghost fills into the local book and emits the
// resulting order update, and adopts-then-cancels zombie orders. Per-order
// failures are logged and skipped rather than aborting the whole
// reconciliation pass — one bad order should not block correction of the
// rest.
func (h *RuntimeHandler) handleOrders(ctx context.Context, report Report) error {
	for _, order := range report.OrderDiff.Ghosts {
		log.Printf("reconcile: ghost order detected order_id=%s symbol=%s status=%s — replaying fills", order.VenueOrderID, order.Symbol, order.Status)
		if h.cfg.Fills == nil || h.cfg.Sink == nil {
			continue
		}
		fills, err := h.cfg.Fills.ListOrderFills(ctx, order.VenueOrderID)
		if err != nil {
			log.Printf("reconcile: failed to list fills for ghost order %s: %v", order.VenueOrderID, err)
			continue
		}

		var filledQty, notional decimal.Decimal
		var lastFillAt time.Time
		for _, fill := range fills {
			if err := h.cfg.Sink.ApplyFill(ctx, fill); err != nil {
				log.Printf("reconcile: failed to replay fill %s for ghost order %s: %v", fill.FillID, order.VenueOrderID, err)
				continue
			}
			filledQty = filledQty.Add(fill.Quantity)
			notional = notional.Add(fill.Quantity.Mul(fill.Price))
			if fill.Timestamp.After(lastFillAt) {
				lastFillAt = fill.Timestamp
			}
		}

		if h.cfg.Orders == nil {
			continue
		}
		if filledQty.IsPositive() {
			order.FilledQty = filledQty
			order.Price = notional.Div(filledQty)
			order.Status = core.OrderStatusFilled
			order.UpdatedAt = lastFillAt
			h.cfg.Orders.UpsertOrder(order)
		} else if !order.Status.IsTerminal() {
			order.Status = core.OrderStatusCancelled
			order.UpdatedAt = time.Now()
			h.cfg.Orders.UpsertOrder(order)
		}
	}

	for _, order := range report.OrderDiff.Zombies {
		log.Printf("reconcile: zombie order detected order_id=%s symbol=%s status=%s — adopting and cancelling", order.VenueOrderID, order.Symbol, order.Status)
		if h.cfg.Orders != nil {
			h.cfg.Orders.UpsertOrder(order)
		}
		if h.cfg.Canceller == nil {
			continue
		}
		if err := h.cfg.Canceller.CancelOrder(ctx, order.VenueOrderID); err != nil {
			log.Printf("reconcile: failed to cancel zombie order %s: %v", order.VenueOrderID, err)
			continue
		}
		if h.cfg.Orders != nil {
			order.Status = core.OrderStatusCancelled
			order.UpdatedAt = time.Now()
			h.cfg.Orders.UpsertOrder(order)
		}
	}

	return nil
}

func normalizeDiff(diff, reference decimal.Decimal) decimal.Decimal {
	if diff.Sign() <= 0 {
		return decimal.Zero
	}
	denominator := reference.Abs()
	if denominator.LessThan(decimal.NewFromInt(1)) {
		denominator = decimal.NewFromInt(1)
	}
	return diff.Div(denominator)
}

// StartupOutcome is the result of applying the StartupHandler: the set of
// orders the orchestrator should resume tracking, and the zombies it should
// cancel before resuming normal operation.
type StartupOutcome struct {
	Report       Report
	OpenOrders   []core.Order
	CancelOrders []core.Order // zombies — present at the venue, unknown locally
}

// StartupHandler applies coarse-grained policy once at process start: the
// venue's reported open orders become the set to track, and every zombie
// order is queued for cancellation rather than silently adopted, since at
// startup there is no local context to safely manage it. It logs
// divergences but does not rebuild or otherwise modify any local portfolio.
type StartupHandler struct{}

// NewStartupHandler returns a StartupHandler.
func NewStartupHandler() *StartupHandler { return &StartupHandler{} }

// Reconcile diffs the given snapshots and applies startup policy.
func (h *StartupHandler) Reconcile(local LocalSnapshot, remote RemoteSnapshot) StartupOutcome {
	report := StateDiffer{}.Diff(local, remote)
	return h.Apply(report)
}

// Apply computes the StartupOutcome for an already-computed Report.
func (h *StartupHandler) Apply(report Report) StartupOutcome {
	for _, d := range report.PositionDiff.Discrepancies {
		log.Printf("reconcile: position divergence at startup symbol=%s local=%s remote=%s", d.Symbol, d.LocalSigned, d.RemoteSigned)
	}
	for _, order := range report.OrderDiff.Ghosts {
		log.Printf("reconcile: dropping ghost order from local state at startup order_id=%s symbol=%s", order.VenueOrderID, order.Symbol)
	}
	for _, order := range report.OrderDiff.Zombies {
		log.Printf("reconcile: adopting zombie order at startup for cancellation order_id=%s symbol=%s", order.VenueOrderID, order.Symbol)
	}

	return StartupOutcome{
		Report:       report,
		OpenOrders:   report.Remote.OpenOrders,
		CancelOrders: report.OrderDiff.Zombies,
	}
}
