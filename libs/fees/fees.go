// Package fees computes per-fill venue fees from a maker/taker basis-point
// schedule. It generalizes the teacher's config-driven-constraints idiom
// (see libs/risk.Policy) to a per-symbol fee table with a global default.
package fees

import (
	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

// LiquidityRole distinguishes a resting (maker) fill from an aggressive
// (taker) one; venues typically charge a lower rate for the former.
type LiquidityRole string

const (
	RoleMaker LiquidityRole = "maker"
	RoleTaker LiquidityRole = "taker"
)

// Context carries the information a Model needs to rate a single fill.
type Context struct {
	Symbol core.Symbol
	Side   core.Side
	Role   LiquidityRole
}

// Model computes the absolute fee owed for a fill.
type Model interface {
	Fee(ctx Context, price, quantity decimal.Decimal) decimal.Decimal
}

var tenThousand = decimal.NewFromInt(10_000)

type feePair struct {
	makerBps decimal.Decimal
	takerBps decimal.Decimal
}

func (p feePair) rate(role LiquidityRole) decimal.Decimal {
	if role == RoleMaker {
		return p.makerBps
	}
	return p.takerBps
}

// MarketConfig is a per-symbol maker/taker override.
type MarketConfig struct {
	MakerBps decimal.Decimal `mapstructure:"maker_bps" yaml:"maker_bps"`
	TakerBps decimal.Decimal `mapstructure:"taker_bps" yaml:"taker_bps"`
}

// ScheduleConfig is the serializable fee schedule: a default maker/taker
// rate plus per-symbol overrides, loaded from the `fees.*` configuration
// keys (see SPEC_FULL.md §6).
type ScheduleConfig struct {
	DefaultMakerBps decimal.Decimal         `mapstructure:"default_maker_bps" yaml:"default_maker_bps"`
	DefaultTakerBps decimal.Decimal         `mapstructure:"default_taker_bps" yaml:"default_taker_bps"`
	Markets         map[string]MarketConfig `mapstructure:"markets" yaml:"markets"`
}

// Flat builds a schedule that charges the same rate for maker and taker
// fills on every symbol.
func Flat(bps decimal.Decimal) ScheduleConfig {
	return ScheduleConfig{DefaultMakerBps: bps, DefaultTakerBps: bps}
}

// WithDefaults builds a schedule with explicit maker/taker defaults and no
// per-symbol overrides.
func WithDefaults(makerBps, takerBps decimal.Decimal) ScheduleConfig {
	return ScheduleConfig{DefaultMakerBps: makerBps, DefaultTakerBps: takerBps}
}

// BuildModel compiles the config into a queryable Model.
func (c ScheduleConfig) BuildModel() Model {
	overrides := make(map[string]feePair, len(c.Markets))
	for symbol, cfg := range c.Markets {
		overrides[symbol] = feePair{makerBps: cfg.MakerBps, takerBps: cfg.TakerBps}
	}
	return &scheduleModel{
		defaultPair: feePair{makerBps: c.DefaultMakerBps, takerBps: c.DefaultTakerBps},
		overrides:   overrides,
	}
}

type scheduleModel struct {
	defaultPair feePair
	overrides   map[string]feePair
}

func (m *scheduleModel) pairFor(symbol string) feePair {
	if p, ok := m.overrides[symbol]; ok {
		return p
	}
	return m.defaultPair
}

// Fee implements Model. It returns zero for a zero rate, quantity, or price
// rather than propagating an error — a fee model has no invalid inputs, only
// degenerate ones.
func (m *scheduleModel) Fee(ctx Context, price, quantity decimal.Decimal) decimal.Decimal {
	pair := m.pairFor(ctx.Symbol.Code)
	bps := pair.rate(ctx.Role)
	if bps.Sign() < 0 {
		bps = decimal.Zero
	}
	if bps.IsZero() || quantity.IsZero() || price.IsZero() {
		return decimal.Zero
	}
	notional := price.Mul(quantity.Abs())
	return bps.Div(tenThousand).Mul(notional)
}
