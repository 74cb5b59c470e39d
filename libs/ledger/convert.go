package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"jax-trading-assistant/libs/core"
)

func toExchangeID(s string) core.ExchangeID { return core.ExchangeID(s) }
func toAssetID(s string) core.AssetID       { return core.AssetID(s) }

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ledger: parse amount %q: %w", s, err)
	}
	return d, nil
}
