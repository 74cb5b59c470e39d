package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusIsTerminal(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusNew:             false,
		OrderStatusPartiallyFilled: false,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusRejected:        true,
		OrderStatusExpired:         true,
	}
	for status, want := range cases {
		require.Equal(t, want, status.IsTerminal(), "status %s", status)
	}
}

func TestSideOpposite(t *testing.T) {
	require.Equal(t, SideSell, SideBuy.Opposite())
	require.Equal(t, SideBuy, SideSell.Opposite())
}

func TestPositionIsFlat(t *testing.T) {
	p := Position{Quantity: decimal.Zero}
	require.True(t, p.IsFlat())

	p.Quantity = decimal.NewFromInt(1)
	require.False(t, p.IsFlat())
}

func TestAccountBalanceTotal(t *testing.T) {
	b := AccountBalance{Free: decimal.NewFromFloat(1.5), Locked: decimal.NewFromFloat(0.5)}
	require.True(t, b.Total().Equal(decimal.NewFromInt(2)))
}

func TestSymbolString(t *testing.T) {
	s := Symbol{Venue: "paper", Code: "BTC-USDT"}
	require.Equal(t, "paper:BTC-USDT", s.String())
}
