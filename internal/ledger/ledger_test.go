package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_GetImplicitFlat(t *testing.T) {
	l := New()
	p := l.Get("voo")

	assert.Equal(t, "VOO", p.Ticker)
	assert.False(t, p.Held())
	assert.Zero(t, p.Shares)
	assert.Zero(t, p.AvgPrice)
	assert.Empty(t, l.Positions(), "Get must not create entries")
}

func TestLedger_StateMachine(t *testing.T) {
	l := New()

	require.True(t, l.Buy("VOO", 40, 50))
	assert.Equal(t, Position{Ticker: "VOO", Shares: 40, AvgPrice: 50}, l.Get("VOO"))

	assert.False(t, l.Buy("voo", 10, 60), "buy while held is ignored")
	assert.Equal(t, int64(40), l.Get("VOO").Shares)
	assert.Equal(t, 50.0, l.Get("VOO").AvgPrice)

	assert.Equal(t, int64(40), l.Sell("VOO"))
	assert.Equal(t, Position{Ticker: "VOO"}, l.Get("VOO"))

	assert.Zero(t, l.Sell("VOO"), "sell while flat is ignored")
	assert.False(t, l.Buy("IAU", 0, 40), "zero shares never enters HELD")
	assert.False(t, l.Buy("IAU", 5, 0))
}

func TestLedger_Touch(t *testing.T) {
	l := New()
	l.Touch("mchi")
	l.Buy("VOO", 1, 1)
	l.Touch("VOO")

	positions := l.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, "MCHI", positions[0].Ticker)
	assert.Equal(t, int64(1), positions[1].Shares, "touch must not reset a held entry")
}

func TestLedger_CashAvailable(t *testing.T) {
	l := New()
	l.Buy("VOO", 40, 50)
	l.Buy("IAU", 10, 20)
	l.Touch("QQQM")

	prices := map[string]float64{"VOO": 55}

	// VOO marked at 55, IAU falls back to its average price.
	assert.InDelta(t, 40*55+10*20, l.MarketValue(prices), 1e-9)
	assert.InDelta(t, 10000-2400.0, l.CashAvailable(10000, prices), 1e-9)
	assert.InDelta(t, 10000.0, New().CashAvailable(10000, nil), 1e-9)
}

func TestLedger_Equal(t *testing.T) {
	a, b := New(), New()
	a.Buy("VOO", 1, 2)
	assert.False(t, a.Equal(b))
	b.Buy("voo", 1, 2)
	assert.True(t, a.Equal(b))
}
