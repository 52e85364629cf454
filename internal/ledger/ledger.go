// Package ledger holds the simulated portfolio: one FLAT/HELD position per
// ticker, persisted as a CSV snapshot.
package ledger

import (
	"sort"
	"strings"
)

// Position is the simulated holding of one ticker. The zero value is FLAT.
type Position struct {
	Ticker   string
	Shares   int64
	AvgPrice float64
}

// Held reports whether the position is HELD.
func (p Position) Held() bool {
	return p.Shares > 0
}

// Ledger maps tickers to positions. Tickers are case-insensitive.
type Ledger struct {
	positions map[string]Position
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{positions: make(map[string]Position)}
}

func key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Get returns the position for ticker, FLAT when never referenced.
func (l *Ledger) Get(ticker string) Position {
	k := key(ticker)
	if p, ok := l.positions[k]; ok {
		return p
	}
	return Position{Ticker: k}
}

// Touch records ticker as FLAT if it has no entry yet, so it appears in the
// persisted snapshot.
func (l *Ledger) Touch(ticker string) {
	k := key(ticker)
	if _, ok := l.positions[k]; !ok {
		l.positions[k] = Position{Ticker: k}
	}
}

// Buy moves a FLAT ticker to HELD. It is ignored (false) while already HELD
// or when shares or price are not positive.
func (l *Ledger) Buy(ticker string, shares int64, price float64) bool {
	p := l.Get(ticker)
	if p.Held() || shares <= 0 || price <= 0 {
		return false
	}
	p.Shares = shares
	p.AvgPrice = price
	l.positions[p.Ticker] = p
	return true
}

// Sell moves a HELD ticker to FLAT and returns the shares released. Selling
// a FLAT ticker is ignored and returns 0.
func (l *Ledger) Sell(ticker string) int64 {
	p := l.Get(ticker)
	if !p.Held() {
		return 0
	}
	shares := p.Shares
	l.positions[p.Ticker] = Position{Ticker: p.Ticker}
	return shares
}

// set stores p verbatim. Used when loading a snapshot.
func (l *Ledger) set(p Position) {
	p.Ticker = key(p.Ticker)
	l.positions[p.Ticker] = p
}

// Positions returns every entry sorted by ticker.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// MarketValue marks every held entry at prices[ticker], falling back to its
// average price when the ticker has no usable price.
func (l *Ledger) MarketValue(prices map[string]float64) float64 {
	var total float64
	for k, p := range l.positions {
		if !p.Held() {
			continue
		}
		price := p.AvgPrice
		if v, ok := prices[k]; ok && v > 0 {
			price = v
		}
		total += float64(p.Shares) * price
	}
	return total
}

// CashAvailable is initial capital minus the mark-to-market of all entries.
func (l *Ledger) CashAvailable(initialCapital float64, prices map[string]float64) float64 {
	return initialCapital - l.MarketValue(prices)
}

// Equal reports whether two ledgers hold the same positions.
func (l *Ledger) Equal(other *Ledger) bool {
	a, b := l.Positions(), other.Positions()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
