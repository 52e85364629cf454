package core

import "time"

// OHLCV represents a daily bar
type OHLCV struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Time   time.Time
}

// Quote is a point-in-time snapshot of the order book top and the last print.
// Zero means the field was not available from the source.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
	Time   time.Time
	Source string
}

// Midpoint returns the bid/ask midpoint when both sides are positive.
func (q Quote) Midpoint() (float64, bool) {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2, true
	}
	return 0, false
}

// Action represents a trade direction as written to the trade log
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Mode selects how a run executes its decisions
type Mode string

const (
	ModeSimulate Mode = "simulate"
	ModeShadow   Mode = "shadow"
	ModeLive     Mode = "live"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSimulate, ModeShadow, ModeLive:
		return true
	}
	return false
}

// Trade is one executed (or shadowed) decision. It is the row appended to
// the trade log and the payload handed to notifiers.
type Trade struct {
	Time   time.Time
	Ticker string
	Action Action
	Price  float64
	Shares int64
	Reason string
	Mode   Mode
}
