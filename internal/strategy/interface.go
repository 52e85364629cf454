package strategy

import (
	"github.com/newthinker/etfbot/internal/core"
)

// Snapshot holds the indicator values of the latest fully computed bar
type Snapshot struct {
	Close     float64
	Volume    float64
	FastEMA   float64
	SlowEMA   float64
	RSI       float64
	ATR       float64
	VolumeAvg float64
}

// ATRRatio returns ATR as a fraction of the close.
func (s Snapshot) ATRRatio() float64 {
	if s.Close == 0 {
		return 0
	}
	return s.ATR / s.Close
}

// Signal is the outcome of evaluating one price series.
// Buy and Sell are computed independently. Price is the latest close and
// is only meaningful when Ready is true; Ready is false when the series is
// too short for every indicator to be warmed up.
type Signal struct {
	Buy        bool
	Sell       bool
	Price      float64
	Ready      bool
	Indicators Snapshot
}

// NoDecision is the signal returned for insufficient data.
func NoDecision() Signal {
	return Signal{}
}

// Action collapses the signal into a single action, buy taking precedence.
func (s Signal) Action() core.Action {
	switch {
	case s.Buy:
		return core.ActionBuy
	case s.Sell:
		return core.ActionSell
	default:
		return core.ActionHold
	}
}

// Evaluator maps a price history to a signal without side effects.
type Evaluator interface {
	Name() string
	Description() string
	MinBars() int
	Evaluate(bars []core.OHLCV) Signal
}
