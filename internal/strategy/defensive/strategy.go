// Package defensive implements the trend-following ETF rule set: enter on an
// EMA uptrend with confirming volume, moderate RSI and low volatility, exit on
// a trend break, oversold RSI or a volatility spike.
package defensive

import (
	"fmt"
	"math"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/indicator"
	"github.com/newthinker/etfbot/internal/strategy"
)

// Defensive implements strategy.Evaluator
type Defensive struct {
	rules Rules
}

// New creates the strategy with the given rules
func New(rules Rules) *Defensive {
	return &Defensive{rules: rules}
}

// Evaluate runs the default rule set over bars.
func Evaluate(bars []core.OHLCV) strategy.Signal {
	return New(DefaultRules()).Evaluate(bars)
}

func (d *Defensive) Name() string {
	return "defensive"
}

func (d *Defensive) Description() string {
	return fmt.Sprintf("EMA%d/%d trend, RSI%d in (%.0f, %.0f), ATR%d/close < %.2f, volume > SMA%d",
		d.rules.FastEMA, d.rules.SlowEMA, d.rules.RSIPeriod, d.rules.RSIBuyLow, d.rules.RSIBuyHigh,
		d.rules.ATRPeriod, d.rules.MaxATRRatio, d.rules.VolumePeriod)
}

func (d *Defensive) MinBars() int {
	return d.rules.MinBars
}

// Rules returns the active rule set.
func (d *Defensive) Rules() Rules {
	return d.rules
}

// Evaluate decides on the latest complete bar. Bars with a non-finite price
// are dropped first so a gap neither hides the decision nor poisons the EMAs.
func (d *Defensive) Evaluate(bars []core.OHLCV) strategy.Signal {
	bars = completeBars(bars)
	if len(bars) < d.rules.MinBars {
		return strategy.NoDecision()
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
		volumes[i] = float64(bar.Volume)
	}

	snap, ok := d.latest(closes, highs, lows, volumes)
	if !ok {
		return strategy.NoDecision()
	}

	buy, sell := d.rules.Apply(snap)
	return strategy.Signal{
		Buy:        buy,
		Sell:       sell,
		Price:      snap.Close,
		Ready:      true,
		Indicators: snap,
	}
}

func completeBars(bars []core.OHLCV) []core.OHLCV {
	out := bars[:0:0]
	for _, b := range bars {
		if finite(b.Open) && finite(b.High) && finite(b.Low) && finite(b.Close) {
			out = append(out, b)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// latest builds the snapshot of the last bar that has every indicator.
func (d *Defensive) latest(closes, highs, lows, volumes []float64) (strategy.Snapshot, bool) {
	fast, ok1 := indicator.Last(indicator.EMA(closes, d.rules.FastEMA))
	slow, ok2 := indicator.Last(indicator.EMA(closes, d.rules.SlowEMA))
	rsi, ok3 := indicator.Last(indicator.RSI(closes, d.rules.RSIPeriod))
	atr, ok4 := indicator.Last(indicator.ATR(highs, lows, closes, d.rules.ATRPeriod))
	volAvg, ok5 := indicator.Last(indicator.SMA(volumes, d.rules.VolumePeriod))
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return strategy.Snapshot{}, false
	}

	snap := strategy.Snapshot{
		Close:     closes[len(closes)-1],
		Volume:    volumes[len(volumes)-1],
		FastEMA:   fast,
		SlowEMA:   slow,
		RSI:       rsi,
		ATR:       atr,
		VolumeAvg: volAvg,
	}

	for _, v := range []float64{snap.Close, snap.Volume, fast, slow, rsi, atr, volAvg} {
		if !finite(v) {
			return strategy.Snapshot{}, false
		}
	}
	if snap.Close <= 0 {
		return strategy.Snapshot{}, false
	}

	return snap, true
}
