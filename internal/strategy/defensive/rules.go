package defensive

import (
	"fmt"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/strategy"
)

// Rules holds the indicator periods and thresholds of the defensive rule set
type Rules struct {
	FastEMA      int     `mapstructure:"fast_ema"`
	SlowEMA      int     `mapstructure:"slow_ema"`
	RSIPeriod    int     `mapstructure:"rsi_period"`
	ATRPeriod    int     `mapstructure:"atr_period"`
	VolumePeriod int     `mapstructure:"volume_period"`
	MinBars      int     `mapstructure:"min_bars"`
	RSIBuyLow    float64 `mapstructure:"rsi_buy_low"`
	RSIBuyHigh   float64 `mapstructure:"rsi_buy_high"`
	RSISellBelow float64 `mapstructure:"rsi_sell_below"`
	MaxATRRatio  float64 `mapstructure:"max_atr_ratio"`
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		FastEMA:      10,
		SlowEMA:      50,
		RSIPeriod:    14,
		ATRPeriod:    14,
		VolumePeriod: 20,
		MinBars:      60,
		RSIBuyLow:    40,
		RSIBuyHigh:   70,
		RSISellBelow: 30,
		MaxATRRatio:  0.03,
	}
}

// Validate checks the rule set for inconsistent values.
func (r Rules) Validate() error {
	if r.FastEMA < 1 || r.SlowEMA < 1 || r.RSIPeriod < 1 || r.ATRPeriod < 1 || r.VolumePeriod < 1 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("indicator periods must be positive"))
	}
	if r.FastEMA >= r.SlowEMA {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fast_ema (%d) must be shorter than slow_ema (%d)", r.FastEMA, r.SlowEMA))
	}
	if r.MinBars < r.lookback() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_bars (%d) must cover the longest lookback (%d)", r.MinBars, r.lookback()))
	}
	if r.RSIBuyLow >= r.RSIBuyHigh || r.RSIBuyHigh > 100 || r.RSISellBelow < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rsi bounds out of order: sell<%.1f buy (%.1f, %.1f)", r.RSISellBelow, r.RSIBuyLow, r.RSIBuyHigh))
	}
	if r.MaxATRRatio <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("max_atr_ratio must be positive"))
	}
	return nil
}

// lookback is the number of bars before every indicator has a value.
func (r Rules) lookback() int {
	n := r.SlowEMA
	for _, p := range []int{r.FastEMA, r.RSIPeriod + 1, r.ATRPeriod + 1, r.VolumePeriod} {
		if p > n {
			n = p
		}
	}
	return n
}

// Apply evaluates the buy and sell conditions against one indicator snapshot.
// The two conditions are independent of each other.
func (r Rules) Apply(s strategy.Snapshot) (buy, sell bool) {
	ratio := s.ATRRatio()

	buy = s.FastEMA > s.SlowEMA &&
		s.Volume > s.VolumeAvg &&
		s.RSI > r.RSIBuyLow && s.RSI < r.RSIBuyHigh &&
		ratio < r.MaxATRRatio

	sell = s.FastEMA < s.SlowEMA ||
		s.RSI < r.RSISellBelow ||
		ratio > r.MaxATRRatio

	return buy, sell
}
