package broker

import "math"

// RiskConfig defines sizing and concentration parameters.
type RiskConfig struct {
	// TargetFraction is the share of available capital committed to a new buy.
	TargetFraction float64 `mapstructure:"target_fraction"`
	// MaxPositionFraction is the largest share of total capital one position may hold
	// before further buys are refused.
	MaxPositionFraction float64 `mapstructure:"max_position_fraction"`
}

// DefaultRiskConfig returns the 20% target / 40% cap configuration.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		TargetFraction:      0.2,
		MaxPositionFraction: 0.4,
	}
}

// Budget returns the amount of capital a buy may spend.
func (r RiskConfig) Budget(available float64) float64 {
	if available <= 0 {
		return 0
	}
	return available * r.TargetFraction
}

// Size returns the whole number of shares affordable with budget at price.
// Non-positive inputs size to zero.
func Size(budget, price float64) int64 {
	if budget <= 0 || price <= 0 || math.IsNaN(budget) || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	shares := math.Floor(budget / price)
	if math.IsInf(shares, 0) || shares > math.MaxInt64 {
		return 0
	}
	return int64(shares)
}

// PositionTooLarge reports whether holding shares at price already exceeds the
// concentration cap relative to capital. The check is binary: a breach skips
// the buy, it never shrinks it.
func (r RiskConfig) PositionTooLarge(shares int64, price, capital float64) bool {
	if shares <= 0 || price <= 0 {
		return false
	}
	if capital <= 0 {
		return true
	}
	return float64(shares)*price/capital > r.MaxPositionFraction
}
