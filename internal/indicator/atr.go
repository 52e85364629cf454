package indicator

import "math"

// TrueRange returns the true range of each bar after the first.
// Returns slice of length: len(closes) - 1.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if len(highs) != n || len(lows) != n || n < 2 {
		return []float64{}
	}

	result := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		result = append(result, math.Max(hl, math.Max(hc, lc)))
	}
	return result
}

// ATR calculates Average True Range with Wilder smoothing.
// Returns slice of length: len(closes) - period, aligned to the end of closes.
func ATR(highs, lows, closes []float64, period int) []float64 {
	tr := TrueRange(highs, lows, closes)
	if period < 1 || len(tr) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(tr)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	result = append(result, atr)

	n := float64(period)
	for i := period; i < len(tr); i++ {
		atr = (atr*(n-1) + tr[i]) / n
		result = append(result, atr)
	}

	return result
}
