// Package collector defines the market-data capability: daily history for
// the signal evaluator and a latest quote for execution price resolution.
package collector

import (
	"context"
	"time"

	"github.com/newthinker/etfbot/internal/core"
)

// Config holds collector configuration
type Config struct {
	// Provider selects the implementation: "localcsv", "yahoo" or "alpaca".
	Provider string `mapstructure:"provider"`
	// Dir is the price directory for the localcsv provider.
	Dir string `mapstructure:"dir"`
	// Feed is the Alpaca data feed ("iex" or "sip").
	Feed string `mapstructure:"feed"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Collector fetches daily bars.
type Collector interface {
	Name() string

	// FetchHistory returns daily bars for symbol in [start, end], oldest first.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error)
}

// QuoteSource fetches the latest quote for a symbol.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
}
