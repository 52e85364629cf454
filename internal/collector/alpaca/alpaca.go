// Package alpaca collects daily bars and latest quotes from Alpaca market data.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/newthinker/etfbot/internal/core"
)

// dataClient is the subset of *marketdata.Client used by the collector.
type dataClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetLatestQuote(symbol string, req marketdata.GetLatestQuoteRequest) (*marketdata.Quote, error)
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// Alpaca implements collector.Collector and collector.QuoteSource.
type Alpaca struct {
	client dataClient
	feed   marketdata.Feed
}

// New creates a market data collector. feed is "iex" (default) or "sip".
func New(apiKey, apiSecret, feed string) *Alpaca {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return &Alpaca{client: client, feed: parseFeed(feed)}
}

func parseFeed(feed string) marketdata.Feed {
	switch strings.ToLower(feed) {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

// FetchHistory fetches daily bars in [start, end].
func (a *Alpaca) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := a.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      a.feed,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("alpaca bars %s: %w", symbol, err))
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", symbol))
	}

	data := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		data = append(data, core.OHLCV{
			Symbol: symbol,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
			Time:   b.Timestamp,
		})
	}
	return data, nil
}

// FetchQuote combines the latest quote and latest trade. Either half may be
// missing; the quote fails only when both are.
func (a *Alpaca) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := strings.ToUpper(symbol)
	q := &core.Quote{Symbol: symbol, Source: a.Name()}

	quote, qerr := a.client.GetLatestQuote(sym, marketdata.GetLatestQuoteRequest{Feed: a.feed})
	if qerr == nil && quote != nil {
		q.Bid = quote.BidPrice
		q.Ask = quote.AskPrice
		q.Time = quote.Timestamp
	}

	trade, terr := a.client.GetLatestTrade(sym, marketdata.GetLatestTradeRequest{Feed: a.feed})
	if terr == nil && trade != nil {
		q.Last = trade.Price
		if q.Time.IsZero() {
			q.Time = trade.Timestamp
		}
	}

	if qerr != nil && terr != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("alpaca quote %s: %w", symbol, qerr))
	}
	return q, nil
}
