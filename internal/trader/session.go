package trader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/broker"
	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/metrics"
)

// runBroker evaluates against the broker account. Shadow runs log the
// decisions; live runs also place LIMIT orders.
func (r *Runner) runBroker(ctx context.Context, res *Result, log *zap.Logger) error {
	var exec *broker.Executor
	if r.mode == core.ModeLive {
		exec = broker.NewExecutor(r.broker,
			broker.WithLogger(log),
			broker.WithDryRun(r.dryRun),
			broker.WithClientOrderIDs(r.newID),
		)
	}
	reason := ReasonShadow
	if r.mode == core.ModeLive {
		reason = ReasonLive
	}
	mode := string(r.mode)

	return broker.WithSession(ctx, r.broker, func(s *broker.Session) error {
		capital := s.Capital()
		res.Capital = capital
		r.metrics.SetCapital(mode, capital)
		log.Info("broker session",
			zap.String("broker", r.broker.Name()),
			zap.Float64("net_liquidation", capital),
			zap.Float64("cash", s.Balance.Cash),
			zap.Int("positions", len(s.Held)),
			zap.Bool("dry_run", exec != nil && exec.DryRun()),
		)

		evals, err := r.evaluateAll(ctx, res, log)
		if err != nil {
			return err
		}

		for _, ticker := range r.watchlist {
			ev, ok := evals[ticker]
			if !ok {
				continue
			}
			sig := ev.signal
			held := s.HeldShares(ticker)

			if !sig.Buy && !(sig.Sell && held > 0) {
				if sig.Sell {
					log.Debug("sell ignored, nothing held", zap.String("ticker", ticker))
				}
				continue
			}

			price, ok := broker.ResolveExecutionPrice(r.quote(ctx, ticker, log), sig.Price)
			if !ok {
				log.Warn("no execution price, skipping", zap.String("ticker", ticker), zap.Error(core.ErrNoPrice))
				res.skip(ticker, metrics.SkipNoPrice)
				r.metrics.RecordSkip(mode, metrics.SkipNoPrice)
				continue
			}

			side, action, shares := broker.OrderSideSell, core.ActionSell, held
			if sig.Buy {
				var skip string
				shares, skip = r.sizeBuy(held, price, capital, capital)
				if skip != "" {
					log.Info("buy skipped",
						zap.String("ticker", ticker),
						zap.String("reason", skip),
						zap.Float64("position_fraction", float64(held)*price/capital),
					)
					res.skip(ticker, skip)
					r.metrics.RecordSkip(mode, skip)
					continue
				}
				side, action = broker.OrderSideBuy, core.ActionBuy
			}

			if exec != nil {
				if _, err := exec.Submit(ctx, ticker, side, shares, price); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Error("order failed, skipping", zap.String("ticker", ticker), zap.Error(err))
					res.skip(ticker, metrics.SkipOrderFailed)
					r.metrics.RecordSkip(mode, metrics.SkipOrderFailed)
					continue
				}
			}

			// Each accepted order is logged before the next is placed so
			// a cancelled run still leaves a row for every placed trade.
			trade := r.record(res, ticker, action, price, shares, reason)
			if err := r.tradeLog.Append(trade); err != nil {
				return fmt.Errorf("append trade log: %w", err)
			}
			log.Info(fmt.Sprintf("%s signal", action),
				zap.String("ticker", ticker),
				zap.Int64("shares", shares),
				zap.Float64("price", price),
			)
		}
		return nil
	})
}

// quote returns the live quote, or nil when no source is configured or
// the fetch fails; the caller then falls back to the reference close.
func (r *Runner) quote(ctx context.Context, ticker string, log *zap.Logger) *core.Quote {
	if r.quotes == nil {
		return nil
	}
	q, err := r.quotes.FetchQuote(ctx, ticker)
	if err != nil {
		log.Warn("quote unavailable, using reference close", zap.String("ticker", ticker), zap.Error(err))
		return nil
	}
	return q
}
