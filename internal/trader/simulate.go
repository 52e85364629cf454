package trader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/ledger"
)

// runSimulated applies decisions to the file-backed ledger. The ledger
// lock is held until the trade log and ledger are written.
func (r *Runner) runSimulated(ctx context.Context, res *Result, log *zap.Logger) error {
	store, err := ledger.Open(r.ledgerPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("release ledger lock", zap.Error(cerr))
		}
	}()

	l, err := store.Load()
	if err != nil {
		return err
	}

	evals, err := r.evaluateAll(ctx, res, log)
	if err != nil {
		return err
	}

	prices := make(map[string]float64, len(evals))
	for ticker, ev := range evals {
		prices[ticker] = ev.close
	}

	res.Capital = r.initialCapital
	mode := string(r.mode)
	r.metrics.SetCapital(mode, l.CashAvailable(r.initialCapital, prices))

	for _, ticker := range r.watchlist {
		l.Touch(ticker)
		ev, ok := evals[ticker]
		if !ok {
			continue
		}
		sig := ev.signal
		price := sig.Price
		pos := l.Get(ticker)

		switch {
		case sig.Buy:
			if pos.Held() {
				log.Debug("buy ignored, already held", zap.String("ticker", ticker), zap.Int64("shares", pos.Shares))
				continue
			}
			shares, skip := r.sizeBuy(pos.Shares, price, r.initialCapital, l.CashAvailable(r.initialCapital, prices))
			if skip != "" {
				log.Info("buy skipped", zap.String("ticker", ticker), zap.String("reason", skip))
				res.skip(ticker, skip)
				r.metrics.RecordSkip(mode, skip)
				continue
			}
			l.Buy(ticker, shares, price)
			r.record(res, ticker, core.ActionBuy, price, shares, ReasonBuySignal)
			log.Info("buy", zap.String("ticker", ticker), zap.Int64("shares", shares), zap.Float64("price", price))

		case sig.Sell:
			if !pos.Held() {
				log.Debug("sell ignored, nothing held", zap.String("ticker", ticker))
				continue
			}
			shares := l.Sell(ticker)
			r.record(res, ticker, core.ActionSell, price, shares, ReasonSellSignal)
			log.Info("sell", zap.String("ticker", ticker), zap.Int64("shares", shares), zap.Float64("price", price))

		default:
			log.Debug("hold", zap.String("ticker", ticker), zap.Bool("held", pos.Held()))
		}
	}

	// Ledger first: a failed save must not leave trade rows the ledger
	// never recorded.
	if err := store.Save(l); err != nil {
		return err
	}
	if err := r.tradeLog.Append(res.Trades...); err != nil {
		return fmt.Errorf("append trade log: %w", err)
	}
	res.Ledger = l
	r.metrics.SetCapital(mode, l.CashAvailable(r.initialCapital, prices))
	return nil
}
