// Package trader runs one evaluation pass over the watchlist and applies
// the resulting decisions to the simulated ledger or a broker account.
package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/broker"
	"github.com/newthinker/etfbot/internal/collector"
	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/ledger"
	"github.com/newthinker/etfbot/internal/metrics"
	"github.com/newthinker/etfbot/internal/notifier"
	"github.com/newthinker/etfbot/internal/storage/archive"
	"github.com/newthinker/etfbot/internal/strategy"
	"github.com/newthinker/etfbot/internal/tradelog"
)

// Trade-log reasons per mode.
const (
	ReasonBuySignal  = "buy signal"
	ReasonSellSignal = "sell signal"
	ReasonShadow     = "shadow signal"
	ReasonLive       = "live signal"
)

// Runner executes the run-once flow for one mode.
type Runner struct {
	mode      core.Mode
	watchlist []string
	evaluator strategy.Evaluator
	history   collector.Collector
	tradeLog  *tradelog.Log

	risk     broker.RiskConfig
	quotes   collector.QuoteSource
	lookback int

	ledgerPath     string
	initialCapital float64

	broker broker.Broker
	dryRun bool

	archiver   *archive.Archiver
	metrics    *metrics.Registry
	metricsCfg metrics.Config
	notifiers  *notifier.Registry

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRisk overrides the sizing fractions.
func WithRisk(risk broker.RiskConfig) Option {
	return func(r *Runner) { r.risk = risk }
}

// WithQuotes sets the live quote source used to resolve execution prices
// in broker-backed modes.
func WithQuotes(q collector.QuoteSource) Option {
	return func(r *Runner) { r.quotes = q }
}

// WithLookbackDays sets the calendar-day history window.
func WithLookbackDays(days int) Option {
	return func(r *Runner) {
		if days > 0 {
			r.lookback = days
		}
	}
}

// WithLedger configures the simulated ledger file and starting capital.
func WithLedger(path string, initialCapital float64) Option {
	return func(r *Runner) {
		r.ledgerPath = path
		r.initialCapital = initialCapital
	}
}

// WithBroker sets the execution collaborator for shadow and live runs.
// dryRun keeps live runs from placing orders.
func WithBroker(b broker.Broker, dryRun bool) Option {
	return func(r *Runner) {
		r.broker = b
		r.dryRun = dryRun
	}
}

// WithArchiver enables per-run snapshots.
func WithArchiver(a *archive.Archiver) Option {
	return func(r *Runner) { r.archiver = a }
}

// WithMetrics sets the metrics registry and its export targets.
func WithMetrics(reg *metrics.Registry, cfg metrics.Config) Option {
	return func(r *Runner) {
		if reg != nil {
			r.metrics = reg
		}
		r.metricsCfg = cfg
	}
}

// WithNotifiers sets the run report recipients.
func WithNotifiers(n *notifier.Registry) Option {
	return func(r *Runner) { r.notifiers = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithIDs overrides run and client order id generation.
func WithIDs(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// New creates a Runner. history supplies the daily bars every mode
// evaluates; tradeLog receives the mode's trade entries.
func New(mode core.Mode, watchlist []string, evaluator strategy.Evaluator, history collector.Collector, tradeLog *tradelog.Log, opts ...Option) (*Runner, error) {
	if !mode.Valid() {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown mode %q", mode))
	}
	if evaluator == nil || history == nil || tradeLog == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("evaluator, history and trade log are required"))
	}

	r := &Runner{
		mode:      mode,
		evaluator: evaluator,
		history:   history,
		tradeLog:  tradeLog,
		risk:      broker.DefaultRiskConfig(),
		lookback:  400,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, t := range watchlist {
		r.watchlist = append(r.watchlist, strings.ToUpper(strings.TrimSpace(t)))
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewRegistry()
	}

	switch mode {
	case core.ModeSimulate:
		if r.ledgerPath == "" || r.initialCapital <= 0 {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("simulate mode needs a ledger path and positive initial capital"))
		}
	default:
		if r.broker == nil {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s mode needs a broker", mode))
		}
	}

	r.logger = r.logger.With(zap.String("mode", string(mode)))
	return r, nil
}

// Mode returns the run mode.
func (r *Runner) Mode() core.Mode {
	return r.mode
}

// Metrics returns the registry the runner records into.
func (r *Runner) Metrics() *metrics.Registry {
	return r.metrics
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	Mode       core.Mode
	StartedAt  time.Time
	FinishedAt time.Time
	Capital    float64
	Trades     []core.Trade
	// Skipped maps ticker to skip reason.
	Skipped map[string]string
	// Ledger is the saved simulated ledger; nil for broker-backed runs.
	Ledger *ledger.Ledger
}

// Summary is the one-line outcome logged and sent to notifiers.
func (r *Result) Summary() string {
	if len(r.Trades) == 0 {
		return "no trades today"
	}
	return fmt.Sprintf("%d trade(s) logged", len(r.Trades))
}

func (r *Result) skip(ticker, reason string) {
	r.Skipped[ticker] = reason
}

// evaluation is one ticker's fetched history and signal.
type evaluation struct {
	signal strategy.Signal
	close  float64
}

// RunOnce fetches, evaluates and applies decisions for every watchlist
// ticker. Per-ticker failures are skipped; a locked ledger or unusable
// capital aborts the run.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     r.newID(),
		Mode:      r.mode,
		StartedAt: r.now(),
		Skipped:   make(map[string]string),
	}
	log := r.logger.With(zap.String("run_id", res.RunID))
	log.Info("run started", zap.Strings("watchlist", r.watchlist), zap.String("strategy", r.evaluator.Name()))
	r.metrics.SetWatchlistSize(len(r.watchlist))

	var err error
	if r.mode == core.ModeSimulate {
		err = r.runSimulated(ctx, res, log)
	} else {
		err = r.runBroker(ctx, res, log)
	}
	res.FinishedAt = r.now()

	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordRun(string(r.mode), status, res.FinishedAt.Sub(res.StartedAt).Seconds(), float64(res.FinishedAt.Unix()))

	if err != nil {
		log.Error("run failed", zap.Error(err))
		r.flushMetrics(ctx, log)
		return nil, err
	}

	r.archive(ctx, res, log)
	r.flushMetrics(ctx, log)
	r.notify(ctx, res, log)

	log.Info("run finished",
		zap.String("summary", res.Summary()),
		zap.Int("trades", len(res.Trades)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

// evaluateAll fetches every ticker before any decision is applied.
func (r *Runner) evaluateAll(ctx context.Context, res *Result, log *zap.Logger) (map[string]evaluation, error) {
	end := r.now()
	start := end.AddDate(0, 0, -r.lookback)
	mode := string(r.mode)

	evals := make(map[string]evaluation, len(r.watchlist))
	for _, ticker := range r.watchlist {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := r.history.FetchHistory(ctx, ticker, start, end)
		if err == nil && len(bars) == 0 {
			err = core.ErrNoData
		}
		if err != nil {
			log.Warn("fetch failed, skipping", zap.String("ticker", ticker), zap.Error(err))
			res.skip(ticker, metrics.SkipFetchFailed)
			r.metrics.RecordSkip(mode, metrics.SkipFetchFailed)
			continue
		}

		sig := r.evaluator.Evaluate(bars)
		if !sig.Ready {
			log.Warn("insufficient data, skipping",
				zap.String("ticker", ticker),
				zap.Error(core.ErrInsufficientData),
				zap.Int("bars", len(bars)),
				zap.Int("min_bars", r.evaluator.MinBars()),
			)
			res.skip(ticker, metrics.SkipInsufficientData)
			r.metrics.RecordSkip(mode, metrics.SkipInsufficientData)
			continue
		}

		r.metrics.RecordSignal(mode, strings.ToLower(string(sig.Action())))
		log.Info("signal",
			zap.String("ticker", ticker),
			zap.Bool("buy", sig.Buy),
			zap.Bool("sell", sig.Sell),
			zap.Float64("price", sig.Price),
			zap.Float64("ema_fast", sig.Indicators.FastEMA),
			zap.Float64("ema_slow", sig.Indicators.SlowEMA),
			zap.Float64("rsi", sig.Indicators.RSI),
			zap.Float64("atr_ratio", sig.Indicators.ATRRatio()),
		)
		evals[ticker] = evaluation{signal: sig, close: bars[len(bars)-1].Close}
	}
	return evals, nil
}

// sizeBuy applies the position cap and the target-fraction sizing. It
// returns the share count or the skip reason.
func (r *Runner) sizeBuy(held int64, price, capital, available float64) (int64, string) {
	if r.risk.PositionTooLarge(held, price, capital) {
		return 0, metrics.SkipPositionCap
	}
	shares := broker.Size(r.risk.Budget(available), price)
	if shares == 0 {
		return 0, metrics.SkipZeroShares
	}
	return shares, ""
}

func (r *Runner) record(res *Result, ticker string, action core.Action, price float64, shares int64, reason string) core.Trade {
	t := core.Trade{
		Time:   r.now(),
		Ticker: ticker,
		Action: action,
		Price:  price,
		Shares: shares,
		Reason: reason,
		Mode:   r.mode,
	}
	res.Trades = append(res.Trades, t)
	r.metrics.RecordTrade(string(r.mode), strings.ToLower(string(action)))
	return t
}

func (r *Runner) archive(ctx context.Context, res *Result, log *zap.Logger) {
	if r.archiver == nil {
		return
	}
	run := archive.Run{
		ID:         res.RunID,
		Mode:       res.Mode,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Capital:    res.Capital,
		Watchlist:  r.watchlist,
		Trades:     res.Trades,
		Skipped:    res.Skipped,
		Ledger:     res.Ledger,
	}
	if err := r.archiver.Archive(ctx, run); err != nil {
		log.Warn("archive failed", zap.Error(err))
		return
	}
	if n, err := r.archiver.Prune(ctx, res.FinishedAt); err != nil {
		log.Warn("archive prune failed", zap.Error(err))
	} else if n > 0 {
		log.Info("pruned archived runs", zap.Int("count", n))
	}
}

func (r *Runner) flushMetrics(ctx context.Context, log *zap.Logger) {
	if err := r.metrics.Flush(ctx, r.metricsCfg, string(r.mode)); err != nil {
		log.Warn("metrics flush failed", zap.Error(err))
	}
}

func (r *Runner) notify(ctx context.Context, res *Result, log *zap.Logger) {
	if r.notifiers == nil || r.notifiers.Len() == 0 {
		return
	}
	report := notifier.Report{
		RunID:   res.RunID,
		Mode:    res.Mode,
		Time:    res.FinishedAt,
		Capital: res.Capital,
		Trades:  res.Trades,
		Summary: res.Summary(),
	}
	failed := r.notifiers.NotifyAll(ctx, report)
	for _, name := range r.notifiers.Names() {
		if err, ok := failed[name]; ok {
			log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
			r.metrics.RecordNotification(name, "error")
			continue
		}
		r.metrics.RecordNotification(name, "ok")
	}
}
