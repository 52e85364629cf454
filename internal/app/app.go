// Package app wires configuration into the collectors, broker, trader and
// their reporting sinks, and drives the daily schedule.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/broker"
	brokeralpaca "github.com/newthinker/etfbot/internal/broker/alpaca"
	"github.com/newthinker/etfbot/internal/broker/mock"
	"github.com/newthinker/etfbot/internal/collector"
	collectoralpaca "github.com/newthinker/etfbot/internal/collector/alpaca"
	"github.com/newthinker/etfbot/internal/collector/localcsv"
	"github.com/newthinker/etfbot/internal/collector/yahoo"
	"github.com/newthinker/etfbot/internal/config"
	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/metrics"
	"github.com/newthinker/etfbot/internal/notifier"
	"github.com/newthinker/etfbot/internal/notifier/factory"
	"github.com/newthinker/etfbot/internal/schedule"
	"github.com/newthinker/etfbot/internal/storage/archive"
	"github.com/newthinker/etfbot/internal/strategy/defensive"
	"github.com/newthinker/etfbot/internal/tradelog"
	"github.com/newthinker/etfbot/internal/trader"
)

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	history    collector.Collector
	broker     broker.Broker
	metrics    *metrics.Registry
	notifiers  *notifier.Registry
	archiver   *archive.Archiver

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds every collaborator named by cfg. cfg must already be valid.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		metrics:    metrics.NewRegistry(),
	}

	a.collectors.Register(localcsv.New(cfg.Data.Dir))
	a.collectors.Register(yahoo.New(cfg.Data.Timeout))
	a.collectors.Register(collectoralpaca.New(cfg.Broker.Alpaca.APIKey, cfg.Broker.Alpaca.APISecret, cfg.Data.Feed))

	history, err := a.collectors.Select(cfg.Data.Provider)
	if err != nil {
		return nil, err
	}
	a.history = history

	b, err := newBroker(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.broker = b

	a.notifiers, err = factory.Build(cfg.Notifiers)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	if cfg.Archive.Enabled() {
		store, err := archive.Open(cfg.Archive, logger)
		if err != nil {
			return nil, err
		}
		a.archiver = archive.NewArchiver(store, cfg.Archive.RetentionDays, logger)
	}

	return a, nil
}

func newBroker(cfg *config.Config, logger *zap.Logger) (broker.Broker, error) {
	switch cfg.Broker.Provider {
	case "", "mock":
		return mock.New(cfg.Broker.MockCash), nil
	case "alpaca":
		return brokeralpaca.New(brokeralpaca.Config{
			APIKey:    cfg.Broker.Alpaca.APIKey,
			APISecret: cfg.Broker.Alpaca.APISecret,
			BaseURL:   cfg.Broker.Alpaca.BaseURL,
		}, logger), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown broker provider: %s", cfg.Broker.Provider))
	}
}

// Broker returns the configured execution collaborator.
func (a *App) Broker() broker.Broker {
	return a.broker
}

// Metrics returns the shared metrics registry.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Collectors returns the registered market data providers.
func (a *App) Collectors() *collector.Registry {
	return a.collectors
}

// Runner builds the trader for the configured mode.
func (a *App) Runner() (*trader.Runner, error) {
	mode := a.cfg.RunMode()
	opts := []trader.Option{
		trader.WithLogger(a.logger),
		trader.WithRisk(a.cfg.Risk),
		trader.WithLookbackDays(a.cfg.Data.LookbackDays),
		trader.WithMetrics(a.metrics, a.cfg.Metrics),
		trader.WithNotifiers(a.notifiers),
	}
	if q, ok := a.history.(collector.QuoteSource); ok {
		opts = append(opts, trader.WithQuotes(q))
	}
	if a.archiver != nil {
		opts = append(opts, trader.WithArchiver(a.archiver))
	}
	if mode == core.ModeSimulate {
		opts = append(opts, trader.WithLedger(a.cfg.Simulation.LedgerPath, a.cfg.Simulation.InitialCapital))
	} else {
		opts = append(opts, trader.WithBroker(a.broker, a.cfg.Broker.DryRun))
	}

	return trader.New(mode, a.cfg.Watchlist, defensive.New(a.cfg.Strategy), a.history,
		tradelog.New(a.cfg.TradeLogPath(mode)), opts...)
}

// RunOnce performs a single run in the configured mode.
func (a *App) RunOnce(ctx context.Context) (*trader.Result, error) {
	r, err := a.Runner()
	if err != nil {
		return nil, err
	}
	return r.RunOnce(ctx)
}

// Start runs once a day at the configured time until ctx is cancelled or
// Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Info("etfbot scheduler starting",
		zap.String("mode", a.cfg.Mode),
		zap.String("time", a.cfg.Schedule.Time),
		zap.Int("watchlist_count", len(a.cfg.Watchlist)),
	)

	err := schedule.Daily(ctx, a.cfg.Schedule.Time, a.logger, func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	})
	a.logger.Info("etfbot scheduler stopped")
	return err
}

// Stop stops the scheduling loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Running reports whether Start is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
