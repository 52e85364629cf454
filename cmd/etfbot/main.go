package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/config"
	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/logger"
)

var (
	cfgFile string
	debug   bool
	mode    string
)

var rootCmd = &cobra.Command{
	Use:   "etfbot",
	Short: "etfbot - rule-based ETF trading bot",
	Long: `etfbot evaluates a fixed ETF watchlist against a trend-following rule set
and applies the decisions to a simulated ledger (simulate), logs them against a
broker account (shadow), or places LIMIT orders (live).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "override run mode (simulate, shadow, live)")
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if mode != "" {
		cfg.SetMode(mode)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger, teeing into the per-day session
// file when enabled.
func newLogger(cfg *config.Config) *zap.Logger {
	if cfg == nil || !cfg.Log.SessionFile {
		return logger.Must(debug)
	}
	path := logger.SessionPath(cfg.Log.Dir, cfg.Mode, time.Now())
	log, err := logger.New(debug, path)
	if err != nil {
		fallback := logger.Must(debug)
		fallback.Warn("session log unavailable", zap.String("path", path), zap.Error(err))
		return fallback
	}
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 1
		if errors.Is(err, core.ErrLedgerLocked) {
			code = 2
		}
		os.Exit(code)
	}
}
