package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
mode: Shadow
watchlist: [voo, iau, VOO]
risk:
  target_fraction: 0.1
simulation:
  initial_capital: 5000
data:
  provider: localcsv
  dir: /tmp/prices
  timeout: 5s
broker:
  provider: mock
  dry_run: true
archive:
  backend: local
  dir: /tmp/archive
  retention_days: 30
notifiers:
  - type: webhook
    params:
      url: ${ETFBOT_TEST_HOOK}
`)
	t.Setenv("ETFBOT_TEST_HOOK", "http://hooks.local/run")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shadow", cfg.Mode)
	assert.Equal(t, []string{"VOO", "IAU"}, cfg.Watchlist)
	assert.Equal(t, 0.1, cfg.Risk.TargetFraction)
	assert.Equal(t, 0.4, cfg.Risk.MaxPositionFraction, "unset keys keep defaults")
	assert.Equal(t, 5000.0, cfg.Simulation.InitialCapital)
	assert.Equal(t, "logs/positions_live.csv", cfg.Simulation.LedgerPath)
	assert.Equal(t, "localcsv", cfg.Data.Provider)
	assert.Equal(t, "/tmp/prices", cfg.Data.Dir)
	assert.Equal(t, 5*time.Second, cfg.Data.Timeout)
	assert.Equal(t, 400, cfg.Data.LookbackDays)
	assert.True(t, cfg.Broker.DryRun)
	assert.Equal(t, 30, cfg.Archive.RetentionDays)
	require.Len(t, cfg.Notifiers, 1)
	assert.Equal(t, "http://hooks.local/run", cfg.Notifiers[0].Params["url"])
	assert.Equal(t, 50, cfg.Strategy.SlowEMA)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Watchlist, cfg.Watchlist)
	assert.Equal(t, "22:25", cfg.Schedule.Time)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ETFBOT_MODE", "live")
	t.Setenv("ETFBOT_BROKER_DRY_RUN", "true")
	t.Setenv("ETFBOT_WATCHLIST", "VOO,IAU")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "live", cfg.Mode)
	assert.True(t, cfg.Broker.DryRun)
	assert.Equal(t, []string{"VOO", "IAU"}, cfg.Watchlist)
}

func TestLoad_AlpacaEnvFallback(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "key-from-env")
	t.Setenv("APCA_API_SECRET_KEY", "secret-from-env")

	path := writeConfig(t, `
broker:
  provider: alpaca
  alpaca:
    base_url: https://paper-api.alpaca.markets
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Broker.Alpaca.APIKey)
	assert.Equal(t, "secret-from-env", cfg.Broker.Alpaca.APISecret)
	assert.Equal(t, "https://paper-api.alpaca.markets", cfg.Broker.Alpaca.BaseURL)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, []string{"QQQM", "VOO", "IAU", "IEFA", "MCHI"}, cfg.Watchlist)
	assert.Equal(t, 0.2, cfg.Risk.TargetFraction)
	assert.Equal(t, 0.4, cfg.Risk.MaxPositionFraction)
	assert.Equal(t, 10000.0, cfg.Simulation.InitialCapital)
	assert.Equal(t, core.ModeSimulate, cfg.RunMode())
	require.NoError(t, cfg.Validate())
}

func TestConfig_TradeLogPath(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "logs/trades_live.csv", cfg.TradeLogPath(core.ModeSimulate))
	assert.Equal(t, "logs/trades_shadow.csv", cfg.TradeLogPath(core.ModeShadow))
	assert.Equal(t, "logs/trades_live_prod.csv", cfg.TradeLogPath(core.ModeLive))
}

func TestConfig_SetMode(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Alpaca.APIKey = "key"
	cfg.Broker.Alpaca.APISecret = "secret"
	cfg.Broker.Provider = "alpaca"

	cfg.SetMode(" Live ")
	assert.Equal(t, "live", cfg.Mode)
	assert.Equal(t, core.ModeLive, cfg.RunMode())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.Error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"unknown mode", func(c *Config) { c.Mode = "paper" }, core.ErrConfigInvalid},
		{"empty watchlist", func(c *Config) { c.Watchlist = nil }, core.ErrConfigMissing},
		{"target fraction zero", func(c *Config) { c.Risk.TargetFraction = 0 }, core.ErrConfigInvalid},
		{"cap above one", func(c *Config) { c.Risk.MaxPositionFraction = 1.5 }, core.ErrConfigInvalid},
		{"bad rules", func(c *Config) { c.Strategy.FastEMA = c.Strategy.SlowEMA }, core.ErrConfigInvalid},
		{"non-positive capital", func(c *Config) { c.Simulation.InitialCapital = 0 }, core.ErrConfigInvalid},
		{"capital ignored outside simulate", func(c *Config) {
			c.Mode = "shadow"
			c.Simulation.InitialCapital = 0
		}, nil},
		{"unknown provider", func(c *Config) { c.Data.Provider = "bloomberg" }, core.ErrConfigInvalid},
		{"alpaca data without keys", func(c *Config) { c.Data.Provider = "alpaca" }, core.ErrConfigMissing},
		{"alpaca broker without keys", func(c *Config) {
			c.Mode = "live"
			c.Broker.Provider = "alpaca"
		}, core.ErrConfigMissing},
		{"unknown broker", func(c *Config) {
			c.Mode = "live"
			c.Broker.Provider = "futu"
		}, core.ErrConfigInvalid},
		{"archive without dir", func(c *Config) { c.Archive.Backend = "local" }, core.ErrConfigMissing},
		{"notifier without type", func(c *Config) { c.Notifiers = append(c.Notifiers, notifier.Config{}) }, core.ErrConfigInvalid},
		{"bad schedule", func(c *Config) { c.Schedule.Time = "25:99" }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
