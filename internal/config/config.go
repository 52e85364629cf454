package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/newthinker/etfbot/internal/broker"
	"github.com/newthinker/etfbot/internal/collector"
	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/metrics"
	"github.com/newthinker/etfbot/internal/notifier"
	"github.com/newthinker/etfbot/internal/schedule"
	"github.com/newthinker/etfbot/internal/storage/archive"
	"github.com/newthinker/etfbot/internal/strategy/defensive"
)

// EnvPrefix prefixes environment overrides, e.g. ETFBOT_BROKER_DRY_RUN.
const EnvPrefix = "ETFBOT"

type Config struct {
	Mode       string            `mapstructure:"mode"`
	Watchlist  []string          `mapstructure:"watchlist"`
	Strategy   defensive.Rules   `mapstructure:"strategy"`
	Risk       broker.RiskConfig `mapstructure:"risk"`
	Simulation SimulationConfig  `mapstructure:"simulation"`
	Data       DataConfig        `mapstructure:"data"`
	Broker     BrokerConfig      `mapstructure:"broker"`
	Archive    archive.Config    `mapstructure:"archive"`
	Metrics    metrics.Config    `mapstructure:"metrics"`
	Notifiers  []notifier.Config `mapstructure:"notifiers"`
	Schedule   ScheduleConfig    `mapstructure:"schedule"`
	Log        LogConfig         `mapstructure:"log"`
}

// SimulationConfig holds the simulated portfolio settings.
type SimulationConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	LedgerPath     string  `mapstructure:"ledger_path"`
	TradeLog       string  `mapstructure:"trade_log"`
}

// DataConfig selects the market data provider.
type DataConfig struct {
	collector.Config `mapstructure:",squash"`
	// LookbackDays is the calendar-day window of history fetched per ticker.
	LookbackDays int `mapstructure:"lookback_days"`
}

// BrokerConfig holds broker integration settings.
type BrokerConfig struct {
	Provider       string       `mapstructure:"provider"` // "mock" or "alpaca"
	DryRun         bool         `mapstructure:"dry_run"`
	ShadowTradeLog string       `mapstructure:"shadow_trade_log"`
	LiveTradeLog   string       `mapstructure:"live_trade_log"`
	MockCash       float64      `mapstructure:"mock_cash"`
	Alpaca         AlpacaConfig `mapstructure:"alpaca"`
}

// AlpacaConfig holds Alpaca credentials. Empty fields fall back to the
// standard APCA_* environment variables.
type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key" envconfig:"APCA_API_KEY_ID"`
	APISecret string `mapstructure:"api_secret" envconfig:"APCA_API_SECRET_KEY"`
	BaseURL   string `mapstructure:"base_url" envconfig:"APCA_API_BASE_URL"`
}

// ScheduleConfig holds scheduling settings.
type ScheduleConfig struct {
	Time       string `mapstructure:"time"` // local HH:MM
	LaunchdDir string `mapstructure:"launchd_dir"`
}

// LogConfig holds log file settings.
type LogConfig struct {
	Dir         string `mapstructure:"dir"`
	SessionFile bool   `mapstructure:"session_file"`
}

// Load reads configuration from file. An empty path loads defaults and
// environment overrides only. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if isEnvRef(val) {
			v.Set(key, os.Getenv(envRef(val)))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for i := range cfg.Notifiers {
		expandParams(cfg.Notifiers[i].Params)
	}
	if err := cfg.applyAlpacaEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()

	return &cfg, nil
}

func isEnvRef(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

func envRef(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
}

// expandParams resolves ${VAR} values in notifier params, which viper
// does not descend into because they live in a list.
func expandParams(params map[string]any) {
	for k, val := range params {
		if s, ok := val.(string); ok && isEnvRef(s) {
			params[k] = os.Getenv(envRef(s))
		}
	}
}

func (c *Config) applyAlpacaEnv() error {
	var env AlpacaConfig
	if err := envconfig.Process("", &env); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if c.Broker.Alpaca.APIKey == "" {
		c.Broker.Alpaca.APIKey = env.APIKey
	}
	if c.Broker.Alpaca.APISecret == "" {
		c.Broker.Alpaca.APISecret = env.APISecret
	}
	if c.Broker.Alpaca.BaseURL == "" {
		c.Broker.Alpaca.BaseURL = env.BaseURL
	}
	return nil
}

// SetMode applies a run mode override with the same normalization Load uses.
func (c *Config) SetMode(mode string) {
	c.Mode = strings.ToLower(strings.TrimSpace(mode))
}

func (c *Config) normalize() {
	c.SetMode(c.Mode)
	seen := make(map[string]bool, len(c.Watchlist))
	tickers := c.Watchlist[:0]
	for _, t := range c.Watchlist {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	c.Watchlist = tickers
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Mode:      string(core.ModeSimulate),
		Watchlist: []string{"QQQM", "VOO", "IAU", "IEFA", "MCHI"},
		Strategy:  defensive.DefaultRules(),
		Risk:      broker.DefaultRiskConfig(),
		Simulation: SimulationConfig{
			InitialCapital: 10000,
			LedgerPath:     "logs/positions_live.csv",
			TradeLog:       "logs/trades_live.csv",
		},
		Data: DataConfig{
			Config: collector.Config{
				Provider: "yahoo",
				Dir:      "data",
				Feed:     "iex",
				Timeout:  30 * time.Second,
			},
			LookbackDays: 400,
		},
		Broker: BrokerConfig{
			Provider:       "mock",
			ShadowTradeLog: "logs/trades_shadow.csv",
			LiveTradeLog:   "logs/trades_live_prod.csv",
			MockCash:       10000,
		},
		Metrics: metrics.Config{
			Job:        "etfbot",
			ListenAddr: ":9108",
		},
		Schedule: ScheduleConfig{
			Time:       schedule.DefaultTime,
			LaunchdDir: "launch_agents",
		},
		Log: LogConfig{
			Dir: "logs",
		},
	}
}

// setDefaults registers every default so env overrides apply to keys the
// file omits.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("mode", d.Mode)
	v.SetDefault("watchlist", d.Watchlist)

	v.SetDefault("strategy.fast_ema", d.Strategy.FastEMA)
	v.SetDefault("strategy.slow_ema", d.Strategy.SlowEMA)
	v.SetDefault("strategy.rsi_period", d.Strategy.RSIPeriod)
	v.SetDefault("strategy.atr_period", d.Strategy.ATRPeriod)
	v.SetDefault("strategy.volume_period", d.Strategy.VolumePeriod)
	v.SetDefault("strategy.min_bars", d.Strategy.MinBars)
	v.SetDefault("strategy.rsi_buy_low", d.Strategy.RSIBuyLow)
	v.SetDefault("strategy.rsi_buy_high", d.Strategy.RSIBuyHigh)
	v.SetDefault("strategy.rsi_sell_below", d.Strategy.RSISellBelow)
	v.SetDefault("strategy.max_atr_ratio", d.Strategy.MaxATRRatio)

	v.SetDefault("risk.target_fraction", d.Risk.TargetFraction)
	v.SetDefault("risk.max_position_fraction", d.Risk.MaxPositionFraction)

	v.SetDefault("simulation.initial_capital", d.Simulation.InitialCapital)
	v.SetDefault("simulation.ledger_path", d.Simulation.LedgerPath)
	v.SetDefault("simulation.trade_log", d.Simulation.TradeLog)

	v.SetDefault("data.provider", d.Data.Provider)
	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.feed", d.Data.Feed)
	v.SetDefault("data.timeout", d.Data.Timeout)
	v.SetDefault("data.lookback_days", d.Data.LookbackDays)

	v.SetDefault("broker.provider", d.Broker.Provider)
	v.SetDefault("broker.dry_run", d.Broker.DryRun)
	v.SetDefault("broker.shadow_trade_log", d.Broker.ShadowTradeLog)
	v.SetDefault("broker.live_trade_log", d.Broker.LiveTradeLog)
	v.SetDefault("broker.mock_cash", d.Broker.MockCash)
	v.SetDefault("broker.alpaca.api_key", "")
	v.SetDefault("broker.alpaca.api_secret", "")
	v.SetDefault("broker.alpaca.base_url", "")

	v.SetDefault("archive.backend", d.Archive.Backend)
	v.SetDefault("archive.dir", d.Archive.Dir)
	v.SetDefault("archive.retention_days", d.Archive.RetentionDays)
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.endpoint", "")
	v.SetDefault("archive.s3.region", "")
	v.SetDefault("archive.s3.access_key", "")
	v.SetDefault("archive.s3.secret_key", "")
	v.SetDefault("archive.s3.prefix", "")

	v.SetDefault("metrics.textfile_path", d.Metrics.TextfilePath)
	v.SetDefault("metrics.pushgateway_url", d.Metrics.PushgatewayURL)
	v.SetDefault("metrics.job", d.Metrics.Job)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)

	v.SetDefault("schedule.time", d.Schedule.Time)
	v.SetDefault("schedule.launchd_dir", d.Schedule.LaunchdDir)

	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.session_file", d.Log.SessionFile)
}

// RunMode returns the configured mode.
func (c *Config) RunMode() core.Mode {
	return core.Mode(c.Mode)
}

// TradeLogPath returns the trade log file for mode.
func (c *Config) TradeLogPath(mode core.Mode) string {
	switch mode {
	case core.ModeShadow:
		return c.Broker.ShadowTradeLog
	case core.ModeLive:
		return c.Broker.LiveTradeLog
	default:
		return c.Simulation.TradeLog
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	mode := c.RunMode()
	if !mode.Valid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("mode must be simulate, shadow or live, got %q", c.Mode))
	}

	if len(c.Watchlist) == 0 {
		return core.WrapError(core.ErrConfigMissing, errors.New("watchlist is empty"))
	}

	if err := c.Strategy.Validate(); err != nil {
		return err
	}

	if c.Risk.TargetFraction <= 0 || c.Risk.TargetFraction > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk.target_fraction must be in (0, 1], got %f", c.Risk.TargetFraction))
	}
	if c.Risk.MaxPositionFraction <= 0 || c.Risk.MaxPositionFraction > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk.max_position_fraction must be in (0, 1], got %f", c.Risk.MaxPositionFraction))
	}

	if c.Data.LookbackDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.lookback_days must be positive, got %d", c.Data.LookbackDays))
	}
	switch c.Data.Provider {
	case "localcsv":
		if c.Data.Dir == "" {
			return core.WrapError(core.ErrConfigMissing, errors.New("data.dir required when provider is localcsv"))
		}
	case "yahoo":
	case "alpaca":
		if err := c.Broker.Alpaca.requireKeys(); err != nil {
			return err
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q", c.Data.Provider))
	}

	if mode == core.ModeSimulate {
		if c.Simulation.InitialCapital <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("simulation.initial_capital must be positive, got %f", c.Simulation.InitialCapital))
		}
		if c.Simulation.LedgerPath == "" {
			return core.WrapError(core.ErrConfigMissing, errors.New("simulation.ledger_path is required"))
		}
	} else {
		switch c.Broker.Provider {
		case "mock":
		case "alpaca":
			if err := c.Broker.Alpaca.requireKeys(); err != nil {
				return err
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown broker provider %q", c.Broker.Provider))
		}
	}
	if c.TradeLogPath(mode) == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("trade log path for mode %s is required", mode))
	}

	if err := c.Archive.Validate(); err != nil {
		return err
	}

	for i, n := range c.Notifiers {
		if n.Type == "" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifiers[%d].type is required", i))
		}
	}

	if _, _, err := schedule.ParseClock(c.Schedule.Time); err != nil {
		return err
	}

	return nil
}

func (a AlpacaConfig) requireKeys() error {
	if a.APIKey == "" || a.APISecret == "" {
		return core.WrapError(core.ErrConfigMissing,
			errors.New("alpaca api_key and api_secret required (or APCA_API_KEY_ID / APCA_API_SECRET_KEY)"))
	}
	return nil
}
