package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full backtester configuration.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controls the simulation defaults. Every value can be
// overridden per run from the command line.
type BacktestConfig struct {
	InitialBalance    float64 `yaml:"initial_balance"`
	NumberOfMarkets   int     `yaml:"number_of_markets"`
	RunTimeoutSeconds int     `yaml:"run_timeout_seconds"`
	Workers           int     `yaml:"workers"`       // concurrent candle fetches
	CandleSource      string  `yaml:"candle_source"` // polymarket | binance
}

// APIConfig holds the base URLs of the market data APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controls where strategies and run results persist.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config file and the .env file if present.
// Environment variables override YAML values for the keys they cover.
// A missing config file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// run on defaults and env alone
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunTimeout returns the per-run deadline as a time.Duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Backtest.RunTimeoutSeconds) * time.Second
}

// applyEnvOverrides replaces values with environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTEST_INITIAL_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialBalance = f
		}
	}
	if v := os.Getenv("BACKTEST_MARKETS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backtest.NumberOfMarkets = n
		}
	}
	if v := os.Getenv("CANDLE_SOURCE"); v != "" {
		cfg.Backtest.CandleSource = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults ensures required values have sensible defaults.
func setDefaults(cfg *Config) {
	if cfg.Backtest.InitialBalance <= 0 {
		cfg.Backtest.InitialBalance = 1000
	}
	if cfg.Backtest.NumberOfMarkets <= 0 {
		cfg.Backtest.NumberOfMarkets = 100
	}
	if cfg.Backtest.RunTimeoutSeconds <= 0 {
		cfg.Backtest.RunTimeoutSeconds = 300
	}
	if cfg.Backtest.Workers <= 0 {
		cfg.Backtest.Workers = 5
	}
	if cfg.Backtest.CandleSource == "" {
		cfg.Backtest.CandleSource = "polymarket"
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backtester.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func validate(cfg *Config) error {
	switch cfg.Backtest.CandleSource {
	case "polymarket", "binance":
	default:
		return fmt.Errorf("config.Load: unknown candle_source %q", cfg.Backtest.CandleSource)
	}
	return nil
}
