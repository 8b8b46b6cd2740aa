package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"tradeengine/types"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	EnvDatabaseURL = "TRADEENGINE_DATABASE_URL"
	EnvLogLevel    = "TRADEENGINE_LOG_LEVEL"

	defaultLogLevel    = "info"
	defaultParallelism = 4
)

type Config struct {
	Database DatabaseConfig   `yaml:"database"`
	Limits   RiskLimitsConfig `yaml:"risk_limits"`
	Sizing   RiskSizingConfig `yaml:"risk_config"`
	Log      LogConfig        `yaml:"log"`
	Metrics  MetricsConfig    `yaml:"metrics"`
	Batch    BatchConfig      `yaml:"batch"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
	// SignalWindow is a Go duration such as "24h". Empty keeps the
	// repository default.
	SignalWindow string `yaml:"signal_window"`
}

// RiskLimitsConfig mirrors types.RiskLimits. Values are kept as strings so
// they reach decimal.Decimal without a float round trip.
type RiskLimitsConfig struct {
	MaxGrossExposure        string `yaml:"max_gross_exposure"`
	MaxSingleAssetWeight    string `yaml:"max_single_asset_weight"`
	MaxLeverage             string `yaml:"max_leverage"`
	MaxPositionSizeNotional string `yaml:"max_position_size_notional"`
}

type RiskSizingConfig struct {
	BaseBetFraction  string `yaml:"base_bet_fraction"`
	KellyFractionCap string `yaml:"kelly_fraction_cap"`
	MinTradeNotional string `yaml:"min_trade_notional"`
	RoundingStep     string `yaml:"rounding_step"`
	OrderType        string `yaml:"order_type"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type BatchConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// Load reads a YAML config file, fills defaults and applies environment
// overrides. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r. An empty document yields the defaults.
func Parse(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.setDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Batch.Parallelism <= 0 {
		c.Batch.Parallelism = defaultParallelism
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// RiskLimits builds the validated limits.
func (c *Config) RiskLimits() (types.RiskLimits, error) {
	l := c.Limits
	gross, err := parseDecimal("max_gross_exposure", l.MaxGrossExposure)
	if err != nil {
		return types.RiskLimits{}, err
	}
	weight, err := parseDecimal("max_single_asset_weight", l.MaxSingleAssetWeight)
	if err != nil {
		return types.RiskLimits{}, err
	}
	leverage, err := parseDecimal("max_leverage", l.MaxLeverage)
	if err != nil {
		return types.RiskLimits{}, err
	}
	notional, err := parseDecimal("max_position_size_notional", l.MaxPositionSizeNotional)
	if err != nil {
		return types.RiskLimits{}, err
	}
	return types.NewRiskLimits(gross, weight, leverage, notional)
}

// RiskConfig builds the validated sizing parameters. rounding_step and
// order_type are optional.
func (c *Config) RiskConfig() (types.RiskConfig, error) {
	s := c.Sizing
	baseBet, err := parseDecimal("base_bet_fraction", s.BaseBetFraction)
	if err != nil {
		return types.RiskConfig{}, err
	}
	kellyCap, err := parseDecimal("kelly_fraction_cap", s.KellyFractionCap)
	if err != nil {
		return types.RiskConfig{}, err
	}
	minTrade := decimal.Zero
	if s.MinTradeNotional != "" {
		if minTrade, err = parseDecimal("min_trade_notional", s.MinTradeNotional); err != nil {
			return types.RiskConfig{}, err
		}
	}

	var opts []types.RiskConfigOption
	if s.RoundingStep != "" {
		step, err := parseDecimal("rounding_step", s.RoundingStep)
		if err != nil {
			return types.RiskConfig{}, err
		}
		opts = append(opts, types.WithRoundingStep(step))
	}
	if s.OrderType != "" {
		ot, err := types.ParseOrderType(strings.ToUpper(s.OrderType))
		if err != nil {
			return types.RiskConfig{}, &types.ConfigurationError{Field: "order_type", Reason: fmt.Sprintf("unknown value %q", s.OrderType)}
		}
		opts = append(opts, types.WithOrderType(ot))
	}
	return types.NewRiskConfig(baseBet, kellyCap, minTrade, opts...)
}

// LogLevel parses the configured zerolog level.
func (c *Config) LogLevel() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, &types.ConfigurationError{Field: "log.level", Reason: err.Error()}
	}
	return lvl, nil
}

// Validate checks every section that the engine depends on.
func (c *Config) Validate() error {
	if _, err := c.RiskLimits(); err != nil {
		return err
	}
	if _, err := c.RiskConfig(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.SignalWindow(); err != nil {
		return err
	}
	return nil
}

// SignalWindow parses database.signal_window. Zero means not set.
func (c *Config) SignalWindow() (time.Duration, error) {
	v := strings.TrimSpace(c.Database.SignalWindow)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &types.ConfigurationError{Field: "database.signal_window", Reason: fmt.Sprintf("not a duration: %q", v)}
	}
	if d <= 0 {
		return 0, &types.ConfigurationError{Field: "database.signal_window", Reason: "must be > 0"}
	}
	return d, nil
}

func parseDecimal(field, v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, &types.ConfigurationError{Field: field, Reason: "is required"}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, &types.ConfigurationError{Field: field, Reason: fmt.Sprintf("not a number: %q", v)}
	}
	return d, nil
}
