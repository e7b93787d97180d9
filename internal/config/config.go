// Package config loads and validates the session configuration: engine
// tuning, risk limits and per-strategy options.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/risk"
	"github.com/clobster/clobcore/internal/strategy"
)

// Config is the full session configuration.
type Config struct {
	LogLevel string `toml:"log_level"`

	Engine EngineConfig `toml:"engine"`
	Risk   risk.Config  `toml:"risk"`
	// Strategies maps strategy name to its options, e.g. [strategies.momentum].
	Strategies map[string]StrategyConfig `toml:"strategies"`
}

// EngineConfig tunes the strategy engine.
type EngineConfig struct {
	ParallelEvaluation bool `toml:"parallel_evaluation"`
	// MaxStrategyErrors quarantines a strategy after this many consecutive
	// evaluate failures. Zero disables quarantine.
	MaxStrategyErrors int `toml:"max_strategy_errors"`
	RecentSignalLimit int `toml:"recent_signal_limit"`
}

// StrategyConfig is the file form of one strategy's configuration.
type StrategyConfig struct {
	Enabled             bool           `toml:"enabled"`
	IncludeMarkets      []string       `toml:"include_markets"`
	ExcludeMarkets      []string       `toml:"exclude_markets"`
	MinEvalIntervalSecs int            `toml:"min_eval_interval_secs"`
	Params              map[string]any `toml:"params"`
}

// ToEngine converts to the engine's strategy configuration.
func (c StrategyConfig) ToEngine() strategy.Config {
	return strategy.Config{
		Enabled:         c.Enabled,
		IncludeMarkets:  c.IncludeMarkets,
		ExcludeMarkets:  c.ExcludeMarkets,
		MinEvalInterval: time.Duration(c.MinEvalIntervalSecs) * time.Second,
		Params:          strategy.Params(c.Params),
	}
}

// Defaults returns the configuration used when no file overrides it.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Engine: EngineConfig{
			MaxStrategyErrors: 5,
			RecentSignalLimit: 100,
		},
		Risk:       risk.DefaultConfig(),
		Strategies: map[string]StrategyConfig{},
	}
}

// Validate checks cross-field consistency after loading.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	if c.Engine.MaxStrategyErrors < 0 {
		return fmt.Errorf("config: engine.max_strategy_errors must not be negative")
	}
	if c.Engine.RecentSignalLimit < 0 {
		return fmt.Errorf("config: engine.recent_signal_limit must not be negative")
	}
	r := c.Risk
	if !r.MinOrderSize.IsZero() && !r.MaxOrderSize.IsZero() && r.MinOrderSize.GreaterThan(r.MaxOrderSize) {
		return fmt.Errorf("config: risk.min_order_size exceeds risk.max_order_size")
	}
	one := decimal.NewFromInt(1)
	for _, frac := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"risk.max_drawdown_pct", r.MaxDrawdownPct},
		{"risk.max_slippage_pct", r.MaxSlippagePct},
	} {
		if frac.value.IsNegative() || frac.value.GreaterThan(one) {
			return fmt.Errorf("config: %s must be a fraction in [0, 1]", frac.name)
		}
	}
	for name, sc := range c.Strategies {
		if sc.MinEvalIntervalSecs < 0 {
			return fmt.Errorf("config: strategies.%s.min_eval_interval_secs must not be negative", name)
		}
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Strategy returns the configuration for one strategy, falling back to a
// disabled default when the file omits it.
func (c Config) Strategy(name string) StrategyConfig {
	if sc, ok := c.Strategies[name]; ok {
		return sc
	}
	return StrategyConfig{}
}
