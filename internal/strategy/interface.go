// Package strategy contains the trading strategy contract, the evaluation
// context handed to strategies each cycle, the built-in strategies and the
// engine that runs them behind the risk guard.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/domain"
)

// Strategy is the contract every trading strategy implements. The engine
// drives the lifecycle: Initialize once, Evaluate repeatedly while running,
// the On* callbacks as execution events arrive, Shutdown once at the end.
//
// Evaluate must be a pure read of the context plus the strategy's own state;
// strategies never execute trades, they only emit signals. Implementations
// must be safe for callbacks arriving concurrently with Evaluate.
type Strategy interface {
	// Name is the unique registration key, e.g. "momentum".
	Name() string
	Metadata() Metadata

	// Initialize applies configuration before the first evaluation. A
	// returned error aborts registration.
	Initialize(ctx context.Context, cfg Config) error

	// Evaluate inspects the snapshot and returns zero or more signals.
	Evaluate(ctx context.Context, view *Context) ([]domain.Signal, error)

	// OnMarketUpdate is invoked when a market's data changes between cycles.
	OnMarketUpdate(market domain.MarketSnapshot)
	// OnSignalExecuted reports the execution outcome of a signal this
	// strategy emitted.
	OnSignalExecuted(sig domain.Signal, success bool)
	// OnOrderFilled reports a fill on an order placed from this strategy's
	// signals.
	OnOrderFilled(orderID string, price, size decimal.Decimal)
	// OnOrderCancelled reports a cancellation.
	OnOrderCancelled(orderID string)

	// Shutdown releases strategy resources. Called at most once.
	Shutdown(ctx context.Context) error
}

// Metadata describes a strategy for display and logging.
type Metadata struct {
	Name        string
	Version     string
	Description string
}

// Config is the per-strategy configuration applied at registration.
type Config struct {
	Enabled bool `toml:"enabled"`
	// IncludeMarkets restricts evaluation to these market IDs when
	// non-empty. ExcludeMarkets always wins over IncludeMarkets.
	IncludeMarkets []string `toml:"include_markets"`
	ExcludeMarkets []string `toml:"exclude_markets"`
	// MinEvalInterval throttles how often the engine evaluates this
	// strategy. Zero means every cycle.
	MinEvalInterval time.Duration `toml:"-"`
	Params          Params        `toml:"params"`
}

// Params carries free-form strategy options decoded from configuration.
// The typed getters return the default when the key is absent and an error
// when the key is present with an incompatible type.
type Params map[string]any

// Decimal reads a numeric option. TOML numbers arrive as int64 or float64;
// strings are accepted for exact decimal values.
func (p Params) Decimal(key string, def decimal.Decimal) (decimal.Decimal, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("option %q: invalid decimal %q", key, n)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("option %q: expected number, got %T", key, v)
	}
}

// Int reads an integer option.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("option %q: expected integer, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("option %q: expected integer, got %T", key, v)
	}
}

// Bool reads a boolean option.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("option %q: expected bool, got %T", key, v)
	}
	return b, nil
}

// String reads a string option.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q: expected string, got %T", key, v)
	}
	return s, nil
}
