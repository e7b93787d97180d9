package risk

import "github.com/shopspring/decimal"

// Config holds the tunable limits applied by the Guard. It is loaded once
// per trading session and read-only thereafter.
//
// A zero decimal limit (or zero MaxOpenOrders) disables the corresponding
// check. Percentages are fractions: MaxDrawdownPct 0.2 means 20%.
type Config struct {
	Enabled bool `toml:"enabled"`

	MinOrderSize         decimal.Decimal `toml:"min_order_size"`
	MaxOrderSize         decimal.Decimal `toml:"max_order_size"`
	MaxPositionSize      decimal.Decimal `toml:"max_position_size"`
	MaxPositionPerMarket decimal.Decimal `toml:"max_position_per_market"`
	MaxTotalExposure     decimal.Decimal `toml:"max_total_exposure"`
	MaxOpenOrders        int             `toml:"max_open_orders"`
	MaxDailyLoss         decimal.Decimal `toml:"max_daily_loss"`
	MaxDrawdownPct       decimal.Decimal `toml:"max_drawdown_pct"`
	MaxSlippagePct       decimal.Decimal `toml:"max_slippage_pct"`

	// BlacklistedMarkets are never traded. A non-empty WhitelistedMarkets
	// restricts trading to exactly those markets.
	BlacklistedMarkets []string `toml:"blacklisted_markets"`
	WhitelistedMarkets []string `toml:"whitelisted_markets"`
}

// DefaultConfig returns conservative session defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MinOrderSize:         decimal.NewFromInt(1),
		MaxOrderSize:         decimal.NewFromInt(100),
		MaxPositionSize:      decimal.NewFromInt(100),
		MaxPositionPerMarket: decimal.NewFromInt(200),
		MaxTotalExposure:     decimal.NewFromInt(1000),
		MaxOpenOrders:        20,
		MaxDailyLoss:         decimal.NewFromInt(50),
		MaxDrawdownPct:       decimal.NewFromFloat(0.20),
		MaxSlippagePct:       decimal.NewFromFloat(0.05),
	}
}
