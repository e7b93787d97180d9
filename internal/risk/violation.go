package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Violation is a rejected risk rule. Each variant carries the measured value
// and the configured limit so callers can log or display the rejection
// without re-deriving portfolio state. Violations are expected, frequent
// data, not system faults.
//
// The interface is sealed: only this package defines variants.
type Violation interface {
	error
	violation()
}

// TradingDisabled is returned while the global kill switch is off.
type TradingDisabled struct{}

func (TradingDisabled) violation()    {}
func (TradingDisabled) Error() string { return "trading is disabled" }

// OrderSizeBelowMin rejects an order smaller than the configured minimum.
type OrderSizeBelowMin struct {
	Size decimal.Decimal
	Min  decimal.Decimal
}

func (OrderSizeBelowMin) violation() {}
func (v OrderSizeBelowMin) Error() string {
	return fmt.Sprintf("order size %s below min %s", v.Size, v.Min)
}

// OrderSizeExceeded rejects an order larger than the configured maximum.
type OrderSizeExceeded struct {
	Size decimal.Decimal
	Max  decimal.Decimal
}

func (OrderSizeExceeded) violation() {}
func (v OrderSizeExceeded) Error() string {
	return fmt.Sprintf("order size %s exceeds max %s", v.Size, v.Max)
}

// PositionSizeExceeded rejects a buy that would push a market's position
// past the global per-position cap.
type PositionSizeExceeded struct {
	Current   decimal.Decimal
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (PositionSizeExceeded) violation() {}
func (v PositionSizeExceeded) Error() string {
	return fmt.Sprintf("position size %s + %s would exceed max %s", v.Current, v.Requested, v.Max)
}

// MarketPositionExceeded rejects a buy that would push one market's position
// past the per-market cap.
type MarketPositionExceeded struct {
	MarketID  string
	Current   decimal.Decimal
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (MarketPositionExceeded) violation() {}
func (v MarketPositionExceeded) Error() string {
	return fmt.Sprintf("market %s position %s + %s would exceed max %s",
		v.MarketID, v.Current, v.Requested, v.Max)
}

// TotalExposureExceeded rejects a buy that would push portfolio-wide
// exposure past the limit.
type TotalExposureExceeded struct {
	Current   decimal.Decimal
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (TotalExposureExceeded) violation() {}
func (v TotalExposureExceeded) Error() string {
	return fmt.Sprintf("total exposure %s + %s would exceed max %s", v.Current, v.Requested, v.Max)
}

// OpenOrderLimitReached rejects a new order-producing signal while the open
// order count is at the cap.
type OpenOrderLimitReached struct {
	Open int
	Max  int
}

func (OpenOrderLimitReached) violation() {}
func (v OpenOrderLimitReached) Error() string {
	return fmt.Sprintf("open orders %d at max %d", v.Open, v.Max)
}

// DailyLossExceeded rejects all signals once the session's realized loss
// passes the daily limit.
type DailyLossExceeded struct {
	PnL decimal.Decimal
	Max decimal.Decimal
}

func (DailyLossExceeded) violation() {}
func (v DailyLossExceeded) Error() string {
	return fmt.Sprintf("daily pnl %s breaches max daily loss %s", v.PnL, v.Max)
}

// DrawdownExceeded rejects all signals once the balance drawdown from its
// peak passes the limit.
type DrawdownExceeded struct {
	Drawdown decimal.Decimal // fraction of peak balance
	Max      decimal.Decimal
}

func (DrawdownExceeded) violation() {}
func (v DrawdownExceeded) Error() string {
	return fmt.Sprintf("drawdown %s exceeds max %s", v.Drawdown, v.Max)
}

// InsufficientBalance rejects a buy whose required notional exceeds the
// available balance.
type InsufficientBalance struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (InsufficientBalance) violation() {}
func (v InsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: %s required, %s available", v.Required, v.Available)
}

// SlippageExceeded rejects a market order whose book-estimated slippage
// exceeds the limit. Both values are fractions (0.01 = 1%).
type SlippageExceeded struct {
	Estimated decimal.Decimal
	Max       decimal.Decimal
}

func (SlippageExceeded) violation() {}
func (v SlippageExceeded) Error() string {
	return fmt.Sprintf("estimated slippage %s exceeds max %s", v.Estimated, v.Max)
}

// MarketBlacklisted rejects signals for an explicitly blocked market.
type MarketBlacklisted struct {
	MarketID string
}

func (MarketBlacklisted) violation() {}
func (v MarketBlacklisted) Error() string {
	return fmt.Sprintf("market %s is blacklisted", v.MarketID)
}

// MarketNotWhitelisted rejects signals for markets outside a non-empty
// whitelist.
type MarketNotWhitelisted struct {
	MarketID string
}

func (MarketNotWhitelisted) violation() {}
func (v MarketNotWhitelisted) Error() string {
	return fmt.Sprintf("market %s is not whitelisted", v.MarketID)
}

// PriceOutOfBounds rejects limit prices outside the 0..1 range valid for
// outcome shares.
type PriceOutOfBounds struct {
	Price decimal.Decimal
}

func (PriceOutOfBounds) violation() {}
func (v PriceOutOfBounds) Error() string {
	return fmt.Sprintf("invalid price %s: must be within (0, 1)", v.Price)
}
