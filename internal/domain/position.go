package domain

import "github.com/shopspring/decimal"

// PositionSnapshot is the read-only projection of a current holding supplied
// per evaluation cycle.
type PositionSnapshot struct {
	MarketID      string
	TokenID       string
	Size          decimal.Decimal
	AvgPrice      decimal.Decimal
	CurrentPrice  decimal.Decimal
	CurrentValue  decimal.Decimal
	UnrealizedPnL decimal.Decimal
	PnLPercent    decimal.Decimal
}

// IsProfitable reports whether the position carries a positive unrealized PnL.
func (p PositionSnapshot) IsProfitable() bool {
	return p.UnrealizedPnL.IsPositive()
}
