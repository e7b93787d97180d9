// Package domain holds the value types shared across the strategy and risk
// layers: orderbook depth snapshots, market/position/order projections and
// trade signals. Everything here is plain data; no I/O.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// OutcomeSnapshot is the read-only projection of one outcome token at
// context-build time.
type OutcomeSnapshot struct {
	TokenID string
	Name    string // e.g. "Yes", "No"
	Price   decimal.Decimal
	Bid     decimal.Decimal
	Ask     decimal.Decimal
}

// MarketSnapshot is the read-only projection of a market supplied to
// strategies once per evaluation cycle. It is never mutated by the core.
type MarketSnapshot struct {
	ID        string
	Question  string
	Status    MarketStatus
	Outcomes  []OutcomeSnapshot
	Volume24h decimal.Decimal
	Liquidity decimal.Decimal
	EndDate   *time.Time
}

// IsTradeable reports whether the market accepts orders.
func (m MarketSnapshot) IsTradeable() bool {
	return m.Status == MarketStatusActive
}

// YesPrice returns the price of the first outcome.
func (m MarketSnapshot) YesPrice() (decimal.Decimal, bool) {
	if len(m.Outcomes) == 0 {
		return decimal.Decimal{}, false
	}
	return m.Outcomes[0].Price, true
}

// NoPrice returns the price of the second outcome.
func (m MarketSnapshot) NoPrice() (decimal.Decimal, bool) {
	if len(m.Outcomes) < 2 {
		return decimal.Decimal{}, false
	}
	return m.Outcomes[1].Price, true
}

// Outcome returns the outcome snapshot holding tokenID.
func (m MarketSnapshot) Outcome(tokenID string) (OutcomeSnapshot, bool) {
	for _, o := range m.Outcomes {
		if o.TokenID == tokenID {
			return o, true
		}
	}
	return OutcomeSnapshot{}, false
}

// TokenIDs returns the outcome token IDs in outcome order.
func (m MarketSnapshot) TokenIDs() []string {
	ids := make([]string, len(m.Outcomes))
	for i, o := range m.Outcomes {
		ids[i] = o.TokenID
	}
	return ids
}
