package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignalType is the direction of a trade intent.
type SignalType string

const (
	SignalTypeBuy  SignalType = "buy"
	SignalTypeSell SignalType = "sell"
)

// SignalStrength is a strategy's conviction in its own signal.
type SignalStrength int

const (
	SignalStrengthLow    SignalStrength = iota
	SignalStrengthMedium
	SignalStrengthStrong
)

func (s SignalStrength) String() string {
	switch s {
	case SignalStrengthLow:
		return "low"
	case SignalStrengthMedium:
		return "medium"
	case SignalStrengthStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// Signal is a strategy's proposed trade intent. It is immutable once built
// and carries no execution outcome; the risk guard decides whether it may
// reach the execution layer.
type Signal struct {
	ID       string
	Strategy string // stamped by the engine with the originating strategy name
	Type     SignalType
	MarketID string
	TokenID  string
	Size     decimal.Decimal
	// LimitPrice is the requested limit; Valid=false means "at market".
	LimitPrice decimal.NullDecimal
	Strength   SignalStrength
	Reason     string
	// TTL of zero means the signal does not expire.
	TTL       time.Duration
	CreatedAt time.Time
}

// NewBuySignal creates a buy intent with medium strength.
func NewBuySignal(marketID, tokenID string, size decimal.Decimal) Signal {
	return newSignal(SignalTypeBuy, marketID, tokenID, size)
}

// NewSellSignal creates a sell intent with medium strength.
func NewSellSignal(marketID, tokenID string, size decimal.Decimal) Signal {
	return newSignal(SignalTypeSell, marketID, tokenID, size)
}

func newSignal(t SignalType, marketID, tokenID string, size decimal.Decimal) Signal {
	return Signal{
		ID:        uuid.NewString(),
		Type:      t,
		MarketID:  marketID,
		TokenID:   tokenID,
		Size:      size,
		Strength:  SignalStrengthMedium,
		CreatedAt: time.Now().UTC(),
	}
}

// WithLimitPrice returns a copy carrying a limit price.
func (s Signal) WithLimitPrice(price decimal.Decimal) Signal {
	s.LimitPrice = decimal.NullDecimal{Decimal: price, Valid: true}
	return s
}

// WithStrength returns a copy with the given strength.
func (s Signal) WithStrength(strength SignalStrength) Signal {
	s.Strength = strength
	return s
}

// WithReason returns a copy with a human-readable rationale.
func (s Signal) WithReason(reason string) Signal {
	s.Reason = reason
	return s
}

// WithTTL returns a copy that expires ttl after creation.
func (s Signal) WithTTL(ttl time.Duration) Signal {
	s.TTL = ttl
	return s
}

// WithStrategy returns a copy attributed to the named strategy.
func (s Signal) WithStrategy(name string) Signal {
	s.Strategy = name
	return s
}

// IsExpired reports whether the signal's TTL has elapsed at the given time.
// Signals without a TTL never expire.
func (s Signal) IsExpired(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.After(s.CreatedAt.Add(s.TTL))
}

// Notional returns size * limit price when a limit price is present.
func (s Signal) Notional() (decimal.Decimal, bool) {
	if !s.LimitPrice.Valid {
		return decimal.Decimal{}, false
	}
	return s.Size.Mul(s.LimitPrice.Decimal), true
}
