package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/domain"
)

// Spread quotes both sides of wide markets. When a book's spread is at
// least min_spread, it emits a buy limit below mid and a sell limit above
// mid, both shifted down by an inventory skew so accumulated exposure gets
// worked off:
//
//	bid = mid - spread/2 - skew
//	ask = mid + spread/2 - skew
//	skew = skew_factor * inventory / max_position
//
// Inventory is tracked from signal execution outcomes. A side is withheld
// once filling it would push inventory past max_position.
type Spread struct {
	NopCallbacks
	logger *slog.Logger

	mu          sync.Mutex
	minSpread   decimal.Decimal
	skewFactor  decimal.Decimal
	maxPosition decimal.Decimal
	orderSize   decimal.Decimal
	inventory   map[string]decimal.Decimal
}

// NewSpread creates an unconfigured spread strategy.
func NewSpread(logger *slog.Logger) *Spread {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spread{
		logger:    logger.With(slog.String("strategy", "spread")),
		inventory: map[string]decimal.Decimal{},
	}
}

func (s *Spread) Name() string { return "spread" }

func (s *Spread) Metadata() Metadata {
	return Metadata{
		Name:        "spread",
		Version:     "1.0.0",
		Description: "two-sided quoting on wide books with inventory skew",
	}
}

// Initialize reads the tunables. Options: min_spread, skew_factor,
// max_position, order_size.
func (s *Spread) Initialize(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.minSpread, err = cfg.Params.Decimal("min_spread", decimal.NewFromFloat(0.02)); err != nil {
		return s.configErr("min_spread", err)
	}
	if !s.minSpread.IsPositive() {
		return ConfigError{Strategy: s.Name(), Option: "min_spread", Reason: "must be positive"}
	}
	if s.skewFactor, err = cfg.Params.Decimal("skew_factor", decimal.NewFromFloat(0.01)); err != nil {
		return s.configErr("skew_factor", err)
	}
	if s.skewFactor.IsNegative() {
		return ConfigError{Strategy: s.Name(), Option: "skew_factor", Reason: "must not be negative"}
	}
	if s.maxPosition, err = cfg.Params.Decimal("max_position", decimal.NewFromInt(100)); err != nil {
		return s.configErr("max_position", err)
	}
	if !s.maxPosition.IsPositive() {
		return ConfigError{Strategy: s.Name(), Option: "max_position", Reason: "must be positive"}
	}
	if s.orderSize, err = cfg.Params.Decimal("order_size", decimal.NewFromInt(10)); err != nil {
		return s.configErr("order_size", err)
	}
	if !s.orderSize.IsPositive() {
		return ConfigError{Strategy: s.Name(), Option: "order_size", Reason: "must be positive"}
	}

	s.inventory = map[string]decimal.Decimal{}
	s.logger.Info("initialized",
		slog.String("min_spread", s.minSpread.String()),
		slog.String("skew_factor", s.skewFactor.String()),
		slog.String("max_position", s.maxPosition.String()),
	)
	return nil
}

func (s *Spread) Evaluate(_ context.Context, view *Context) ([]domain.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var signals []domain.Signal
	for _, m := range view.Markets() {
		if !m.IsTradeable() {
			continue
		}
		for _, o := range m.Outcomes {
			book, ok := view.Book(o.TokenID)
			if !ok {
				continue
			}
			mid, okM := book.MidPrice()
			spread, okS := book.Spread()
			if !okM || !okS || spread.LessThan(s.minSpread) {
				continue
			}

			inv := s.inventory[o.TokenID]
			skew := s.skewFactor.Mul(inv.Div(s.maxPosition))
			half := spread.Div(two)
			bid := clampPrice(mid.Sub(half).Sub(skew))
			ask := clampPrice(mid.Add(half).Sub(skew))
			reason := fmt.Sprintf("spread %s at mid %s, inventory %s",
				spread.StringFixed(4), mid.StringFixed(4), inv.String())

			if inv.Add(s.orderSize).LessThanOrEqual(s.maxPosition) {
				signals = append(signals, domain.NewBuySignal(m.ID, o.TokenID, s.orderSize).
					WithLimitPrice(bid).
					WithReason(reason))
			}
			if inv.Sub(s.orderSize).GreaterThanOrEqual(s.maxPosition.Neg()) {
				signals = append(signals, domain.NewSellSignal(m.ID, o.TokenID, s.orderSize).
					WithLimitPrice(ask).
					WithReason(reason))
			}
		}
	}
	return signals, nil
}

// OnSignalExecuted updates the per-token inventory from execution outcomes.
func (s *Spread) OnSignalExecuted(sig domain.Signal, success bool) {
	if !success {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sig.Type {
	case domain.SignalTypeBuy:
		s.inventory[sig.TokenID] = s.inventory[sig.TokenID].Add(sig.Size)
	case domain.SignalTypeSell:
		s.inventory[sig.TokenID] = s.inventory[sig.TokenID].Sub(sig.Size)
	}
}

func (s *Spread) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = map[string]decimal.Decimal{}
	s.logger.Info("shut down")
	return nil
}

func (s *Spread) configErr(option string, err error) error {
	return ConfigError{Strategy: s.Name(), Option: option, Reason: err.Error()}
}

var (
	minQuote = decimal.NewFromFloat(0.01)
	maxQuote = decimal.NewFromFloat(0.99)
)

// clampPrice keeps a quote inside the valid price range for outcome shares.
func clampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(minQuote) {
		return minQuote
	}
	if p.GreaterThan(maxQuote) {
		return maxQuote
	}
	return p
}
