package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/domain"
)

// NopCallbacks provides no-op event hooks for strategies that only react
// to a subset of execution events.
type NopCallbacks struct{}

func (NopCallbacks) OnMarketUpdate(domain.MarketSnapshot)                 {}
func (NopCallbacks) OnSignalExecuted(domain.Signal, bool)                 {}
func (NopCallbacks) OnOrderFilled(string, decimal.Decimal, decimal.Decimal) {}
func (NopCallbacks) OnOrderCancelled(string)                              {}

// observedPrice returns the book mid price for a token when a two-sided
// book exists, falling back to the outcome's last price.
func observedPrice(view *Context, o domain.OutcomeSnapshot) decimal.Decimal {
	if b, ok := view.Book(o.TokenID); ok {
		if mid, ok := b.MidPrice(); ok {
			return mid
		}
	}
	return o.Price
}

// Momentum buys outcomes whose price is trending up and exits once the
// trend reverses. The trend measure is the fractional price change over the
// lookback window, (P_t - P_{t-n}) / P_{t-n}, fed from per-token price
// windows the strategy maintains across cycles.
type Momentum struct {
	NopCallbacks
	logger *slog.Logger

	mu             sync.Mutex
	lookback       int
	entryThreshold decimal.Decimal
	exitThreshold  decimal.Decimal
	maxPositions   int
	orderSize      decimal.Decimal
	windows        map[string]*PriceWindow
	held           map[string]bool
}

// NewMomentum creates an unconfigured momentum strategy.
func NewMomentum(logger *slog.Logger) *Momentum {
	if logger == nil {
		logger = slog.Default()
	}
	return &Momentum{
		logger:  logger.With(slog.String("strategy", "momentum")),
		windows: map[string]*PriceWindow{},
		held:    map[string]bool{},
	}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Metadata() Metadata {
	return Metadata{
		Name:        "momentum",
		Version:     "1.0.0",
		Description: "trend following on lookback price change",
	}
}

// Initialize reads the tunables. Options: lookback_periods, entry_threshold,
// exit_threshold, max_positions, order_size.
func (s *Momentum) Initialize(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.lookback, err = cfg.Params.Int("lookback_periods", 10); err != nil {
		return s.configErr("lookback_periods", err)
	}
	if s.lookback < 1 {
		return ConfigError{Strategy: s.Name(), Option: "lookback_periods", Reason: "must be at least 1"}
	}
	if s.entryThreshold, err = cfg.Params.Decimal("entry_threshold", decimal.NewFromFloat(0.05)); err != nil {
		return s.configErr("entry_threshold", err)
	}
	if !s.entryThreshold.IsPositive() {
		return ConfigError{Strategy: s.Name(), Option: "entry_threshold", Reason: "must be positive"}
	}
	if s.exitThreshold, err = cfg.Params.Decimal("exit_threshold", decimal.NewFromFloat(0.02)); err != nil {
		return s.configErr("exit_threshold", err)
	}
	if s.maxPositions, err = cfg.Params.Int("max_positions", 5); err != nil {
		return s.configErr("max_positions", err)
	}
	if s.maxPositions < 1 {
		return ConfigError{Strategy: s.Name(), Option: "max_positions", Reason: "must be at least 1"}
	}
	if s.orderSize, err = cfg.Params.Decimal("order_size", decimal.NewFromInt(10)); err != nil {
		return s.configErr("order_size", err)
	}
	if !s.orderSize.IsPositive() {
		return ConfigError{Strategy: s.Name(), Option: "order_size", Reason: "must be positive"}
	}

	s.windows = map[string]*PriceWindow{}
	s.held = map[string]bool{}
	s.logger.Info("initialized",
		slog.Int("lookback_periods", s.lookback),
		slog.String("entry_threshold", s.entryThreshold.String()),
		slog.String("exit_threshold", s.exitThreshold.String()),
	)
	return nil
}

func (s *Momentum) Evaluate(_ context.Context, view *Context) ([]domain.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var signals []domain.Signal
	for _, m := range view.Markets() {
		if !m.IsTradeable() {
			continue
		}
		for _, o := range m.Outcomes {
			price := observedPrice(view, o)
			if !price.IsPositive() {
				continue
			}
			w, ok := s.windows[o.TokenID]
			if !ok {
				w = NewPriceWindow(s.lookback + 1)
				s.windows[o.TokenID] = w
			}
			w.Push(price)

			prior, ok := w.Lookback(s.lookback)
			if !ok || prior.IsZero() {
				continue
			}
			mom := price.Sub(prior).Div(prior)

			if s.held[o.TokenID] {
				// Exit only on reversal, not on a mere stall.
				if mom.LessThanOrEqual(s.exitThreshold.Neg()) {
					size := s.orderSize
					if pos, ok := view.Position(o.TokenID); ok && pos.Size.IsPositive() {
						size = pos.Size
					}
					sig := domain.NewSellSignal(m.ID, o.TokenID, size).
						WithReason(fmt.Sprintf("momentum reversed to %s over %d periods", mom.StringFixed(4), s.lookback))
					signals = append(signals, sig)
					delete(s.held, o.TokenID)
				}
				continue
			}

			if mom.GreaterThanOrEqual(s.entryThreshold) && len(s.held) < s.maxPositions {
				sig := domain.NewBuySignal(m.ID, o.TokenID, s.orderSize).
					WithReason(fmt.Sprintf("momentum %s over %d periods", mom.StringFixed(4), s.lookback))
				if mom.GreaterThanOrEqual(s.entryThreshold.Mul(two)) {
					sig = sig.WithStrength(domain.SignalStrengthStrong)
				}
				signals = append(signals, sig)
				s.held[o.TokenID] = true
			}
		}
	}
	return signals, nil
}

// OnSignalExecuted reverts the held bookkeeping when an emitted signal
// failed to execute.
func (s *Momentum) OnSignalExecuted(sig domain.Signal, success bool) {
	if success {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sig.Type {
	case domain.SignalTypeBuy:
		delete(s.held, sig.TokenID)
	case domain.SignalTypeSell:
		s.held[sig.TokenID] = true
	}
}

func (s *Momentum) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = map[string]*PriceWindow{}
	s.held = map[string]bool{}
	s.logger.Info("shut down")
	return nil
}

func (s *Momentum) configErr(option string, err error) error {
	return ConfigError{Strategy: s.Name(), Option: option, Reason: err.Error()}
}
