package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/domain"
)

// MeanReversion buys outcomes trading far below their rolling mean and
// exits once the price reverts. Deviation is measured as a z-score,
// (P - mean) / stddev, over a per-token rolling window.
type MeanReversion struct {
	NopCallbacks
	logger *slog.Logger

	mu         sync.Mutex
	windowSize int
	minSamples int
	entryZ     decimal.Decimal
	exitZ      decimal.Decimal
	orderSize  decimal.Decimal
	windows    map[string]*PriceWindow
	held       map[string]bool
}

// NewMeanReversion creates an unconfigured mean reversion strategy.
func NewMeanReversion(logger *slog.Logger) *MeanReversion {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeanReversion{
		logger:  logger.With(slog.String("strategy", "mean_reversion")),
		windows: map[string]*PriceWindow{},
		held:    map[string]bool{},
	}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Metadata() Metadata {
	return Metadata{
		Name:        "mean_reversion",
		Version:     "1.0.0",
		Description: "z-score reversion to a rolling mean",
	}
}

// Initialize reads the tunables. Options: window_size, min_samples,
// entry_z_score, exit_z_score, order_size.
func (s *MeanReversion) Initialize(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.windowSize, err = cfg.Params.Int("window_size", 20); err != nil {
		return s.configErr("window_size", err)
	}
	if s.windowSize < 2 {
		return ConfigError{Strategy: s.Name(), Option: "window_size", Reason: "must be at least 2"}
	}
	if s.minSamples, err = cfg.Params.Int("min_samples", s.windowSize); err != nil {
		return s.configErr("min_samples", err)
	}
	if s.minSamples < 2 || s.minSamples > s.windowSize {
		return ConfigError{Strategy: s.Name(), Option: "min_samples", Reason: "must be between 2 and window_size"}
	}
	if s.entryZ, err = cfg.Params.Decimal("entry_z_score", decimal.NewFromFloat(2.0)); err != nil {
		return s.configErr("entry_z_score", err)
	}
	if !s.entryZ.IsPositive() {
		return ConfigError{Strategy: s.Name(), Option: "entry_z_score", Reason: "must be positive"}
	}
	if s.exitZ, err = cfg.Params.Decimal("exit_z_score", decimal.NewFromFloat(0.5)); err != nil {
		return s.configErr("exit_z_score", err)
	}
	if s.exitZ.IsNegative() {
		return ConfigError{Strategy: s.Name(), Option: "exit_z_score", Reason: "must not be negative"}
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
		slog.Int("window_size", s.windowSize),
		slog.String("entry_z_score", s.entryZ.String()),
		slog.String("exit_z_score", s.exitZ.String()),
	)
	return nil
}

func (s *MeanReversion) Evaluate(_ context.Context, view *Context) ([]domain.Signal, error) {
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
				w = NewPriceWindow(s.windowSize)
				s.windows[o.TokenID] = w
			}
			w.Push(price)
			if w.Len() < s.minSamples {
				continue
			}
			mean, _ := w.Mean()
			stddev, ok := w.StdDev()
			// A flat window has no meaningful deviation.
			if !ok || stddev.IsZero() {
				continue
			}
			z := price.Sub(mean).Div(stddev)

			if s.held[o.TokenID] {
				if z.Abs().LessThanOrEqual(s.exitZ) {
					size := s.orderSize
					if pos, ok := view.Position(o.TokenID); ok && pos.Size.IsPositive() {
						size = pos.Size
					}
					sig := domain.NewSellSignal(m.ID, o.TokenID, size).
						WithReason(fmt.Sprintf("reverted to mean, z-score %s", z.StringFixed(2)))
					signals = append(signals, sig)
					delete(s.held, o.TokenID)
				}
				continue
			}

			if z.LessThanOrEqual(s.entryZ.Neg()) {
				sig := domain.NewBuySignal(m.ID, o.TokenID, s.orderSize).
					WithReason(fmt.Sprintf("price %s below mean %s, z-score %s",
						price.StringFixed(4), mean.StringFixed(4), z.StringFixed(2)))
				if z.LessThanOrEqual(s.entryZ.Neg().Mul(two)) {
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
func (s *MeanReversion) OnSignalExecuted(sig domain.Signal, success bool) {
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

func (s *MeanReversion) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = map[string]*PriceWindow{}
	s.held = map[string]bool{}
	s.logger.Info("shut down")
	return nil
}

func (s *MeanReversion) configErr(option string, err error) error {
	return ConfigError{Strategy: s.Name(), Option: option, Reason: err.Error()}
}
