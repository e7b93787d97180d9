package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/clobster/clobcore/internal/domain"
	"github.com/clobster/clobcore/internal/risk"
)

const (
	defaultMaxStrategyErrors = 5
	defaultRecentSignalLimit = 100
)

// Rejection pairs a signal with the risk rule that blocked it.
type Rejection struct {
	Signal    domain.Signal
	Violation risk.Violation
}

// Result is the outcome of one evaluation cycle. Accepted signals passed
// the risk guard and are ready for the execution layer; Errors holds one
// EvaluationError per strategy that failed this cycle.
type Result struct {
	Accepted  []domain.Signal
	Rejected  []Rejection
	Errors    []error
	Evaluated int // strategies evaluated this cycle
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelEvaluation runs strategy evaluations concurrently within a
// cycle. Signal collection and risk validation stay serialized, so results
// remain in registration order.
func WithParallelEvaluation() Option {
	return func(e *Engine) { e.parallel = true }
}

// WithMaxStrategyErrors quarantines a strategy after n consecutive evaluate
// failures. Zero disables quarantine.
func WithMaxStrategyErrors(n int) Option {
	return func(e *Engine) { e.maxErrors = n }
}

// WithRecentSignalLimit caps the accepted-signal history ring.
func WithRecentSignalLimit(n int) Option {
	return func(e *Engine) { e.recentLimit = n }
}

// Engine owns the registered strategies, drives their lifecycle and runs
// the evaluate-then-validate cycle. Evaluation is deterministic: signals
// are concatenated in registration order and risk-checked one by one.
type Engine struct {
	mu    sync.Mutex
	reg   *registry
	guard *risk.Guard

	logger      *slog.Logger
	parallel    bool
	maxErrors   int
	recentLimit int
	recent      []domain.Signal
}

// NewEngine creates an engine gated by the given risk guard. The logger
// may be nil.
func NewEngine(guard *risk.Guard, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		reg:         newRegistry(),
		guard:       guard,
		logger:      logger.With(slog.String("component", "strategy_engine")),
		maxErrors:   defaultMaxStrategyErrors,
		recentLimit: defaultRecentSignalLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register initializes a strategy and adds it to the engine. The strategy
// starts stopped; call Start or StartAll to make it evaluable. Registration
// fails if the name is taken or Initialize returns an error.
func (e *Engine) Register(ctx context.Context, s Strategy, cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := &handle{
		strategy:     s,
		cfg:          cfg,
		status:       StatusCreated,
		registeredAt: time.Now().UTC(),
	}
	if err := e.reg.add(h); err != nil {
		return err
	}
	if err := s.Initialize(ctx, cfg); err != nil {
		e.reg.removeLast()
		return fmt.Errorf("initialize strategy %s: %w", s.Name(), err)
	}
	h.status = StatusInitialized
	e.logger.Info("strategy registered",
		slog.String("strategy", s.Name()),
		slog.Bool("enabled", cfg.Enabled),
	)
	return nil
}

// Start makes a strategy evaluable. Starting a running strategy is a no-op;
// starting a quarantined one clears its error count.
func (e *Engine) Start(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.reg.get(name)
	if err != nil {
		return err
	}
	switch h.status {
	case StatusRunning:
		return nil
	case StatusCreated:
		return fmt.Errorf("%w: %s", ErrStrategyNotInitialized, name)
	case StatusTerminated:
		return fmt.Errorf("%w: %s", ErrStrategyTerminated, name)
	case StatusError:
		h.errCount = 0
	}
	h.status = StatusRunning
	e.logger.Info("strategy started", slog.String("strategy", name))
	return nil
}

// Stop pauses a strategy. Stopping an already stopped strategy is a no-op;
// state is retained and Start resumes evaluation.
func (e *Engine) Stop(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.reg.get(name)
	if err != nil {
		return err
	}
	switch h.status {
	case StatusStopped:
		return nil
	case StatusTerminated:
		return fmt.Errorf("%w: %s", ErrStrategyTerminated, name)
	}
	h.status = StatusStopped
	e.logger.Info("strategy stopped", slog.String("strategy", name))
	return nil
}

// StartAll starts every enabled, startable strategy. Disabled and
// terminated strategies are skipped.
func (e *Engine) StartAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.reg.inOrder() {
		if !h.cfg.Enabled {
			continue
		}
		switch h.status {
		case StatusInitialized, StatusStopped, StatusError:
			h.errCount = 0
			h.status = StatusRunning
		}
	}
}

// StopAll stops every running strategy.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.reg.inOrder() {
		if h.status == StatusRunning {
			h.status = StatusStopped
		}
	}
}

// Shutdown invokes every strategy's Shutdown hook once and marks the
// handles terminated. Hook errors are joined and returned; shutdown always
// proceeds through the full set.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, h := range e.reg.inOrder() {
		if h.status == StatusTerminated {
			continue
		}
		if err := h.strategy.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown strategy %s: %w", h.strategy.Name(), err))
		}
		h.status = StatusTerminated
	}
	e.logger.Info("engine shut down", slog.Int("strategies", e.reg.len()))
	return errors.Join(errs...)
}

type evalSlot struct {
	handle  *handle
	signals []domain.Signal
	err     error
}

// Evaluate runs one cycle: every running strategy evaluates the snapshot,
// their signals are concatenated in registration order and each signal is
// risk-checked against the unfiltered snapshot. A strategy failure or panic
// is recorded and never aborts the cycle.
func (e *Engine) Evaluate(ctx context.Context, view *Context) Result {
	now := time.Now().UTC()

	e.mu.Lock()
	var slots []*evalSlot
	for _, h := range e.reg.inOrder() {
		if h.status != StatusRunning {
			continue
		}
		if h.cfg.MinEvalInterval > 0 && !h.lastEvaluated.IsZero() &&
			now.Sub(h.lastEvaluated) < h.cfg.MinEvalInterval {
			continue
		}
		slots = append(slots, &evalSlot{handle: h})
	}
	e.mu.Unlock()

	if e.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, s := range slots {
			s := s
			g.Go(func() error {
				s.signals, s.err = e.runEvaluate(gctx, s.handle, view)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, s := range slots {
			s.signals, s.err = e.runEvaluate(ctx, s.handle, view)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Evaluated: len(slots)}
	var pending []domain.Signal
	for _, s := range slots {
		h := s.handle
		name := h.strategy.Name()
		h.lastEvaluated = now
		if s.err != nil {
			h.errCount++
			res.Errors = append(res.Errors, EvaluationError{Strategy: name, Err: s.err})
			e.logger.Error("strategy evaluate failed",
				slog.String("strategy", name),
				slog.Int("consecutive_errors", h.errCount),
				slog.Any("error", s.err),
			)
			if e.maxErrors > 0 && h.errCount >= e.maxErrors && h.status == StatusRunning {
				h.status = StatusError
				e.logger.Warn("strategy quarantined after repeated failures",
					slog.String("strategy", name),
					slog.Int("errors", h.errCount),
				)
			}
			continue
		}
		h.errCount = 0
		h.signalsGenerated += len(s.signals)
		for _, sig := range s.signals {
			pending = append(pending, sig.WithStrategy(name))
		}
	}

	for _, sig := range pending {
		if v := e.guard.Validate(sig, view); v != nil {
			res.Rejected = append(res.Rejected, Rejection{Signal: sig, Violation: v})
			continue
		}
		res.Accepted = append(res.Accepted, sig)
		e.pushRecent(sig)
	}

	if len(res.Accepted) > 0 || len(res.Rejected) > 0 {
		e.logger.Debug("evaluation cycle complete",
			slog.Int("evaluated", res.Evaluated),
			slog.Int("accepted", len(res.Accepted)),
			slog.Int("rejected", len(res.Rejected)),
		)
	}
	return res
}

// runEvaluate calls one strategy's Evaluate on its filtered view, turning
// panics into errors so a faulty strategy cannot take down the cycle.
func (e *Engine) runEvaluate(ctx context.Context, h *handle, view *Context) (signals []domain.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signals = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.strategy.Evaluate(ctx, view.filtered(h.cfg.IncludeMarkets, h.cfg.ExcludeMarkets))
}

func (e *Engine) pushRecent(sig domain.Signal) {
	if e.recentLimit <= 0 {
		return
	}
	e.recent = append(e.recent, sig)
	if len(e.recent) > e.recentLimit {
		e.recent = e.recent[1:]
	}
}

// RecentSignals returns the accepted-signal history, oldest first.
func (e *Engine) RecentSignals() []domain.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Signal, len(e.recent))
	copy(out, e.recent)
	return out
}

// NotifyMarketUpdate forwards a market change to every running strategy.
func (e *Engine) NotifyMarketUpdate(market domain.MarketSnapshot) {
	for _, h := range e.running() {
		h.strategy.OnMarketUpdate(market)
	}
}

// OnSignalExecuted reports an execution outcome to the strategy that
// emitted the signal, matched by the signal's strategy attribution.
// Outcomes arriving after the strategy terminated are dropped.
func (e *Engine) OnSignalExecuted(sig domain.Signal, success bool) {
	h, ok := e.route(sig.Strategy, "signal_id", sig.ID)
	if !ok {
		return
	}
	if success {
		e.mu.Lock()
		h.signalsExecuted++
		e.mu.Unlock()
	}
	h.strategy.OnSignalExecuted(sig, success)
}

// OnOrderFilled reports a fill to the strategy whose signal produced the
// order. Fills for terminated strategies are dropped.
func (e *Engine) OnOrderFilled(strategyName, orderID string, price, size decimal.Decimal) {
	h, ok := e.route(strategyName, "order_id", orderID)
	if !ok {
		return
	}
	h.strategy.OnOrderFilled(orderID, price, size)
}

// OnOrderCancelled reports a cancellation to the strategy whose signal
// produced the order. Cancellations for terminated strategies are dropped.
func (e *Engine) OnOrderCancelled(strategyName, orderID string) {
	h, ok := e.route(strategyName, "order_id", orderID)
	if !ok {
		return
	}
	h.strategy.OnOrderCancelled(orderID)
}

// route resolves the handle an execution event belongs to, dropping events
// for unknown or terminated strategies.
func (e *Engine) route(strategyName, idKey, id string) (*handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, err := e.reg.get(strategyName)
	if err != nil {
		e.logger.Warn("execution event has no registered strategy",
			slog.String("strategy", strategyName),
			slog.String(idKey, id),
		)
		return nil, false
	}
	if h.status == StatusTerminated {
		return nil, false
	}
	return h, true
}

// Strategies returns bookkeeping snapshots in registration order.
func (e *Engine) Strategies() []Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Info, 0, e.reg.len())
	for _, h := range e.reg.inOrder() {
		out = append(out, h.info())
	}
	return out
}

// StrategyInfo returns one strategy's bookkeeping snapshot.
func (e *Engine) StrategyInfo(name string) (Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, err := e.reg.get(name)
	if err != nil {
		return Info{}, err
	}
	return h.info(), nil
}

func (e *Engine) running() []*handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*handle
	for _, h := range e.reg.inOrder() {
		if h.status == StatusRunning {
			out = append(out, h)
		}
	}
	return out
}
