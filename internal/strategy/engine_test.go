package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobster/clobcore/internal/domain"
	"github.com/clobster/clobcore/internal/risk"
)

type stubStrategy struct {
	NopCallbacks
	name      string
	initErr   error
	evalFn    func(*Context) ([]domain.Signal, error)
	executed  []domain.Signal
	fills     []string
	cancels   []string
	markets   []domain.MarketSnapshot
	shutdowns int
}

func (s *stubStrategy) Name() string       { return s.name }
func (s *stubStrategy) Metadata() Metadata { return Metadata{Name: s.name, Version: "0.0.0"} }

func (s *stubStrategy) Initialize(context.Context, Config) error { return s.initErr }

func (s *stubStrategy) Evaluate(_ context.Context, view *Context) ([]domain.Signal, error) {
	if s.evalFn == nil {
		return nil, nil
	}
	return s.evalFn(view)
}

func (s *stubStrategy) OnMarketUpdate(m domain.MarketSnapshot) {
	s.markets = append(s.markets, m)
}

func (s *stubStrategy) OnSignalExecuted(sig domain.Signal, _ bool) {
	s.executed = append(s.executed, sig)
}

func (s *stubStrategy) OnOrderFilled(orderID string, _, _ decimal.Decimal) {
	s.fills = append(s.fills, orderID)
}

func (s *stubStrategy) OnOrderCancelled(orderID string) {
	s.cancels = append(s.cancels, orderID)
}

func (s *stubStrategy) Shutdown(context.Context) error {
	s.shutdowns++
	return nil
}

func emitOne(marketID, tokenID string) func(*Context) ([]domain.Signal, error) {
	return func(*Context) ([]domain.Signal, error) {
		sig := domain.NewBuySignal(marketID, tokenID, dec("10")).WithLimitPrice(dec("0.5"))
		return []domain.Signal{sig}, nil
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(risk.NewGuard(risk.DefaultConfig(), nil), nil, opts...)
}

func evalView() *Context {
	return NewContext(ContextParams{
		AvailableBalance: dec("500"),
		PeakBalance:      dec("500"),
	})
}

func registerAndStart(t *testing.T, e *Engine, s Strategy) {
	t.Helper()
	require.NoError(t, e.Register(context.Background(), s, Config{Enabled: true}))
	require.NoError(t, e.Start(s.Name()))
}

func TestEngine_RegisterDuplicate(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Register(context.Background(), &stubStrategy{name: "a"}, Config{}))

	err := e.Register(context.Background(), &stubStrategy{name: "a"}, Config{})
	assert.ErrorIs(t, err, ErrStrategyExists)
}

func TestEngine_RegisterInitFailure(t *testing.T) {
	e := newTestEngine(t)
	boom := errors.New("bad option")

	err := e.Register(context.Background(), &stubStrategy{name: "a", initErr: boom}, Config{})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, e.Strategies(), "failed registration leaves no handle")
}

func TestEngine_Lifecycle(t *testing.T) {
	e := newTestEngine(t)
	s := &stubStrategy{name: "a"}
	require.NoError(t, e.Register(context.Background(), s, Config{Enabled: true}))

	info, err := e.StrategyInfo("a")
	require.NoError(t, err)
	assert.Equal(t, StatusInitialized, info.Status)

	require.NoError(t, e.Start("a"))
	require.NoError(t, e.Start("a"), "start is idempotent while running")
	require.NoError(t, e.Stop("a"))
	require.NoError(t, e.Stop("a"), "stop is idempotent")
	require.NoError(t, e.Start("a"), "stopped strategies can resume")

	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, 1, s.shutdowns)

	assert.ErrorIs(t, e.Start("a"), ErrStrategyTerminated)
	assert.ErrorIs(t, e.Stop("a"), ErrStrategyTerminated)

	// Shutdown is one-shot per strategy.
	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, 1, s.shutdowns)
}

func TestEngine_UnknownStrategy(t *testing.T) {
	e := newTestEngine(t)
	assert.ErrorIs(t, e.Start("ghost"), ErrStrategyNotFound)
	assert.ErrorIs(t, e.Stop("ghost"), ErrStrategyNotFound)
	_, err := e.StrategyInfo("ghost")
	assert.ErrorIs(t, err, ErrStrategyNotFound)
}

func TestEngine_EvaluateOrderAndAttribution(t *testing.T) {
	e := newTestEngine(t)
	registerAndStart(t, e, &stubStrategy{name: "first", evalFn: emitOne("mkt-1", "tok-a")})
	registerAndStart(t, e, &stubStrategy{name: "second", evalFn: emitOne("mkt-2", "tok-b")})

	res := e.Evaluate(context.Background(), evalView())
	assert.Equal(t, 2, res.Evaluated)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Rejected)
	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "first", res.Accepted[0].Strategy)
	assert.Equal(t, "second", res.Accepted[1].Strategy)

	recent := e.RecentSignals()
	require.Len(t, recent, 2)
	assert.Equal(t, "first", recent[0].Strategy)
}

func TestEngine_StoppedStrategySkipped(t *testing.T) {
	e := newTestEngine(t)
	registerAndStart(t, e, &stubStrategy{name: "a", evalFn: emitOne("mkt-1", "tok-a")})
	require.NoError(t, e.Stop("a"))

	res := e.Evaluate(context.Background(), evalView())
	assert.Zero(t, res.Evaluated)
	assert.Empty(t, res.Accepted)
}

func TestEngine_RiskRejection(t *testing.T) {
	e := newTestEngine(t)
	oversized := func(*Context) ([]domain.Signal, error) {
		sig := domain.NewBuySignal("mkt-1", "tok-a", dec("500")).WithLimitPrice(dec("0.5"))
		return []domain.Signal{sig}, nil
	}
	registerAndStart(t, e, &stubStrategy{name: "greedy", evalFn: oversized})

	res := e.Evaluate(context.Background(), evalView())
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.IsType(t, risk.OrderSizeExceeded{}, res.Rejected[0].Violation)
	assert.Equal(t, "greedy", res.Rejected[0].Signal.Strategy)
	assert.Empty(t, e.RecentSignals(), "rejected signals stay out of history")
}

func TestEngine_FailureIsolationAndQuarantine(t *testing.T) {
	e := newTestEngine(t, WithMaxStrategyErrors(2))
	faulty := &stubStrategy{name: "faulty", evalFn: func(*Context) ([]domain.Signal, error) {
		return nil, errors.New("feed gap")
	}}
	registerAndStart(t, e, faulty)
	registerAndStart(t, e, &stubStrategy{name: "healthy", evalFn: emitOne("mkt-1", "tok-a")})

	res := e.Evaluate(context.Background(), evalView())
	require.Len(t, res.Errors, 1)
	var evalErr EvaluationError
	require.ErrorAs(t, res.Errors[0], &evalErr)
	assert.Equal(t, "faulty", evalErr.Strategy)
	assert.Len(t, res.Accepted, 1, "healthy strategy unaffected")

	// Second consecutive failure trips the quarantine.
	e.Evaluate(context.Background(), evalView())
	info, err := e.StrategyInfo("faulty")
	require.NoError(t, err)
	assert.Equal(t, StatusError, info.Status)
	assert.Equal(t, 2, info.ConsecutiveErrors)

	// Quarantined strategies no longer evaluate; Start clears the slate.
	res = e.Evaluate(context.Background(), evalView())
	assert.Equal(t, 1, res.Evaluated)
	require.NoError(t, e.Start("faulty"))
	info, _ = e.StrategyInfo("faulty")
	assert.Equal(t, StatusRunning, info.Status)
	assert.Zero(t, info.ConsecutiveErrors)
}

func TestEngine_PanicIsContained(t *testing.T) {
	e := newTestEngine(t)
	registerAndStart(t, e, &stubStrategy{name: "panicky", evalFn: func(*Context) ([]domain.Signal, error) {
		panic("nil map write")
	}})
	registerAndStart(t, e, &stubStrategy{name: "healthy", evalFn: emitOne("mkt-1", "tok-a")})

	res := e.Evaluate(context.Background(), evalView())
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "panic")
	assert.Len(t, res.Accepted, 1)
}

func TestEngine_ParallelEvaluationKeepsOrder(t *testing.T) {
	e := newTestEngine(t, WithParallelEvaluation())
	registerAndStart(t, e, &stubStrategy{name: "first", evalFn: emitOne("mkt-1", "tok-a")})
	registerAndStart(t, e, &stubStrategy{name: "second", evalFn: emitOne("mkt-2", "tok-b")})
	registerAndStart(t, e, &stubStrategy{name: "third", evalFn: emitOne("mkt-3", "tok-c")})

	res := e.Evaluate(context.Background(), evalView())
	require.Len(t, res.Accepted, 3)
	assert.Equal(t, "first", res.Accepted[0].Strategy)
	assert.Equal(t, "second", res.Accepted[1].Strategy)
	assert.Equal(t, "third", res.Accepted[2].Strategy)
}

func TestEngine_MinEvalInterval(t *testing.T) {
	e := newTestEngine(t)
	s := &stubStrategy{name: "slow", evalFn: emitOne("mkt-1", "tok-a")}
	require.NoError(t, e.Register(context.Background(), s, Config{Enabled: true, MinEvalInterval: time.Hour}))
	require.NoError(t, e.Start("slow"))

	res := e.Evaluate(context.Background(), evalView())
	assert.Equal(t, 1, res.Evaluated)

	res = e.Evaluate(context.Background(), evalView())
	assert.Zero(t, res.Evaluated, "throttled until the interval elapses")
}

func TestEngine_MarketFiltering(t *testing.T) {
	e := newTestEngine(t)
	var seen []string
	spy := &stubStrategy{name: "spy", evalFn: func(view *Context) ([]domain.Signal, error) {
		seen = seen[:0]
		for _, m := range view.Markets() {
			seen = append(seen, m.ID)
		}
		return nil, nil
	}}
	require.NoError(t, e.Register(context.Background(), spy, Config{
		Enabled:        true,
		ExcludeMarkets: []string{"mkt-2"},
	}))
	require.NoError(t, e.Start("spy"))

	view := NewContext(ContextParams{
		Markets:          []domain.MarketSnapshot{testMarket("mkt-1", "tok-a"), testMarket("mkt-2", "tok-b")},
		AvailableBalance: dec("500"),
		PeakBalance:      dec("500"),
	})
	e.Evaluate(context.Background(), view)
	assert.Equal(t, []string{"mkt-1"}, seen)
}

func TestEngine_RecentSignalLimit(t *testing.T) {
	e := newTestEngine(t, WithRecentSignalLimit(2))
	registerAndStart(t, e, &stubStrategy{name: "a", evalFn: emitOne("mkt-1", "tok-a")})

	for i := 0; i < 3; i++ {
		e.Evaluate(context.Background(), evalView())
	}
	assert.Len(t, e.RecentSignals(), 2)
}

func TestEngine_CallbackRouting(t *testing.T) {
	e := newTestEngine(t)
	a := &stubStrategy{name: "a"}
	b := &stubStrategy{name: "b"}
	registerAndStart(t, e, a)
	registerAndStart(t, e, b)

	sig := domain.NewBuySignal("mkt-1", "tok-a", dec("10")).WithStrategy("a")
	e.OnSignalExecuted(sig, true)
	require.Len(t, a.executed, 1)
	assert.Empty(t, b.executed, "execution outcome goes only to the emitter")

	info, err := e.StrategyInfo("a")
	require.NoError(t, err)
	assert.Equal(t, 1, info.SignalsExecuted)

	// Failed executions are routed but not counted.
	e.OnSignalExecuted(sig, false)
	info, _ = e.StrategyInfo("a")
	assert.Equal(t, 1, info.SignalsExecuted)
	assert.Len(t, a.executed, 2)
}

func TestEngine_OrderCallbackRouting(t *testing.T) {
	e := newTestEngine(t)
	a := &stubStrategy{name: "a"}
	b := &stubStrategy{name: "b"}
	registerAndStart(t, e, a)
	registerAndStart(t, e, b)

	e.OnOrderFilled("a", "order-1", dec("0.5"), dec("10"))
	require.Equal(t, []string{"order-1"}, a.fills)
	assert.Empty(t, b.fills, "fills go only to the owning strategy")

	e.OnOrderCancelled("b", "order-2")
	require.Equal(t, []string{"order-2"}, b.cancels)
	assert.Empty(t, a.cancels, "cancellations go only to the owning strategy")

	// Events for unknown strategies are dropped, not misdelivered.
	e.OnOrderFilled("ghost", "order-3", dec("0.5"), dec("10"))
	assert.Len(t, a.fills, 1)
	assert.Len(t, b.fills, 0)
}

func TestEngine_DropsCallbacksAfterShutdown(t *testing.T) {
	e := newTestEngine(t)
	s := &stubStrategy{name: "a"}
	registerAndStart(t, e, s)
	require.NoError(t, e.Shutdown(context.Background()))

	e.OnOrderFilled("a", "order-1", dec("0.5"), dec("10"))
	e.OnOrderCancelled("a", "order-1")
	e.OnSignalExecuted(domain.NewBuySignal("mkt-1", "tok-a", dec("10")).WithStrategy("a"), true)

	assert.Empty(t, s.fills)
	assert.Empty(t, s.cancels)
	assert.Empty(t, s.executed)
}

func TestEngine_MarketUpdateBroadcast(t *testing.T) {
	e := newTestEngine(t)
	running := &stubStrategy{name: "running"}
	stopped := &stubStrategy{name: "stopped"}
	registerAndStart(t, e, running)
	require.NoError(t, e.Register(context.Background(), stopped, Config{Enabled: true}))

	e.NotifyMarketUpdate(testMarket("mkt-1", "tok-a"))
	assert.Len(t, running.markets, 1)
	assert.Empty(t, stopped.markets, "only running strategies hear updates")
}

func TestEngine_StartAllSkipsDisabled(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Register(context.Background(), &stubStrategy{name: "on"}, Config{Enabled: true}))
	require.NoError(t, e.Register(context.Background(), &stubStrategy{name: "off"}, Config{Enabled: false}))

	e.StartAll()
	on, _ := e.StrategyInfo("on")
	off, _ := e.StrategyInfo("off")
	assert.Equal(t, StatusRunning, on.Status)
	assert.Equal(t, StatusInitialized, off.Status)

	e.StopAll()
	on, _ = e.StrategyInfo("on")
	assert.Equal(t, StatusStopped, on.Status)
}
