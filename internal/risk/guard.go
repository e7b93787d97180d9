// Package risk validates trade signals against session-wide limits before
// they may reach the execution layer. The Guard is a pure function of the
// signal, the supplied portfolio view and its Config: identical inputs yield
// identical results.
package risk

import (
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/domain"
)

// ContextView is the read-only portfolio view the Guard validates against.
// It is defined here, at the consumer, so the strategy context can satisfy
// it without an import cycle.
type ContextView interface {
	AvailableBalance() decimal.Decimal
	PeakBalance() decimal.Decimal
	DailyPnL() decimal.Decimal
	TotalExposure() decimal.Decimal
	// MarketPosition returns the summed position size held in a market.
	MarketPosition(marketID string) decimal.Decimal
	OpenOrderCount() int
	// Book returns the current depth snapshot for a token, if any.
	Book(tokenID string) (*domain.OrderBookDepth, bool)
}

// Guard applies the configured risk limits to one signal at a time. Checks
// run in a fixed order and the first violation short-circuits; it is
// returned as data, never logged-and-dropped.
type Guard struct {
	cfg    Config
	logger *slog.Logger
}

// NewGuard creates a Guard. The logger may be nil.
func NewGuard(cfg Config, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "risk_guard")),
	}
}

// Config returns the limits this guard enforces.
func (g *Guard) Config() Config { return g.cfg }

// Validate checks one signal against the configured limits and the given
// portfolio view. It returns nil when the signal is accepted, or the first
// failed check's Violation.
//
// Check order: kill switch, order size, position size, total exposure, open
// order count, daily loss, drawdown, balance sufficiency, slippage, then the
// market allow lists and price bounds.
func (g *Guard) Validate(sig domain.Signal, view ContextView) Violation {
	v := g.validate(sig, view)
	if v != nil {
		g.logger.Debug("signal rejected",
			slog.String("signal_id", sig.ID),
			slog.String("market_id", sig.MarketID),
			slog.String("violation", v.Error()),
		)
	}
	return v
}

func (g *Guard) validate(sig domain.Signal, view ContextView) Violation {
	if !g.cfg.Enabled {
		return TradingDisabled{}
	}
	if v := g.checkOrderSize(sig); v != nil {
		return v
	}
	if v := g.checkPositionSize(sig, view); v != nil {
		return v
	}
	if v := g.checkTotalExposure(sig, view); v != nil {
		return v
	}
	if v := g.checkOpenOrders(view); v != nil {
		return v
	}
	if v := g.checkDailyLoss(view); v != nil {
		return v
	}
	if v := g.checkDrawdown(view); v != nil {
		return v
	}
	if v := g.checkBalance(sig, view); v != nil {
		return v
	}
	if v := g.checkSlippage(sig, view); v != nil {
		return v
	}
	if v := g.checkMarketAllowed(sig); v != nil {
		return v
	}
	return g.checkPriceBounds(sig)
}

func (g *Guard) checkOrderSize(sig domain.Signal) Violation {
	if !g.cfg.MinOrderSize.IsZero() && sig.Size.LessThan(g.cfg.MinOrderSize) {
		return OrderSizeBelowMin{Size: sig.Size, Min: g.cfg.MinOrderSize}
	}
	if !g.cfg.MaxOrderSize.IsZero() && sig.Size.GreaterThan(g.cfg.MaxOrderSize) {
		return OrderSizeExceeded{Size: sig.Size, Max: g.cfg.MaxOrderSize}
	}
	return nil
}

// Sells reduce a position, so the additive position caps only gate buys.
func (g *Guard) checkPositionSize(sig domain.Signal, view ContextView) Violation {
	if sig.Type != domain.SignalTypeBuy {
		return nil
	}
	current := view.MarketPosition(sig.MarketID)
	next := current.Add(sig.Size)
	if !g.cfg.MaxPositionSize.IsZero() && next.GreaterThan(g.cfg.MaxPositionSize) {
		return PositionSizeExceeded{Current: current, Requested: sig.Size, Max: g.cfg.MaxPositionSize}
	}
	if !g.cfg.MaxPositionPerMarket.IsZero() && next.GreaterThan(g.cfg.MaxPositionPerMarket) {
		return MarketPositionExceeded{
			MarketID:  sig.MarketID,
			Current:   current,
			Requested: sig.Size,
			Max:       g.cfg.MaxPositionPerMarket,
		}
	}
	return nil
}

func (g *Guard) checkTotalExposure(sig domain.Signal, view ContextView) Violation {
	if g.cfg.MaxTotalExposure.IsZero() || sig.Type != domain.SignalTypeBuy {
		return nil
	}
	current := view.TotalExposure()
	added := sig.Size.Mul(g.signalPrice(sig, view))
	if current.Add(added).GreaterThan(g.cfg.MaxTotalExposure) {
		return TotalExposureExceeded{Current: current, Requested: added, Max: g.cfg.MaxTotalExposure}
	}
	return nil
}

func (g *Guard) checkOpenOrders(view ContextView) Violation {
	if g.cfg.MaxOpenOrders <= 0 {
		return nil
	}
	open := view.OpenOrderCount()
	if open >= g.cfg.MaxOpenOrders {
		return OpenOrderLimitReached{Open: open, Max: g.cfg.MaxOpenOrders}
	}
	return nil
}

func (g *Guard) checkDailyLoss(view ContextView) Violation {
	if g.cfg.MaxDailyLoss.IsZero() {
		return nil
	}
	pnl := view.DailyPnL()
	if pnl.LessThan(g.cfg.MaxDailyLoss.Neg()) {
		return DailyLossExceeded{PnL: pnl, Max: g.cfg.MaxDailyLoss}
	}
	return nil
}

func (g *Guard) checkDrawdown(view ContextView) Violation {
	if g.cfg.MaxDrawdownPct.IsZero() {
		return nil
	}
	peak := view.PeakBalance()
	if !peak.IsPositive() {
		return nil
	}
	drawdown := peak.Sub(view.AvailableBalance()).Div(peak)
	if drawdown.GreaterThan(g.cfg.MaxDrawdownPct) {
		return DrawdownExceeded{Drawdown: drawdown, Max: g.cfg.MaxDrawdownPct}
	}
	return nil
}

func (g *Guard) checkBalance(sig domain.Signal, view ContextView) Violation {
	if sig.Type != domain.SignalTypeBuy {
		return nil
	}
	required := sig.Size.Mul(g.signalPrice(sig, view))
	available := view.AvailableBalance()
	if required.GreaterThan(available) {
		return InsufficientBalance{Required: required, Available: available}
	}
	return nil
}

// Slippage is only assessable for market orders against a book deep enough
// to fill the size; otherwise the check is skipped, not failed.
func (g *Guard) checkSlippage(sig domain.Signal, view ContextView) Violation {
	if g.cfg.MaxSlippagePct.IsZero() || sig.LimitPrice.Valid {
		return nil
	}
	book, ok := view.Book(sig.TokenID)
	if !ok {
		return nil
	}
	var (
		est decimal.Decimal
		okS bool
	)
	switch sig.Type {
	case domain.SignalTypeBuy:
		est, okS = book.SlippageBuy(sig.Size)
	case domain.SignalTypeSell:
		est, okS = book.SlippageSell(sig.Size)
	}
	if okS && est.GreaterThan(g.cfg.MaxSlippagePct) {
		return SlippageExceeded{Estimated: est, Max: g.cfg.MaxSlippagePct}
	}
	return nil
}

func (g *Guard) checkMarketAllowed(sig domain.Signal) Violation {
	if slices.Contains(g.cfg.BlacklistedMarkets, sig.MarketID) {
		return MarketBlacklisted{MarketID: sig.MarketID}
	}
	if len(g.cfg.WhitelistedMarkets) > 0 && !slices.Contains(g.cfg.WhitelistedMarkets, sig.MarketID) {
		return MarketNotWhitelisted{MarketID: sig.MarketID}
	}
	return nil
}

func (g *Guard) checkPriceBounds(sig domain.Signal) Violation {
	if !sig.LimitPrice.Valid {
		return nil
	}
	p := sig.LimitPrice.Decimal
	if !p.IsPositive() || p.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return PriceOutOfBounds{Price: p}
	}
	return nil
}

// signalPrice resolves the price used for notional math: the limit price if
// present, otherwise the touch on the relevant book side, otherwise 1 (the
// worst case for an outcome share).
func (g *Guard) signalPrice(sig domain.Signal, view ContextView) decimal.Decimal {
	if sig.LimitPrice.Valid {
		return sig.LimitPrice.Decimal
	}
	if book, ok := view.Book(sig.TokenID); ok {
		switch sig.Type {
		case domain.SignalTypeBuy:
			if p, ok := book.BestAskPrice(); ok {
				return p
			}
		case domain.SignalTypeSell:
			if p, ok := book.BestBidPrice(); ok {
				return p
			}
		}
	}
	return decimal.NewFromInt(1)
}
