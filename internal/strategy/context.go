package strategy

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clobster/clobcore/internal/domain"
)

// PricePoint is one observation in a token's price history.
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// ContextParams carries everything the session layer assembles for one
// evaluation cycle.
type ContextParams struct {
	Timestamp time.Time
	Markets   []domain.MarketSnapshot
	Positions []domain.PositionSnapshot
	// OpenOrders holds orders still resting on the book.
	OpenOrders []domain.OrderSnapshot
	// Books maps token ID to the latest depth snapshot.
	Books map[string]*domain.OrderBookDepth
	// PriceHistory maps token ID to observations, oldest first.
	PriceHistory map[string][]PricePoint

	AvailableBalance decimal.Decimal
	DailyPnL         decimal.Decimal
	PeakBalance      decimal.Decimal
}

// Context is the immutable snapshot strategies evaluate against. All
// strategies in a cycle see the same snapshot, so evaluation order cannot
// change what any strategy observes. It also serves as the portfolio view
// the risk guard validates signals against.
type Context struct {
	timestamp    time.Time
	markets      []domain.MarketSnapshot
	positions    []domain.PositionSnapshot
	openOrders   []domain.OrderSnapshot
	books        map[string]*domain.OrderBookDepth
	priceHistory map[string][]PricePoint

	balance     decimal.Decimal
	dailyPnL    decimal.Decimal
	peakBalance decimal.Decimal
}

// NewContext builds a cycle snapshot. The params' slices and maps are
// referenced, not copied; callers must not mutate them afterwards.
func NewContext(p ContextParams) *Context {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	if p.Books == nil {
		p.Books = map[string]*domain.OrderBookDepth{}
	}
	if p.PriceHistory == nil {
		p.PriceHistory = map[string][]PricePoint{}
	}
	return &Context{
		timestamp:    p.Timestamp,
		markets:      p.Markets,
		positions:    p.Positions,
		openOrders:   p.OpenOrders,
		books:        p.Books,
		priceHistory: p.PriceHistory,
		balance:      p.AvailableBalance,
		dailyPnL:     p.DailyPnL,
		peakBalance:  p.PeakBalance,
	}
}

// Timestamp returns the snapshot time.
func (c *Context) Timestamp() time.Time { return c.timestamp }

// Markets returns the markets in this snapshot. Read-only.
func (c *Context) Markets() []domain.MarketSnapshot { return c.markets }

// Market returns the snapshot for one market ID.
func (c *Context) Market(id string) (domain.MarketSnapshot, bool) {
	for _, m := range c.markets {
		if m.ID == id {
			return m, true
		}
	}
	return domain.MarketSnapshot{}, false
}

// Positions returns the current holdings. Read-only.
func (c *Context) Positions() []domain.PositionSnapshot { return c.positions }

// Position returns the holding for one token, if any.
func (c *Context) Position(tokenID string) (domain.PositionSnapshot, bool) {
	for _, p := range c.positions {
		if p.TokenID == tokenID {
			return p, true
		}
	}
	return domain.PositionSnapshot{}, false
}

// OpenOrders returns the resting orders. Read-only.
func (c *Context) OpenOrders() []domain.OrderSnapshot { return c.openOrders }

// Book returns the depth snapshot for a token.
func (c *Context) Book(tokenID string) (*domain.OrderBookDepth, bool) {
	b, ok := c.books[tokenID]
	return b, ok
}

// PriceHistory returns a token's observations, oldest first. Read-only.
func (c *Context) PriceHistory(tokenID string) []PricePoint {
	return c.priceHistory[tokenID]
}

// AvailableBalance returns the spendable balance at snapshot time.
func (c *Context) AvailableBalance() decimal.Decimal { return c.balance }

// DailyPnL returns today's realized profit and loss.
func (c *Context) DailyPnL() decimal.Decimal { return c.dailyPnL }

// PeakBalance returns the session's highest observed balance.
func (c *Context) PeakBalance() decimal.Decimal { return c.peakBalance }

// TotalExposure sums the current value of all holdings.
func (c *Context) TotalExposure() decimal.Decimal {
	total := decimal.Decimal{}
	for _, p := range c.positions {
		total = total.Add(p.CurrentValue)
	}
	return total
}

// MarketPosition sums the position size held across a market's tokens.
func (c *Context) MarketPosition(marketID string) decimal.Decimal {
	total := decimal.Decimal{}
	for _, p := range c.positions {
		if p.MarketID == marketID {
			total = total.Add(p.Size)
		}
	}
	return total
}

// OpenOrderCount returns the number of resting orders.
func (c *Context) OpenOrderCount() int { return len(c.openOrders) }

// SMA returns the simple moving average of the last period observations for
// a token. Undefined with fewer than period observations.
func (c *Context) SMA(tokenID string, period int) (decimal.Decimal, bool) {
	hist := c.priceHistory[tokenID]
	if period <= 0 || len(hist) < period {
		return decimal.Decimal{}, false
	}
	sum := decimal.Decimal{}
	for _, pt := range hist[len(hist)-period:] {
		sum = sum.Add(pt.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), true
}

// EMA returns the exponential moving average over a token's full history
// with smoothing 2/(period+1), seeded with the oldest observation.
// Undefined with fewer than period observations.
func (c *Context) EMA(tokenID string, period int) (decimal.Decimal, bool) {
	hist := c.priceHistory[tokenID]
	if period <= 0 || len(hist) < period {
		return decimal.Decimal{}, false
	}
	k := two.Div(decimal.NewFromInt(int64(period + 1)))
	ema := hist[0].Price
	for _, pt := range hist[1:] {
		ema = pt.Price.Sub(ema).Mul(k).Add(ema)
	}
	return ema, true
}

// PriceChange returns the fractional price change over the last periods
// observations: (latest - prior) / prior. Undefined without enough history
// or when the prior price is zero.
func (c *Context) PriceChange(tokenID string, periods int) (decimal.Decimal, bool) {
	hist := c.priceHistory[tokenID]
	if periods <= 0 || len(hist) <= periods {
		return decimal.Decimal{}, false
	}
	latest := hist[len(hist)-1].Price
	prior := hist[len(hist)-1-periods].Price
	if prior.IsZero() {
		return decimal.Decimal{}, false
	}
	return latest.Sub(prior).Div(prior), true
}

// filtered returns a view restricted to the given market lists. An empty
// include list admits every market; exclude always wins. Books and price
// history are narrowed to tokens of the surviving markets.
func (c *Context) filtered(include, exclude []string) *Context {
	if len(include) == 0 && len(exclude) == 0 {
		return c
	}

	admitted := func(marketID string) bool {
		if slices.Contains(exclude, marketID) {
			return false
		}
		return len(include) == 0 || slices.Contains(include, marketID)
	}

	out := &Context{
		timestamp:    c.timestamp,
		books:        map[string]*domain.OrderBookDepth{},
		priceHistory: map[string][]PricePoint{},
		balance:      c.balance,
		dailyPnL:     c.dailyPnL,
		peakBalance:  c.peakBalance,
	}
	tokens := map[string]struct{}{}
	for _, m := range c.markets {
		if !admitted(m.ID) {
			continue
		}
		out.markets = append(out.markets, m)
		for _, id := range m.TokenIDs() {
			tokens[id] = struct{}{}
		}
	}
	for _, p := range c.positions {
		if admitted(p.MarketID) {
			out.positions = append(out.positions, p)
		}
	}
	for _, o := range c.openOrders {
		if admitted(o.MarketID) {
			out.openOrders = append(out.openOrders, o)
		}
	}
	for id := range tokens {
		if b, ok := c.books[id]; ok {
			out.books[id] = b
		}
		if h, ok := c.priceHistory[id]; ok {
			out.priceHistory[id] = h
		}
	}
	return out
}

var two = decimal.NewFromInt(2)
