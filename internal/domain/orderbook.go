package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+size entry in an orderbook side.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// NewPriceLevel creates a price level.
func NewPriceLevel(price, size decimal.Decimal) PriceLevel {
	return PriceLevel{Price: price, Size: size}
}

// Value returns the notional at this level (price * size).
func (l PriceLevel) Value() decimal.Decimal {
	return l.Price.Mul(l.Size)
}

// CumulativeLevel is a price paired with the running size total up to and
// including that level.
type CumulativeLevel struct {
	Price          decimal.Decimal
	CumulativeSize decimal.Decimal
}

// OrderBookDepth is a full depth snapshot for one outcome token. Snapshots
// are replaced wholesale on every update; all derived metrics are pure
// functions of the snapshot.
//
// Bids are sorted by price descending, asks ascending, with no duplicate
// price entries per side. An empty side is valid and means no liquidity;
// metrics that need the missing side report ok=false instead of failing.
type OrderBookDepth struct {
	MarketID  string
	TokenID   string
	Hash      string // book hash from the feed, used for sync detection upstream
	Timestamp time.Time
	Bids      []PriceLevel
	Asks      []PriceLevel
}

// NewOrderBookDepth creates an empty book for the given market and token.
func NewOrderBookDepth(marketID, tokenID string) *OrderBookDepth {
	return &OrderBookDepth{
		MarketID:  marketID,
		TokenID:   tokenID,
		Timestamp: time.Now().UTC(),
	}
}

// BestBid returns the highest bid level.
func (b *OrderBookDepth) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level.
func (b *OrderBookDepth) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// BestBidPrice returns the highest bid price.
func (b *OrderBookDepth) BestBidPrice() (decimal.Decimal, bool) {
	l, ok := b.BestBid()
	return l.Price, ok
}

// BestAskPrice returns the lowest ask price.
func (b *OrderBookDepth) BestAskPrice() (decimal.Decimal, bool) {
	l, ok := b.BestAsk()
	return l.Price, ok
}

// MidPrice returns the average of best bid and best ask. It requires both
// sides to be populated.
func (b *OrderBookDepth) MidPrice() (decimal.Decimal, bool) {
	bid, okB := b.BestBidPrice()
	ask, okA := b.BestAskPrice()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Add(ask).Div(two), true
}

// Spread returns best ask minus best bid.
func (b *OrderBookDepth) Spread() (decimal.Decimal, bool) {
	bid, okB := b.BestBidPrice()
	ask, okA := b.BestAskPrice()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return ask.Sub(bid), true
}

// SpreadPercent returns the spread as a percentage of the mid price.
func (b *OrderBookDepth) SpreadPercent() (decimal.Decimal, bool) {
	spread, okS := b.Spread()
	mid, okM := b.MidPrice()
	if !okS || !okM || mid.IsZero() {
		return decimal.Decimal{}, false
	}
	return spread.Div(mid).Mul(hundred), true
}

// BidLiquidity sums price*size over the first depth bid levels. A side
// shallower than depth contributes what it has.
func (b *OrderBookDepth) BidLiquidity(depth int) decimal.Decimal {
	return sumValue(b.Bids, depth)
}

// AskLiquidity sums price*size over the first depth ask levels.
func (b *OrderBookDepth) AskLiquidity(depth int) decimal.Decimal {
	return sumValue(b.Asks, depth)
}

// TotalLiquidity is bid plus ask liquidity at the given depth.
func (b *OrderBookDepth) TotalLiquidity(depth int) decimal.Decimal {
	return b.BidLiquidity(depth).Add(b.AskLiquidity(depth))
}

// BidVolume sums raw size over the first depth bid levels.
func (b *OrderBookDepth) BidVolume(depth int) decimal.Decimal {
	return sumSize(b.Bids, depth)
}

// AskVolume sums raw size over the first depth ask levels.
func (b *OrderBookDepth) AskVolume(depth int) decimal.Decimal {
	return sumSize(b.Asks, depth)
}

// Imbalance returns (bidVol - askVol) / (bidVol + askVol) over the first
// depth levels. Range [-1, 1]; positive means buy pressure. Undefined when
// both volumes are zero.
func (b *OrderBookDepth) Imbalance(depth int) (decimal.Decimal, bool) {
	bidVol := b.BidVolume(depth)
	askVol := b.AskVolume(depth)
	total := bidVol.Add(askVol)
	if total.IsZero() {
		return decimal.Decimal{}, false
	}
	return bidVol.Sub(askVol).Div(total), true
}

// VWAPBuy returns the volume-weighted average price of buying size shares
// against the ask side. Undefined when the side holds less than size in
// total: the order is unfillable at this depth, not partially priced.
func (b *OrderBookDepth) VWAPBuy(size decimal.Decimal) (decimal.Decimal, bool) {
	return vwap(b.Asks, size)
}

// VWAPSell returns the volume-weighted average price of selling size shares
// into the bid side, with the same insufficiency rule as VWAPBuy.
func (b *OrderBookDepth) VWAPSell(size decimal.Decimal) (decimal.Decimal, bool) {
	return vwap(b.Bids, size)
}

// SlippageBuy returns (vwap - bestAsk) / bestAsk for a market buy of size,
// as a fraction (0.01 = 1%). Undefined whenever the VWAP is.
func (b *OrderBookDepth) SlippageBuy(size decimal.Decimal) (decimal.Decimal, bool) {
	v, okV := b.VWAPBuy(size)
	best, okB := b.BestAskPrice()
	if !okV || !okB || best.IsZero() {
		return decimal.Decimal{}, false
	}
	return v.Sub(best).Div(best), true
}

// SlippageSell returns (bestBid - vwap) / bestBid for a market sell of size,
// as a fraction.
func (b *OrderBookDepth) SlippageSell(size decimal.Decimal) (decimal.Decimal, bool) {
	v, okV := b.VWAPSell(size)
	best, okB := b.BestBidPrice()
	if !okV || !okB || best.IsZero() {
		return decimal.Decimal{}, false
	}
	return best.Sub(v).Div(best), true
}

// CumulativeBids returns each bid price paired with the running size total,
// best bid first.
func (b *OrderBookDepth) CumulativeBids() []CumulativeLevel {
	return cumulative(b.Bids)
}

// CumulativeAsks returns each ask price paired with the running size total,
// best ask first.
func (b *OrderBookDepth) CumulativeAsks() []CumulativeLevel {
	return cumulative(b.Asks)
}

// BidDepth returns the number of bid levels.
func (b *OrderBookDepth) BidDepth() int { return len(b.Bids) }

// AskDepth returns the number of ask levels.
func (b *OrderBookDepth) AskDepth() int { return len(b.Asks) }

// IsEmpty reports whether both sides are empty.
func (b *OrderBookDepth) IsEmpty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// Stats computes a one-shot summary of the book at the given depth.
func (b *OrderBookDepth) Stats(depth int) OrderBookStats {
	s := OrderBookStats{
		BidLiquidity: b.BidLiquidity(depth),
		AskLiquidity: b.AskLiquidity(depth),
		BidDepth:     b.BidDepth(),
		AskDepth:     b.AskDepth(),
	}
	if v, ok := b.BestBidPrice(); ok {
		s.BestBid, s.HasBestBid = v, true
	}
	if v, ok := b.BestAskPrice(); ok {
		s.BestAsk, s.HasBestAsk = v, true
	}
	if v, ok := b.MidPrice(); ok {
		s.MidPrice, s.HasMidPrice = v, true
	}
	if v, ok := b.Spread(); ok {
		s.Spread, s.HasSpread = v, true
	}
	if v, ok := b.SpreadPercent(); ok {
		s.SpreadPercent, s.HasSpreadPercent = v, true
	}
	if v, ok := b.Imbalance(depth); ok {
		s.Imbalance, s.HasImbalance = v, true
	}
	return s
}

// OrderBookStats is a summary of book metrics at a fixed depth, for
// reporting layers that want one call instead of ten.
type OrderBookStats struct {
	BestBid          decimal.Decimal
	HasBestBid       bool
	BestAsk          decimal.Decimal
	HasBestAsk       bool
	MidPrice         decimal.Decimal
	HasMidPrice      bool
	Spread           decimal.Decimal
	HasSpread        bool
	SpreadPercent    decimal.Decimal
	HasSpreadPercent bool
	Imbalance        decimal.Decimal
	HasImbalance     bool
	BidLiquidity     decimal.Decimal
	AskLiquidity     decimal.Decimal
	BidDepth         int
	AskDepth         int
}

// BookSet holds the latest depth snapshot per token ID. Updates replace the
// whole book; there is no incremental patching here. Safe for concurrent use.
type BookSet struct {
	mu          sync.RWMutex
	books       map[string]*OrderBookDepth
	lastUpdated time.Time
}

// NewBookSet returns an empty, ready-to-use BookSet.
func NewBookSet() *BookSet {
	return &BookSet{books: make(map[string]*OrderBookDepth)}
}

// Update stores book as the current snapshot for its token.
func (s *BookSet) Update(book *OrderBookDepth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.TokenID] = book
	s.lastUpdated = time.Now().UTC()
}

// Get returns the current snapshot for a token.
func (s *BookSet) Get(tokenID string) (*OrderBookDepth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[tokenID]
	return b, ok
}

// Remove drops the snapshot for a token.
func (s *BookSet) Remove(tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, tokenID)
}

// Clear drops all snapshots.
func (s *BookSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = make(map[string]*OrderBookDepth)
}

// TokenIDs returns the tokens that currently have a snapshot.
func (s *BookSet) TokenIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of the token -> book map for building a context.
func (s *BookSet) Snapshot() map[string]*OrderBookDepth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*OrderBookDepth, len(s.books))
	for id, b := range s.books {
		out[id] = b
	}
	return out
}

// LastUpdated returns the time of the most recent Update.
func (s *BookSet) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Stats computes summary stats for one token's book.
func (s *BookSet) Stats(tokenID string, depth int) (OrderBookStats, bool) {
	b, ok := s.Get(tokenID)
	if !ok {
		return OrderBookStats{}, false
	}
	return b.Stats(depth), true
}

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

func sumValue(levels []PriceLevel, depth int) decimal.Decimal {
	total := decimal.Decimal{}
	for i, l := range levels {
		if i >= depth {
			break
		}
		total = total.Add(l.Value())
	}
	return total
}

func sumSize(levels []PriceLevel, depth int) decimal.Decimal {
	total := decimal.Decimal{}
	for i, l := range levels {
		if i >= depth {
			break
		}
		total = total.Add(l.Size)
	}
	return total
}

func vwap(levels []PriceLevel, target decimal.Decimal) (decimal.Decimal, bool) {
	if len(levels) == 0 || !target.IsPositive() {
		return decimal.Decimal{}, false
	}

	remaining := target
	totalValue := decimal.Decimal{}
	for _, l := range levels {
		fill := decimal.Min(remaining, l.Size)
		totalValue = totalValue.Add(l.Price.Mul(fill))
		remaining = remaining.Sub(fill)
		if remaining.IsZero() {
			return totalValue.Div(target), true
		}
	}
	// Side holds less than target: unfillable at this depth.
	return decimal.Decimal{}, false
}

func cumulative(levels []PriceLevel) []CumulativeLevel {
	out := make([]CumulativeLevel, 0, len(levels))
	running := decimal.Decimal{}
	for _, l := range levels {
		running = running.Add(l.Size)
		out = append(out, CumulativeLevel{Price: l.Price, CumulativeSize: running})
	}
	return out
}
