package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobster/clobcore/internal/domain"
)

func history(prices ...string) []PricePoint {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]PricePoint, len(prices))
	for i, p := range prices {
		out[i] = PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: dec(p)}
	}
	return out
}

func testMarket(id string, tokens ...string) domain.MarketSnapshot {
	m := domain.MarketSnapshot{ID: id, Status: domain.MarketStatusActive}
	for _, tok := range tokens {
		m.Outcomes = append(m.Outcomes, domain.OutcomeSnapshot{TokenID: tok, Price: dec("0.5")})
	}
	return m
}

func TestContext_PortfolioView(t *testing.T) {
	ctx := NewContext(ContextParams{
		Markets: []domain.MarketSnapshot{testMarket("mkt-1", "tok-a"), testMarket("mkt-2", "tok-b")},
		Positions: []domain.PositionSnapshot{
			{MarketID: "mkt-1", TokenID: "tok-a", Size: dec("10"), CurrentValue: dec("5")},
			{MarketID: "mkt-1", TokenID: "tok-a2", Size: dec("20"), CurrentValue: dec("8")},
			{MarketID: "mkt-2", TokenID: "tok-b", Size: dec("5"), CurrentValue: dec("3")},
		},
		OpenOrders:       []domain.OrderSnapshot{{OrderID: "o1", MarketID: "mkt-1"}},
		AvailableBalance: dec("100"),
		DailyPnL:         dec("-5"),
		PeakBalance:      dec("120"),
	})

	assert.True(t, ctx.TotalExposure().Equal(dec("16")))
	assert.True(t, ctx.MarketPosition("mkt-1").Equal(dec("30")))
	assert.True(t, ctx.MarketPosition("mkt-3").IsZero())
	assert.Equal(t, 1, ctx.OpenOrderCount())
	assert.True(t, ctx.AvailableBalance().Equal(dec("100")))
	assert.True(t, ctx.PeakBalance().Equal(dec("120")))

	m, ok := ctx.Market("mkt-2")
	require.True(t, ok)
	assert.Equal(t, "mkt-2", m.ID)
	_, ok = ctx.Market("mkt-3")
	assert.False(t, ok)

	p, ok := ctx.Position("tok-b")
	require.True(t, ok)
	assert.True(t, p.Size.Equal(dec("5")))
}

func TestContext_SMA(t *testing.T) {
	ctx := NewContext(ContextParams{
		PriceHistory: map[string][]PricePoint{"tok-a": history("0.4", "0.5", "0.6")},
	})

	sma, ok := ctx.SMA("tok-a", 3)
	require.True(t, ok)
	assert.True(t, sma.Equal(dec("0.5")))

	// Only the most recent period counts.
	sma, ok = ctx.SMA("tok-a", 2)
	require.True(t, ok)
	assert.True(t, sma.Equal(dec("0.55")))

	_, ok = ctx.SMA("tok-a", 4)
	assert.False(t, ok)
	_, ok = ctx.SMA("tok-missing", 2)
	assert.False(t, ok)
}

func TestContext_EMA(t *testing.T) {
	ctx := NewContext(ContextParams{
		PriceHistory: map[string][]PricePoint{"tok-a": history("0.4", "0.5", "0.6")},
	})

	// k = 2/4 = 0.5: 0.4 -> 0.45 -> 0.525
	ema, ok := ctx.EMA("tok-a", 3)
	require.True(t, ok)
	assert.True(t, ema.Equal(dec("0.525")), "got %s", ema)

	_, ok = ctx.EMA("tok-a", 4)
	assert.False(t, ok)
}

func TestContext_PriceChange(t *testing.T) {
	ctx := NewContext(ContextParams{
		PriceHistory: map[string][]PricePoint{"tok-a": history("0.4", "0.44", "0.5")},
	})

	ch, ok := ctx.PriceChange("tok-a", 2)
	require.True(t, ok)
	assert.True(t, ch.Equal(dec("0.25")))

	_, ok = ctx.PriceChange("tok-a", 3)
	assert.False(t, ok)
}

func TestContext_Filtered(t *testing.T) {
	books := map[string]*domain.OrderBookDepth{
		"tok-a": domain.NewOrderBookDepth("mkt-1", "tok-a"),
		"tok-b": domain.NewOrderBookDepth("mkt-2", "tok-b"),
	}
	ctx := NewContext(ContextParams{
		Markets: []domain.MarketSnapshot{testMarket("mkt-1", "tok-a"), testMarket("mkt-2", "tok-b")},
		Positions: []domain.PositionSnapshot{
			{MarketID: "mkt-1", TokenID: "tok-a", Size: dec("10"), CurrentValue: dec("5")},
			{MarketID: "mkt-2", TokenID: "tok-b", Size: dec("5"), CurrentValue: dec("3")},
		},
		OpenOrders: []domain.OrderSnapshot{
			{OrderID: "o1", MarketID: "mkt-1"},
			{OrderID: "o2", MarketID: "mkt-2"},
		},
		Books: books,
		PriceHistory: map[string][]PricePoint{
			"tok-a": history("0.5"),
			"tok-b": history("0.6"),
		},
		AvailableBalance: dec("100"),
	})

	include := ctx.filtered([]string{"mkt-1"}, nil)
	require.Len(t, include.Markets(), 1)
	assert.Equal(t, "mkt-1", include.Markets()[0].ID)
	assert.Len(t, include.Positions(), 1)
	assert.Equal(t, 1, include.OpenOrderCount())
	_, ok := include.Book("tok-b")
	assert.False(t, ok)
	_, ok = include.Book("tok-a")
	assert.True(t, ok)
	assert.Empty(t, include.PriceHistory("tok-b"))
	assert.True(t, include.AvailableBalance().Equal(dec("100")))

	exclude := ctx.filtered(nil, []string{"mkt-1"})
	require.Len(t, exclude.Markets(), 1)
	assert.Equal(t, "mkt-2", exclude.Markets()[0].ID)

	// Exclude wins over include.
	both := ctx.filtered([]string{"mkt-1"}, []string{"mkt-1"})
	assert.Empty(t, both.Markets())

	// No filters returns the same snapshot.
	assert.Same(t, ctx, ctx.filtered(nil, nil))
}
