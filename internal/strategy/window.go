package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

// PriceWindow is a fixed-capacity ring buffer of prices, oldest evicted
// first. Not safe for concurrent use; each strategy owns its windows.
type PriceWindow struct {
	buf   []decimal.Decimal
	head  int // index of the next write
	count int
}

// NewPriceWindow creates a window holding up to capacity prices. Capacity
// must be at least 1.
func NewPriceWindow(capacity int) *PriceWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &PriceWindow{buf: make([]decimal.Decimal, capacity)}
}

// Push appends a price, evicting the oldest when full.
func (w *PriceWindow) Push(price decimal.Decimal) {
	w.buf[w.head] = price
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Len returns the number of stored prices.
func (w *PriceWindow) Len() int { return w.count }

// Cap returns the window capacity.
func (w *PriceWindow) Cap() int { return len(w.buf) }

// Full reports whether the window holds Cap() prices.
func (w *PriceWindow) Full() bool { return w.count == len(w.buf) }

// Latest returns the most recently pushed price.
func (w *PriceWindow) Latest() (decimal.Decimal, bool) {
	return w.Lookback(0)
}

// Lookback returns the price pushed n pushes ago; Lookback(0) is the latest.
func (w *PriceWindow) Lookback(n int) (decimal.Decimal, bool) {
	if n < 0 || n >= w.count {
		return decimal.Decimal{}, false
	}
	idx := (w.head - 1 - n + 2*len(w.buf)) % len(w.buf)
	return w.buf[idx], true
}

// Values returns the stored prices oldest first.
func (w *PriceWindow) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, w.count)
	for n := w.count - 1; n >= 0; n-- {
		v, _ := w.Lookback(n)
		out = append(out, v)
	}
	return out
}

// Mean returns the arithmetic mean of the stored prices.
func (w *PriceWindow) Mean() (decimal.Decimal, bool) {
	if w.count == 0 {
		return decimal.Decimal{}, false
	}
	sum := decimal.Decimal{}
	for n := 0; n < w.count; n++ {
		v, _ := w.Lookback(n)
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(w.count))), true
}

// StdDev returns the sample standard deviation of the stored prices. It
// requires at least two samples.
func (w *PriceWindow) StdDev() (decimal.Decimal, bool) {
	if w.count < 2 {
		return decimal.Decimal{}, false
	}
	mean, _ := w.Mean()
	sumSq := decimal.Decimal{}
	for n := 0; n < w.count; n++ {
		v, _ := w.Lookback(n)
		d := v.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(w.count - 1)))
	f, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(f)), true
}
