package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks the open-order lifecycle as reported by the state layer.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// OrderSnapshot is the read-only projection of an open order supplied per
// evaluation cycle.
type OrderSnapshot struct {
	OrderID       string
	MarketID      string
	TokenID       string
	Side          OrderSide
	Price         decimal.Decimal
	OriginalSize  decimal.Decimal
	RemainingSize decimal.Decimal
	FilledSize    decimal.Decimal
	Status        OrderStatus
	CreatedAt     time.Time
}

// IsOpen reports whether the order still rests on the book.
func (o OrderSnapshot) IsOpen() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartiallyFilled
}

// FillPercent returns filled/original * 100.
func (o OrderSnapshot) FillPercent() decimal.Decimal {
	if o.OriginalSize.IsZero() {
		return decimal.Decimal{}
	}
	return o.FilledSize.Div(o.OriginalSize).Mul(hundred)
}
