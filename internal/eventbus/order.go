package eventbus

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDirection is Buy or Sell.
type OrderDirection int

const (
	Buy OrderDirection = iota
	Sell
)

func (d OrderDirection) String() string {
	if d == Buy {
		return "Buy"
	}
	return "Sell"
}

// Order is an open set over a single capability: match against a bar's
// mid price. New order variants can be added without touching any
// matching caller in the exchange.
type Order interface {
	Symbol() string
	Match(mid decimal.Decimal) bool
	Direction() OrderDirection
	Amount() decimal.Decimal
}

// LimitPriceOrder fills at a bar's mid price when the limit is at least
// as favorable as that mid: a Buy fills when limit >= mid, a Sell fills
// when limit <= mid. An order that doesn't fill on the bar it is
// evaluated against is dropped; there is no carry-over (see
// internal/exchange).
type LimitPriceOrder struct {
	id         string
	symbol     string
	amount     decimal.Decimal
	limitPrice decimal.Decimal
	direction  OrderDirection
}

// NewLimitPriceOrder constructs the order without validating amount or
// limit; the Exchange rejects orders with a non-positive amount when they
// arrive. Every order is stamped with a human-opaque uuid, independent of
// the envelope id its OrderPlaceEvent gets, and exposed through ID(); the
// Exchange's log lines do not include it.
func NewLimitPriceOrder(symbol string, amount, limitPrice decimal.Decimal, direction OrderDirection) *LimitPriceOrder {
	return &LimitPriceOrder{
		id:         uuid.New().String(),
		symbol:     symbol,
		amount:     amount,
		limitPrice: limitPrice,
		direction:  direction,
	}
}

// ID is the order's human-opaque uuid, distinct from its envelope id.
func (o *LimitPriceOrder) ID() string                { return o.id }
func (o *LimitPriceOrder) Symbol() string            { return o.symbol }
func (o *LimitPriceOrder) Amount() decimal.Decimal   { return o.amount }
func (o *LimitPriceOrder) Direction() OrderDirection { return o.direction }
func (o *LimitPriceOrder) LimitPrice() decimal.Decimal { return o.limitPrice }

// Match reports whether this order fills against the given mid price.
func (o *LimitPriceOrder) Match(mid decimal.Decimal) bool {
	switch o.direction {
	case Buy:
		return o.limitPrice.GreaterThanOrEqual(mid)
	case Sell:
		return o.limitPrice.LessThanOrEqual(mid)
	default:
		return false
	}
}
