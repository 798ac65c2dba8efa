// Package exchange implements the simulated exchange: a single-price
// matching engine and the portfolio accountant it drives.
package exchange

import (
	"sync/atomic"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeeFunction computes a non-negative fee from a non-negative trade
// notional.
type FeeFunction func(notional decimal.Decimal) decimal.Decimal

// Exchange matches outstanding limit orders against each incoming bar at
// that bar's mid price, applies fills to the portfolio, marks the
// portfolio to market, and publishes a PortfolioInfo snapshot — exactly
// once per bar.
type Exchange struct {
	logger *zap.Logger

	inbox     *eventbus.Endpoint
	publisher *eventbus.Publisher

	portfolio   eventbus.Portfolio
	pending     []eventbus.Order
	feeFunction FeeFunction
	lastClose   map[string]decimal.Decimal

	fillsApplied  atomic.Int64
	ordersDropped atomic.Int64
}

// Stats reports cumulative fill/drop counters for observability (e.g.
// the monitor's Prometheus counters); it is never consulted by matching
// logic itself.
func (x *Exchange) Stats() (fillsApplied, ordersDropped int64) {
	return x.fillsApplied.Load(), x.ordersDropped.Load()
}

// NewExchange constructs an Exchange seeded with startingCash. inbox must
// be registered by the caller against both MarketData and OrderPlace (and
// ShutDown) so fills and bars arrive to the Exchange in dispatch order.
func NewExchange(logger *zap.Logger, inbox *eventbus.Endpoint, publisher *eventbus.Publisher, startingCash decimal.Decimal, fee FeeFunction) *Exchange {
	return &Exchange{
		logger:      logger,
		inbox:       inbox,
		publisher:   publisher,
		portfolio:   eventbus.NewPortfolio(startingCash),
		feeFunction: fee,
		lastClose:   make(map[string]decimal.Decimal),
	}
}

// Run is the Exchange's receive loop.
func (x *Exchange) Run() {
	for {
		e, ok := x.inbox.Receive()
		if !ok {
			return
		}
		switch ev := e.(type) {
		case *eventbus.MarketDataEvent:
			x.onMarketData(ev)
		case *eventbus.OrderPlaceEvent:
			x.onOrderPlace(ev)
		case *eventbus.ShutDownEvent:
			return
		default:
			x.logger.Debug("exchange ignoring unsupported event", zap.String("variant", e.Discriminator().String()))
		}
	}
}

// onOrderPlace queues a valid order for matching against the next bar.
// Orders with a non-positive amount are rejected with a warning and
// never enter the pending list (spec.md §7).
func (x *Exchange) onOrderPlace(ev *eventbus.OrderPlaceEvent) {
	if !ev.Order.Amount().GreaterThan(decimal.Zero) {
		x.logger.Warn("rejecting order with non-positive amount",
			zap.String("symbol", ev.Order.Symbol()),
			zap.String("amount", ev.Order.Amount().String()),
		)
		return
	}
	x.pending = append(x.pending, ev.Order)
}

// onMarketData matches every pending order against the bar's mid price
// in FIFO order, applies fills, marks the portfolio to market, and
// publishes exactly one PortfolioInfo snapshot. Orders that do not fill
// on this bar are dropped — there is no carry-over (spec.md §4.3 step 2).
func (x *Exchange) onMarketData(bar *eventbus.MarketDataEvent) {
	mid := bar.Mid()

	toApply := x.pending
	x.pending = nil

	for _, order := range toApply {
		if order.Match(mid) {
			x.applyFill(order, mid)
			x.fillsApplied.Add(1)
		} else {
			x.ordersDropped.Add(1)
			x.logger.Debug("dropping unfilled order",
				zap.String("symbol", order.Symbol()),
				zap.String("direction", order.Direction().String()),
				zap.String("mid", mid.String()),
			)
		}
	}

	x.lastClose[bar.Symbol] = bar.Close
	x.markToMarket()
	x.portfolio.AvailableCash = x.portfolio.Cash

	x.publisher.Publish(eventbus.NewPortfolioInfoEvent(x.portfolio))
}

// applyFill implements spec.md §4.3a's fill arithmetic.
func (x *Exchange) applyFill(order eventbus.Order, price decimal.Decimal) {
	symbol := order.Symbol()
	qty := order.Amount()

	switch order.Direction() {
	case eventbus.Buy:
		tradeCost := price.Mul(qty)
		fee := x.feeFunction(tradeCost)
		x.portfolio.Cash = x.portfolio.Cash.Sub(tradeCost).Sub(fee)
		x.portfolio.Positions[symbol] = x.portfolio.Position(symbol).Add(qty)

	case eventbus.Sell:
		available := x.portfolio.Position(symbol)
		if !available.GreaterThan(decimal.Zero) {
			x.logger.Warn("rejecting sell: no position", zap.String("symbol", symbol))
			return
		}
		if available.LessThan(qty) {
			partialValue := price.Mul(available)
			fee := x.feeFunction(partialValue)
			x.portfolio.Cash = x.portfolio.Cash.Add(partialValue).Sub(fee)
			x.portfolio.Positions[symbol] = decimal.Zero
			x.logger.Warn("partial sell fill: insufficient position",
				zap.String("symbol", symbol),
				zap.String("requested", qty.String()),
				zap.String("filled", available.String()),
			)
			return
		}
		tradeValue := price.Mul(qty)
		fee := x.feeFunction(tradeValue)
		x.portfolio.Cash = x.portfolio.Cash.Add(tradeValue).Sub(fee)
		x.portfolio.Positions[symbol] = available.Sub(qty)
	}

	if x.portfolio.Cash.LessThan(decimal.Zero) {
		x.logger.Debug("negative cash after fill", zap.String("cash", x.portfolio.Cash.String()))
	}
}

// markToMarket recomputes asset = cash + Σ positions[t]*last_close[t]
// over every symbol the Exchange has observed a close for, resolving
// spec.md §9's multi-symbol mark-to-market open question in favor of the
// general formula rather than the single-symbol reference behavior.
func (x *Exchange) markToMarket() {
	asset := x.portfolio.Cash
	for symbol, qty := range x.portfolio.Positions {
		if qty.IsZero() {
			continue
		}
		close, ok := x.lastClose[symbol]
		if !ok {
			continue
		}
		asset = asset.Add(qty.Mul(close))
	}
	x.portfolio.Asset = asset
}
