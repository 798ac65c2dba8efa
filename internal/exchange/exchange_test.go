package exchange

import (
	"testing"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func feeRate(rate float64) FeeFunction {
	r := dec(rate)
	return func(notional decimal.Decimal) decimal.Decimal { return notional.Mul(r) }
}

func newTestExchange(startingCash float64, fee FeeFunction) (*Exchange, *eventbus.EventManager, *eventbus.Endpoint) {
	m := eventbus.NewEventManager(zap.NewNop(), 50*time.Millisecond)

	inbox := m.NewEndpoint()
	m.Register(eventbus.DiscriminatorMarketData, inbox)
	m.Register(eventbus.DiscriminatorOrderPlace, inbox)
	m.Register(eventbus.DiscriminatorShutDown, inbox)

	portfolioOut := m.Subscribe(eventbus.DiscriminatorPortfolioInfo)
	highPub := m.GrantPublisher(eventbus.High)

	x := NewExchange(zap.NewNop(), inbox, highPub, dec(startingCash), fee)
	return x, m, portfolioOut
}

// Scenario B: buy 83@9 (mid), fee 0.001 -> cash = 1000 - 747 - 0.747 = 252.253.
func TestScenarioB_BuyFillArithmetic(t *testing.T) {
	x, _, _ := newTestExchange(1000, feeRate(0.001))

	order := eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(83), dec(12), eventbus.Buy)
	x.applyFill(order, dec(9))

	want := dec(252.253)
	if !x.portfolio.Cash.Equal(want) {
		t.Fatalf("expected cash %s, got %s", want, x.portfolio.Cash)
	}
	if !x.portfolio.Position("X").Equal(decimal.NewFromInt(83)) {
		t.Fatalf("expected position 83, got %s", x.portfolio.Position("X"))
	}
}

// Scenario F: fee(x)=0.002x. Buy 10@100 -> cash=-2. Sell 10@110 -> cash=1095.8.
func TestScenarioF_FeeArithmetic(t *testing.T) {
	x, _, _ := newTestExchange(1000, feeRate(0.002))

	buy := eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(10), dec(100), eventbus.Buy)
	x.applyFill(buy, dec(100))

	if !x.portfolio.Cash.Equal(dec(-2)) {
		t.Fatalf("after buy: expected cash -2, got %s", x.portfolio.Cash)
	}

	sell := eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(10), dec(0), eventbus.Sell)
	x.applyFill(sell, dec(110))

	if !x.portfolio.Cash.Equal(dec(1095.8)) {
		t.Fatalf("after sell: expected cash 1095.8, got %s", x.portfolio.Cash)
	}
	if !x.portfolio.Position("X").IsZero() {
		t.Fatalf("expected zero position after full sell, got %s", x.portfolio.Position("X"))
	}
}

func TestSellExceedingPositionPartialFills(t *testing.T) {
	x, _, _ := newTestExchange(0, feeRate(0))
	buy := eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(5), dec(10), eventbus.Buy)
	x.applyFill(buy, dec(10))

	sell := eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(20), dec(0), eventbus.Sell)
	x.applyFill(sell, dec(10))

	if !x.portfolio.Position("X").IsZero() {
		t.Fatalf("expected position fully liquidated, got %s", x.portfolio.Position("X"))
	}
}

func TestSellWithNoPositionIsRejected(t *testing.T) {
	x, _, _ := newTestExchange(1000, feeRate(0))
	sell := eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(5), dec(10), eventbus.Sell)
	x.applyFill(sell, dec(10))

	if !x.portfolio.Cash.Equal(dec(1000)) {
		t.Fatalf("expected cash unchanged, got %s", x.portfolio.Cash)
	}
}

// Unfilled orders are dropped, never retained across bars.
func TestUnfilledOrdersAreDropped(t *testing.T) {
	x, m, portfolioOut := newTestExchange(1000, feeRate(0))
	go x.Run()
	go m.Run()

	low := m.GrantPublisher(eventbus.Low)
	high := m.GrantPublisher(eventbus.High)

	// A buy with a limit below mid never fills. The Event Manager dispatches
	// the first low-priority bar before it drains the high-priority queue,
	// so this order reaches the exchange after bar 1 and is matched (and
	// dropped) against bar 2.
	high.Publish(eventbus.NewOrderPlaceEvent(eventbus.NewLimitPriceOrder("X", decimal.NewFromInt(1), dec(1), eventbus.Buy)))
	low.Publish(eventbus.NewMarketDataEvent("1", "X", dec(10), dec(10), dec(10), dec(10), 100))

	e, ok := portfolioOut.Receive()
	if !ok {
		t.Fatalf("expected a PortfolioInfo event")
	}
	pe := e.(*eventbus.PortfolioInfoEvent)
	if !pe.Portfolio.Cash.Equal(dec(1000)) {
		t.Fatalf("expected unfilled order to leave cash unchanged, got %s", pe.Portfolio.Cash)
	}
	if !pe.Portfolio.Position("X").IsZero() {
		t.Fatalf("expected no position from an unfilled order, got %s", pe.Portfolio.Position("X"))
	}

	// The second bar is the one the pending order is matched against; it
	// must yield one PortfolioInfo with no fill from that order.
	low.Publish(eventbus.NewMarketDataEvent("2", "X", dec(10), dec(10), dec(10), dec(10), 100))
	e2, ok := portfolioOut.Receive()
	if !ok {
		t.Fatalf("expected a second PortfolioInfo event")
	}
	pe2 := e2.(*eventbus.PortfolioInfoEvent)
	if !pe2.Portfolio.Position("X").IsZero() {
		t.Fatalf("dropped order must not be retained across bars, got position %s", pe2.Portfolio.Position("X"))
	}
}
