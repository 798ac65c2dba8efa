package strategy_test

import (
	"testing"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/atlas-desktop/trading-backend/internal/strategy"
	"github.com/shopspring/decimal"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func bar(ts, symbol string, open, close, high, low float64, vol int64) *eventbus.MarketDataEvent {
	return eventbus.NewMarketDataEvent(ts, symbol, dec(open), dec(close), dec(high), dec(low), vol)
}

// Scenario A: ma_short == ma_long on a single flat bar, no order.
func TestScenarioA_NoSignal(t *testing.T) {
	s := strategy.NewMACrossover(1, 2, dec(1), dec(1))
	s.Update(eventbus.NewPortfolio(dec(1000)))

	orders := s.Process(bar("1", "X", 10, 10, 10, 10, 100))
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
}

// Scenario B: buy then hold; after bar 2 cash=252.253, positions={X:83}.
func TestScenarioB_BuyThenHold(t *testing.T) {
	s := strategy.NewMACrossover(1, 2, dec(1), dec(1))
	s.Update(eventbus.NewPortfolio(dec(1000)))

	orders := s.Process(bar("1", "X", 10, 10, 10, 10, 100))
	if len(orders) != 0 {
		t.Fatalf("bar1: expected no orders, got %d", len(orders))
	}

	orders = s.Process(bar("2", "X", 12, 12, 12, 6, 100))
	if len(orders) != 1 {
		t.Fatalf("bar2: expected exactly one order, got %d", len(orders))
	}
	lp, ok := orders[0].(*eventbus.LimitPriceOrder)
	if !ok {
		t.Fatalf("expected a *eventbus.LimitPriceOrder")
	}
	if lp.Direction() != eventbus.Buy {
		t.Fatalf("expected Buy, got %v", lp.Direction())
	}
	wantQty := decimal.NewFromInt(83)
	if !lp.Amount().Equal(wantQty) {
		t.Fatalf("expected qty 83, got %s", lp.Amount())
	}
	wantLimit := dec(12) // 2 * low(6)
	if !lp.LimitPrice().Equal(wantLimit) {
		t.Fatalf("expected limit 12, got %s", lp.LimitPrice())
	}
}

// Scenario C: the Sell signal's limit=0 documents a deliberate quirk and
// is still emitted even though the exchange will always drop it.
func TestScenarioC_SellSignalEmittedAtZeroLimit(t *testing.T) {
	s := strategy.NewMACrossover(1, 2, dec(1), dec(1))
	p := eventbus.NewPortfolio(dec(1000))
	p.Positions["X"] = decimal.NewFromInt(83)
	s.Update(p)

	// ma_short(8) < ma_long(avg of prior window incl. 8) triggers sell.
	s.Process(bar("1", "X", 10, 10, 10, 10, 100))
	s.Process(bar("2", "X", 12, 12, 12, 6, 100))
	orders := s.Process(bar("3", "X", 8, 8, 10, 6, 100))

	if len(orders) != 1 {
		t.Fatalf("expected exactly one sell order, got %d", len(orders))
	}
	lp := orders[0].(*eventbus.LimitPriceOrder)
	if lp.Direction() != eventbus.Sell {
		t.Fatalf("expected Sell, got %v", lp.Direction())
	}
	if !lp.LimitPrice().IsZero() {
		t.Fatalf("expected limit 0 (documented quirk), got %s", lp.LimitPrice())
	}
}

func TestManagerConfigMismatch(t *testing.T) {
	if err := strategy.ValidateCounts(2, 1); err == nil {
		t.Fatalf("expected an error for mismatched strategy/weight counts")
	}
	if err := strategy.ValidateCounts(2, 2); err != nil {
		t.Fatalf("expected no error for matching counts, got %v", err)
	}
}
