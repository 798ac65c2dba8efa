// Package strategy implements the Strategy Manager fan-out and the
// reference moving-average-crossover strategy.
package strategy

import (
	"fmt"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Strategy is the open capability a concrete strategy implements: react
// to a bar and produce zero or more orders, and accept a derived
// portfolio view on each PortfolioInfo broadcast. Strategies are
// single-threaded from the StrategyManager's point of view; a concrete
// strategy owns its own indicator state and needs no locking.
type Strategy interface {
	Process(bar *eventbus.MarketDataEvent) []eventbus.Order
	Update(p eventbus.Portfolio)
}

// weightedStrategy pairs a strategy with its configured weight.
type weightedStrategy struct {
	strategy Strategy
	weight   decimal.Decimal
}

// Manager multiplexes MarketData and PortfolioInfo to an ordered list of
// (strategy, weight) pairs and publishes any orders they produce at high
// priority, in registration order.
type Manager struct {
	logger *zap.Logger

	inbox     *eventbus.Endpoint
	publisher *eventbus.Publisher

	entries []weightedStrategy
}

// NewManager constructs a Manager over a single shared inbox registered
// by the caller against MarketData, PortfolioInfo, and ShutDown — a
// single FIFO queue, not three independent ones, so the Manager observes
// events in the exact order the Event Manager dispatched them (see
// eventbus.Endpoint). Call AddStrategy for each (strategy, weight) pair
// before Run.
func NewManager(logger *zap.Logger, inbox *eventbus.Endpoint, publisher *eventbus.Publisher) *Manager {
	return &Manager{logger: logger, inbox: inbox, publisher: publisher}
}

// AddStrategy registers a strategy with weight w >= 0.
func (m *Manager) AddStrategy(s Strategy, w decimal.Decimal) {
	m.entries = append(m.entries, weightedStrategy{strategy: s, weight: w})
}

// Run is the Manager's receive loop. It fans incoming MarketData and
// PortfolioInfo events out to every registered strategy and publishes
// the resulting orders, until a ShutDown event or a closed inbox ends
// the loop. A configuration mismatch between strategies and weights is
// caught earlier by ValidateCounts, at component start (spec.md §7); a
// Manager built with zero strategies registered is itself such a
// mismatch.
func (m *Manager) Run() {
	if len(m.entries) == 0 {
		panic("strategy manager: no strategies registered")
	}

	for {
		e, ok := m.inbox.Receive()
		if !ok {
			return
		}
		switch ev := e.(type) {
		case *eventbus.MarketDataEvent:
			m.onMarketData(ev)
		case *eventbus.PortfolioInfoEvent:
			m.onPortfolioInfo(ev)
		case *eventbus.ShutDownEvent:
			return
		default:
			m.logger.Debug("ignoring unsupported event", zap.String("variant", e.Discriminator().String()))
		}
	}
}

func (m *Manager) onMarketData(bar *eventbus.MarketDataEvent) {
	var toPublish []eventbus.Order
	for _, entry := range m.entries {
		orders := entry.strategy.Process(bar)
		toPublish = append(toPublish, orders...)
	}
	for _, o := range toPublish {
		m.logger.Debug("publishing order place",
			zap.Uint64("market_data_id", bar.EnvelopeID()),
			zap.String("symbol", o.Symbol()),
			zap.String("direction", o.Direction().String()),
		)
		m.publisher.Publish(eventbus.NewOrderPlaceEvent(o))
	}
}

func (m *Manager) onPortfolioInfo(pe *eventbus.PortfolioInfoEvent) {
	for _, entry := range m.entries {
		derived := pe.Portfolio.WithAvailableCashScale(entry.weight)
		entry.strategy.Update(derived)
	}
}

// ValidateCounts is a fatal-at-start check: the number of strategies must
// equal the number of weights when they are supplied from two separate
// configuration lists (e.g. parsed from CLI flags).
func ValidateCounts(strategies, weights int) error {
	if strategies != weights {
		return fmt.Errorf("strategy manager: %d strategies but %d weights", strategies, weights)
	}
	return nil
}
