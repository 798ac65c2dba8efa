// Package eventbus implements the typed publish/subscribe protocol that
// ties the backtesting pipeline together: a tagged-variant event model,
// two priority ingress classes, and the Event Manager dispatch loop.
package eventbus

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// Discriminator identifies an event's variant without relying on
// run-time type metadata; the subscriber registry is keyed by it.
type Discriminator int

const (
	DiscriminatorMarketData Discriminator = iota
	DiscriminatorOrderPlace
	DiscriminatorPortfolioInfo
	DiscriminatorShutDown
)

func (d Discriminator) String() string {
	switch d {
	case DiscriminatorMarketData:
		return "MarketData"
	case DiscriminatorOrderPlace:
		return "OrderPlace"
	case DiscriminatorPortfolioInfo:
		return "PortfolioInfo"
	case DiscriminatorShutDown:
		return "ShutDown"
	default:
		return "Unknown"
	}
}

// Event is the tagged variant carried through the pipeline. Every
// concrete payload is immutable after construction and stamps a
// monotonically increasing envelope id from a process-wide, per-variant
// counter at construction time.
type Event interface {
	Discriminator() Discriminator
	EnvelopeID() uint64
}

var (
	marketDataCounter    atomic.Uint64
	orderPlaceCounter    atomic.Uint64
	portfolioInfoCounter atomic.Uint64
	shutDownCounter      atomic.Uint64
)

// MarketDataEvent carries a single historical bar.
type MarketDataEvent struct {
	id        uint64
	Timestamp string
	Symbol    string
	Open      decimal.Decimal
	Close     decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    int64
}

// NewMarketDataEvent stamps a fresh envelope id and returns the event.
func NewMarketDataEvent(timestamp, symbol string, open, close, high, low decimal.Decimal, volume int64) *MarketDataEvent {
	return &MarketDataEvent{
		id:        marketDataCounter.Add(1),
		Timestamp: timestamp,
		Symbol:    symbol,
		Open:      open,
		Close:     close,
		High:      high,
		Low:       low,
		Volume:    volume,
	}
}

func (e *MarketDataEvent) Discriminator() Discriminator { return DiscriminatorMarketData }
func (e *MarketDataEvent) EnvelopeID() uint64            { return e.id }

// Mid returns (high+low)/2, the unique fill price used by the exchange.
func (e *MarketDataEvent) Mid() decimal.Decimal {
	return e.High.Add(e.Low).Div(decimal.NewFromInt(2))
}

// OrderPlaceEvent carries an Order destined for the exchange's pending queue.
type OrderPlaceEvent struct {
	id    uint64
	Order Order
}

func NewOrderPlaceEvent(order Order) *OrderPlaceEvent {
	return &OrderPlaceEvent{id: orderPlaceCounter.Add(1), Order: order}
}

func (e *OrderPlaceEvent) Discriminator() Discriminator { return DiscriminatorOrderPlace }
func (e *OrderPlaceEvent) EnvelopeID() uint64            { return e.id }

// PortfolioInfoEvent carries a deep-copied Portfolio snapshot.
type PortfolioInfoEvent struct {
	id        uint64
	Portfolio Portfolio
}

func NewPortfolioInfoEvent(p Portfolio) *PortfolioInfoEvent {
	return &PortfolioInfoEvent{id: portfolioInfoCounter.Add(1), Portfolio: p.Clone()}
}

func (e *PortfolioInfoEvent) Discriminator() Discriminator { return DiscriminatorPortfolioInfo }
func (e *PortfolioInfoEvent) EnvelopeID() uint64            { return e.id }

// ShutDownEvent carries no payload; its arrival tells every subscriber to
// return from its receive loop.
type ShutDownEvent struct {
	id uint64
}

func NewShutDownEvent() *ShutDownEvent {
	return &ShutDownEvent{id: shutDownCounter.Add(1)}
}

func (e *ShutDownEvent) Discriminator() Discriminator { return DiscriminatorShutDown }
func (e *ShutDownEvent) EnvelopeID() uint64            { return e.id }
