package strategy

import (
	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
)

type lastSignal int

const (
	signalNone lastSignal = iota
	signalBuy
	signalSell
)

// MACrossover is the reference moving-average-crossover strategy: it
// buys with all available cash on a short-over-long crossover and sells
// its full position on a short-under-long crossunder. The Sell signal's
// limit price is deliberately zero, which — under the exchange's
// limit<=mid rule for sells — never fills at a positive mid. This is the
// documented quirk from spec.md §9 and is preserved, not corrected.
type MACrossover struct {
	window      *MovingWindow
	short, long int
	priceFactor decimal.Decimal
	volumeFactor decimal.Decimal

	portfolioLocal eventbus.Portfolio
	last           lastSignal
}

// NewMACrossover constructs the reference strategy. priceFactor divides
// available cash's worth of quantity (a price_factor > 1 leaves margin
// for slippage against the bar's close); volumeFactor caps the quantity
// by a fraction of the bar's volume.
func NewMACrossover(short, long int, priceFactor, volumeFactor decimal.Decimal) *MACrossover {
	return &MACrossover{
		window:       NewMovingWindow(long),
		short:        short,
		long:         long,
		priceFactor:  priceFactor,
		volumeFactor: volumeFactor,
		last:         signalNone,
	}
}

// Process updates the moving window with the bar's close, computes the
// short/long averages, and emits a Buy or Sell LimitPriceOrder on a
// crossover/crossunder it has not already signaled.
func (s *MACrossover) Process(bar *eventbus.MarketDataEvent) []eventbus.Order {
	s.window.Update(bar.Close)
	maShort := s.window.Average(s.short)
	maLong := s.window.Average(s.long)

	switch {
	case maShort.GreaterThan(maLong) && s.last != signalBuy:
		return s.signalBuy(bar)
	case maShort.LessThan(maLong) && s.last != signalSell:
		return s.signalSell(bar)
	default:
		return nil
	}
}

func (s *MACrossover) signalBuy(bar *eventbus.MarketDataEvent) []eventbus.Order {
	s.last = signalBuy

	denom := bar.Close.Mul(s.priceFactor)
	if denom.IsZero() {
		return nil
	}
	quantity := s.portfolioLocal.AvailableCash.Div(denom).Floor()
	maxVolume := decimal.NewFromInt(bar.Volume).Mul(s.volumeFactor).Floor()

	buyVolume := quantity
	if quantity.GreaterThan(maxVolume) {
		buyVolume = maxVolume
	}

	if !quantity.GreaterThan(decimal.Zero) {
		return nil
	}

	s.portfolioLocal.AvailableCash = s.portfolioLocal.AvailableCash.Sub(quantity.Mul(bar.Close))

	limit := bar.Low.Mul(decimal.NewFromInt(2))
	order := eventbus.NewLimitPriceOrder(bar.Symbol, buyVolume, limit, eventbus.Buy)
	return []eventbus.Order{order}
}

func (s *MACrossover) signalSell(bar *eventbus.MarketDataEvent) []eventbus.Order {
	s.last = signalSell

	position := s.portfolioLocal.Position(bar.Symbol)
	if !position.GreaterThan(decimal.Zero) {
		return nil
	}

	order := eventbus.NewLimitPriceOrder(bar.Symbol, position, decimal.Zero, eventbus.Sell)
	return []eventbus.Order{order}
}

// Update replaces the strategy's local portfolio view with the derived
// snapshot the StrategyManager computed for it.
func (s *MACrossover) Update(p eventbus.Portfolio) {
	s.portfolioLocal = p
}
