package eventbus

import "github.com/shopspring/decimal"

// Portfolio is the Exchange's accounting state. Snapshots published as
// PortfolioInfo events are deep copies; the Exchange retains ownership
// of the live instance.
type Portfolio struct {
	Cash          decimal.Decimal
	AvailableCash decimal.Decimal
	Asset         decimal.Decimal
	Positions     map[string]decimal.Decimal
}

// NewPortfolio returns an empty portfolio seeded with starting cash.
func NewPortfolio(startingCash decimal.Decimal) Portfolio {
	return Portfolio{
		Cash:          startingCash,
		AvailableCash: startingCash,
		Asset:         startingCash,
		Positions:     make(map[string]decimal.Decimal),
	}
}

// Clone deep-copies the portfolio, pruning zero-quantity positions.
func (p Portfolio) Clone() Portfolio {
	positions := make(map[string]decimal.Decimal, len(p.Positions))
	for symbol, qty := range p.Positions {
		if qty.IsZero() {
			continue
		}
		positions[symbol] = qty
	}
	return Portfolio{
		Cash:          p.Cash,
		AvailableCash: p.AvailableCash,
		Asset:         p.Asset,
		Positions:     positions,
	}
}

// Position returns the signed quantity held for symbol, or zero.
func (p Portfolio) Position(symbol string) decimal.Decimal {
	if qty, ok := p.Positions[symbol]; ok {
		return qty
	}
	return decimal.Zero
}

// WithAvailableCashScale returns a copy with AvailableCash scaled by
// weight, used by the Strategy Manager to derive a per-strategy view.
func (p Portfolio) WithAvailableCashScale(weight decimal.Decimal) Portfolio {
	derived := p.Clone()
	derived.AvailableCash = p.AvailableCash.Mul(weight)
	return derived
}
