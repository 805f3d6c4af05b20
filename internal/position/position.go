package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Position is one open long holding. It owns its own trailing-stop and P&L
// math and nothing else: it never talks to the broker and never closes
// itself. The engine acts on the signals it exposes.
type Position struct {
	symbol              string
	quantity            int64
	entryPrice          decimal.Decimal
	entryDate           time.Time
	highestPrice        decimal.Decimal
	trailingStopActive  bool
	trailingStopPercent decimal.Decimal
	stopLossPrice       decimal.Decimal
	sourceTradeID       string
}

// New validates inputs and creates a position with the high-water mark
// seeded at the entry price.
func New(symbol string, quantity int64, entryPrice decimal.Decimal, entryDate time.Time, trailingStopPercent decimal.Decimal, sourceTradeID string) (*Position, error) {
	if symbol == "" {
		return nil, fmt.Errorf("position: empty symbol")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("position %s: quantity must be positive, got %d", symbol, quantity)
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("position %s: entry price must be positive, got %s", symbol, entryPrice)
	}
	if trailingStopPercent.IsNegative() || trailingStopPercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("position %s: trailing stop percent must be in [0,1), got %s", symbol, trailingStopPercent)
	}
	return &Position{
		symbol:              symbol,
		quantity:            quantity,
		entryPrice:          entryPrice,
		entryDate:           entryDate,
		highestPrice:        entryPrice,
		trailingStopPercent: trailingStopPercent,
		sourceTradeID:       sourceTradeID,
	}, nil
}

func (p *Position) Symbol() string                       { return p.symbol }
func (p *Position) Quantity() int64                      { return p.quantity }
func (p *Position) EntryPrice() decimal.Decimal          { return p.entryPrice }
func (p *Position) EntryDate() time.Time                 { return p.entryDate }
func (p *Position) HighestPrice() decimal.Decimal        { return p.highestPrice }
func (p *Position) TrailingStopActive() bool             { return p.trailingStopActive }
func (p *Position) TrailingStopPercent() decimal.Decimal { return p.trailingStopPercent }
func (p *Position) StopLossPrice() decimal.Decimal       { return p.stopLossPrice }
func (p *Position) SourceTradeID() string                { return p.sourceTradeID }

// UpdatePrice raises the high-water mark if the price is a new high and,
// while the trailing stop is armed, recomputes the stop price as
// highest * (1 - trailing_stop_percent). The stop never moves down.
// Callers reject non-positive prices before getting here.
func (p *Position) UpdatePrice(currentPrice decimal.Decimal) {
	if currentPrice.GreaterThan(p.highestPrice) {
		p.highestPrice = currentPrice
	}
	if p.trailingStopActive {
		p.recomputeStop()
	}
}

// ArmTrailingStop activates the trailing stop and computes the initial stop
// price from the current high-water mark.
func (p *Position) ArmTrailingStop() {
	p.trailingStopActive = true
	p.recomputeStop()
}

func (p *Position) recomputeStop() {
	one := decimal.NewFromInt(1)
	p.stopLossPrice = p.highestPrice.Mul(one.Sub(p.trailingStopPercent))
}

// CheckStopLoss reports whether the trailing stop has triggered at the
// given price. Pure predicate: boundary equality triggers, and nothing is
// mutated. The engine decides what to do with the signal.
func (p *Position) CheckStopLoss(currentPrice decimal.Decimal) bool {
	return p.trailingStopActive && currentPrice.LessThanOrEqual(p.stopLossPrice)
}

// UnrealizedPnL is (current - entry) * quantity.
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Sub(p.entryPrice).Mul(decimal.NewFromInt(p.quantity))
}

// UnrealizedPnLPercent is the unrealized P&L as a fraction of cost basis.
// Entry price is validated positive at construction, so the divisor is safe.
func (p *Position) UnrealizedPnLPercent(currentPrice decimal.Decimal) decimal.Decimal {
	costBasis := p.entryPrice.Mul(decimal.NewFromInt(p.quantity))
	return p.UnrealizedPnL(currentPrice).Div(costBasis)
}

// Add grows the position on a subsequent fill, moving the entry price to
// the weighted average cost. The new fill price also feeds the high-water
// mark, which keeps highest >= entry.
func (p *Position) Add(quantity int64, fillPrice decimal.Decimal) error {
	if quantity <= 0 {
		return fmt.Errorf("position %s: add quantity must be positive, got %d", p.symbol, quantity)
	}
	if fillPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("position %s: fill price must be positive, got %s", p.symbol, fillPrice)
	}
	oldCost := p.entryPrice.Mul(decimal.NewFromInt(p.quantity))
	addCost := fillPrice.Mul(decimal.NewFromInt(quantity))
	p.quantity += quantity
	p.entryPrice = oldCost.Add(addCost).Div(decimal.NewFromInt(p.quantity))
	p.UpdatePrice(fillPrice)
	return nil
}

// Reduce cuts quantity on a partial close. It returns an error rather than
// letting quantity go negative.
func (p *Position) Reduce(quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("position %s: reduce quantity must be positive, got %d", p.symbol, quantity)
	}
	if quantity > p.quantity {
		return fmt.Errorf("position %s: cannot reduce by %d, only %d held", p.symbol, quantity, p.quantity)
	}
	p.quantity -= quantity
	return nil
}
