package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the persisted form of a Position. The stop price is stored
// rather than recomputed so restored positions reflect history exactly.
type Snapshot struct {
	Symbol              string          `json:"symbol"`
	Quantity            int64           `json:"quantity"`
	EntryPrice          decimal.Decimal `json:"entry_price"`
	EntryDate           time.Time       `json:"entry_date"`
	HighestPrice        decimal.Decimal `json:"highest_price"`
	TrailingStopActive  bool            `json:"trailing_stop_active"`
	TrailingStopPercent decimal.Decimal `json:"trailing_stop_percent"`
	StopLossPrice       decimal.Decimal `json:"stop_loss_price"`
	SourceTradeID       string          `json:"source_trade_id,omitempty"`
}

// Snapshot captures every field for persistence.
func (p *Position) Snapshot() Snapshot {
	return Snapshot{
		Symbol:              p.symbol,
		Quantity:            p.quantity,
		EntryPrice:          p.entryPrice,
		EntryDate:           p.entryDate,
		HighestPrice:        p.highestPrice,
		TrailingStopActive:  p.trailingStopActive,
		TrailingStopPercent: p.trailingStopPercent,
		StopLossPrice:       p.stopLossPrice,
		SourceTradeID:       p.sourceTradeID,
	}
}

// FromSnapshot restores a position exactly as persisted, including the
// derived stop price. It applies the same validation as New plus the
// high-water-mark invariant.
func FromSnapshot(s Snapshot) (*Position, error) {
	p, err := New(s.Symbol, s.Quantity, s.EntryPrice, s.EntryDate, s.TrailingStopPercent, s.SourceTradeID)
	if err != nil {
		return nil, err
	}
	if s.HighestPrice.LessThan(s.EntryPrice) {
		return nil, fmt.Errorf("position %s: highest price %s below entry price %s", s.Symbol, s.HighestPrice, s.EntryPrice)
	}
	p.highestPrice = s.HighestPrice
	p.trailingStopActive = s.TrailingStopActive
	p.stopLossPrice = s.StopLossPrice
	return p, nil
}
