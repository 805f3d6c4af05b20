package collector

import (
	"github.com/shopspring/decimal"

	"copytrader/internal/models"
)

// Scorer picks out the trades worth alerting on: anything at or above the
// configured disclosure amount is considered significant.
type Scorer struct {
	MinAlertAmount decimal.Decimal
}

// Significant filters trades by disclosed amount, preserving order.
func (s Scorer) Significant(trades []models.SourceTrade) []models.SourceTrade {
	if s.MinAlertAmount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	var out []models.SourceTrade
	for _, t := range trades {
		if t.Amount.GreaterThanOrEqual(s.MinAlertAmount) {
			out = append(out, t)
		}
	}
	return out
}
