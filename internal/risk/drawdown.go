package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RiskStatus grades portfolio drawdown.
type RiskStatus string

const (
	StatusOK      RiskStatus = "ok"
	StatusWarning RiskStatus = "warning"
	StatusHalt    RiskStatus = "halt"
)

// PortfolioRisk is the drawdown assessment. Halt is a hard stop: the engine
// refuses all new opening orders while halted.
type PortfolioRisk struct {
	Status   RiskStatus
	Drawdown decimal.Decimal
	Reason   string
}

// CheckPortfolioRisk computes drawdown from the peak high-water mark.
// A zero or unset peak means no history yet, which is ok, not an error.
func (p Policy) CheckPortfolioRisk(peakValue, currentValue decimal.Decimal) PortfolioRisk {
	if peakValue.LessThanOrEqual(decimal.Zero) {
		return PortfolioRisk{Status: StatusOK, Drawdown: decimal.Zero, Reason: "no peak recorded yet"}
	}
	if currentValue.LessThanOrEqual(decimal.Zero) {
		return PortfolioRisk{
			Status:   StatusHalt,
			Drawdown: decimal.NewFromInt(1),
			Reason:   "current portfolio value unavailable or non-positive",
		}
	}

	drawdown := peakValue.Sub(currentValue).Div(peakValue)
	pct := drawdown.Mul(decimal.NewFromInt(100)).StringFixed(2)

	if drawdown.GreaterThan(p.Limits.MaxDrawdown) {
		return PortfolioRisk{
			Status:   StatusHalt,
			Drawdown: drawdown,
			Reason: fmt.Sprintf("drawdown %s%% exceeds %s%% limit", pct,
				p.Limits.MaxDrawdown.Mul(decimal.NewFromInt(100)).StringFixed(2)),
		}
	}

	warningAt := p.Limits.MaxDrawdown.Mul(p.Limits.WarningRatio)
	if drawdown.GreaterThanOrEqual(warningAt) {
		return PortfolioRisk{
			Status:   StatusWarning,
			Drawdown: drawdown,
			Reason:   fmt.Sprintf("drawdown %s%% approaching limit", pct),
		}
	}

	return PortfolioRisk{Status: StatusOK, Drawdown: drawdown, Reason: "drawdown within limits"}
}
