package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"copytrader/internal/models"
)

// Limits holds the configured risk thresholds. Percentages are fractions.
type Limits struct {
	TradeScale     decimal.Decimal
	MaxPositionPct decimal.Decimal
	MaxPositions   int
	DailyLossLimit decimal.Decimal
	MaxDrawdown    decimal.Decimal
	// WarningRatio is the fraction of MaxDrawdown at which portfolio risk
	// moves from ok to warning.
	WarningRatio decimal.Decimal
}

// Decision is the result of a single risk check. Every rejection carries a
// reason; a bare boolean is never returned.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// ScaleOutcome distinguishes why CalculateScaledTrade produced no order.
// A quantity that floors to zero is a policy decision, not a rejection, and
// callers must be able to tell the two apart.
type ScaleOutcome int

const (
	ScaleOK ScaleOutcome = iota
	ScaleBelowMinimum
	ScaleDenied
)

func (o ScaleOutcome) String() string {
	switch o {
	case ScaleOK:
		return "ok"
	case ScaleBelowMinimum:
		return "below_minimum"
	case ScaleDenied:
		return "denied"
	default:
		return fmt.Sprintf("ScaleOutcome(%d)", int(o))
	}
}

// Policy evaluates proposed orders and portfolio state against Limits.
// It is stateless: counters are passed in by the caller on every check.
type Policy struct {
	Limits Limits
}

// CalculateScaledTrade sizes a mirrored order: target notional is
// account_total * trade_scale, quantity is floor(target / price). A nil
// order with ScaleBelowMinimum means the account is too small to mirror the
// trade at all; ScaleDenied means the inputs were unusable and nothing may
// trade.
func (p Policy) CalculateScaledTrade(trade models.SourceTrade, accountTotal, currentPrice decimal.Decimal) (*models.Order, ScaleOutcome, string) {
	if accountTotal.LessThanOrEqual(decimal.Zero) {
		return nil, ScaleDenied, "account total value unavailable or non-positive"
	}
	if currentPrice.LessThanOrEqual(decimal.Zero) {
		return nil, ScaleDenied, fmt.Sprintf("no usable price for %s", trade.Ticker)
	}

	targetNotional := accountTotal.Mul(p.Limits.TradeScale)
	// Always round down: rounding up could breach the position-size cap.
	quantity := targetNotional.Div(currentPrice).Floor().IntPart()
	if quantity <= 0 {
		return nil, ScaleBelowMinimum, fmt.Sprintf("scaled quantity for %s rounds to zero (target %s at %s)",
			trade.Ticker, targetNotional.StringFixed(2), currentPrice.StringFixed(2))
	}

	return &models.Order{
		Symbol:          trade.Ticker,
		Quantity:        quantity,
		Side:            trade.Side(),
		Notional:        currentPrice.Mul(decimal.NewFromInt(quantity)),
		SourceReference: trade.SourceReference,
	}, ScaleOK, ""
}

// CheckPositionLimits gates an opening order on per-position size and on the
// total number of distinct open symbols. openSymbols is the current open
// set; a symbol already held does not count against MaxPositions again.
func (p Policy) CheckPositionLimits(symbol string, quantity int64, currentPrice, accountTotal decimal.Decimal, openSymbols map[string]bool) Decision {
	if accountTotal.LessThanOrEqual(decimal.Zero) {
		return deny("account total value unavailable, denying all orders")
	}

	notional := currentPrice.Mul(decimal.NewFromInt(quantity))
	ratio := notional.Div(accountTotal)
	if ratio.GreaterThan(p.Limits.MaxPositionPct) {
		return deny(fmt.Sprintf("%s order notional %s is %s%% of account, above %s%% cap",
			symbol, notional.StringFixed(2),
			ratio.Mul(decimal.NewFromInt(100)).StringFixed(2),
			p.Limits.MaxPositionPct.Mul(decimal.NewFromInt(100)).StringFixed(2)))
	}

	if !openSymbols[symbol] && len(openSymbols) >= p.Limits.MaxPositions {
		return deny(fmt.Sprintf("already holding %d positions, limit is %d", len(openSymbols), p.Limits.MaxPositions))
	}

	return allow("within position limits")
}

// CheckDailyLossLimit halts new orders once the day's realized P&L has
// fallen past the configured fraction of account value.
func (p Policy) CheckDailyLossLimit(dailyPnL, accountTotal decimal.Decimal) Decision {
	if accountTotal.LessThanOrEqual(decimal.Zero) {
		return deny("account total value unavailable, denying all orders")
	}
	lossRatio := dailyPnL.Div(accountTotal)
	if lossRatio.LessThanOrEqual(p.Limits.DailyLossLimit.Neg()) {
		return deny(fmt.Sprintf("daily loss %s is %s%% of account, at or past the %s%% limit",
			dailyPnL.StringFixed(2),
			lossRatio.Mul(decimal.NewFromInt(100)).StringFixed(2),
			p.Limits.DailyLossLimit.Mul(decimal.NewFromInt(100)).StringFixed(2)))
	}
	return allow("within daily loss limit")
}
