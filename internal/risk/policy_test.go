package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copytrader/internal/models"
)

func testPolicy() Policy {
	return Policy{Limits: Limits{
		TradeScale:     decimal.NewFromFloat(0.05),
		MaxPositionPct: decimal.NewFromFloat(0.10),
		MaxPositions:   10,
		DailyLossLimit: decimal.NewFromFloat(0.03),
		MaxDrawdown:    decimal.NewFromFloat(0.15),
		WarningRatio:   decimal.NewFromFloat(0.75),
	}}
}

func sourceTrade(ticker string, txType models.TransactionType, amount float64) models.SourceTrade {
	return models.SourceTrade{
		Ticker:          ticker,
		TransactionType: txType,
		Amount:          decimal.NewFromFloat(amount),
		OccurredAt:      time.Now(),
		SourceReference: "filing-1",
	}
}

func TestCalculateScaledTrade(t *testing.T) {
	p := testPolicy()
	trade := sourceTrade("NVDA", models.Purchase, 250000)

	// 50000 * 0.05 / 500 = 5 shares.
	order, outcome, _ := p.CalculateScaledTrade(trade, decimal.NewFromInt(50000), decimal.NewFromInt(500))
	require.Equal(t, ScaleOK, outcome)
	require.NotNil(t, order)
	assert.Equal(t, "NVDA", order.Symbol)
	assert.Equal(t, int64(5), order.Quantity)
	assert.Equal(t, models.Buy, order.Side)
	assert.True(t, order.Notional.Equal(decimal.NewFromInt(2500)))
}

func TestCalculateScaledTradeFloorsDown(t *testing.T) {
	p := testPolicy()
	trade := sourceTrade("NVDA", models.Purchase, 250000)

	// 50000 * 0.05 / 499 = 5.01... -> 5, never rounded up.
	order, outcome, _ := p.CalculateScaledTrade(trade, decimal.NewFromInt(50000), decimal.NewFromInt(499))
	require.Equal(t, ScaleOK, outcome)
	assert.Equal(t, int64(5), order.Quantity)
}

func TestCalculateScaledTradeBelowMinimumIsNotAnOrder(t *testing.T) {
	p := testPolicy()
	trade := sourceTrade("NVDA", models.Purchase, 250000)

	// 1000 * 0.05 / 500 = 0.1 -> quantity floors to zero.
	order, outcome, reason := p.CalculateScaledTrade(trade, decimal.NewFromInt(1000), decimal.NewFromInt(500))
	assert.Nil(t, order, "must be none, not a zero-quantity order")
	assert.Equal(t, ScaleBelowMinimum, outcome)
	assert.NotEmpty(t, reason)
}

func TestCalculateScaledTradeDeniesUnusableInputs(t *testing.T) {
	p := testPolicy()
	trade := sourceTrade("NVDA", models.Purchase, 250000)

	order, outcome, _ := p.CalculateScaledTrade(trade, decimal.Zero, decimal.NewFromInt(500))
	assert.Nil(t, order)
	assert.Equal(t, ScaleDenied, outcome, "zero account value denies, never divides")

	order, outcome, _ = p.CalculateScaledTrade(trade, decimal.NewFromInt(50000), decimal.Zero)
	assert.Nil(t, order)
	assert.Equal(t, ScaleDenied, outcome)
}

func TestCheckPositionLimits(t *testing.T) {
	p := testPolicy()
	total := decimal.NewFromInt(50000)
	price := decimal.NewFromInt(500)
	open := map[string]bool{}

	d := p.CheckPositionLimits("NVDA", 5, price, total, open)
	assert.True(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)

	// 10 * 500 = 5000 = exactly 10% of 50000: at the boundary, allowed.
	d = p.CheckPositionLimits("NVDA", 10, price, total, open)
	assert.True(t, d.Allowed)

	// 11 * 500 = 5500 = 11% > 10%: denied with a reason.
	d = p.CheckPositionLimits("NVDA", 11, price, total, open)
	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)
}

func TestCheckPositionLimitsMaxPositions(t *testing.T) {
	p := testPolicy()
	total := decimal.NewFromInt(1000000)
	price := decimal.NewFromInt(10)

	open := map[string]bool{}
	for _, sym := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"} {
		open[sym] = true
	}

	d := p.CheckPositionLimits("K", 1, price, total, open)
	assert.False(t, d.Allowed, "11th distinct symbol exceeds the cap")

	d = p.CheckPositionLimits("A", 1, price, total, open)
	assert.True(t, d.Allowed, "adding to a held symbol is not a new position")
}

func TestCheckPositionLimitsZeroAccountDeniesAll(t *testing.T) {
	p := testPolicy()
	d := p.CheckPositionLimits("NVDA", 1, decimal.NewFromInt(500), decimal.Zero, nil)
	assert.False(t, d.Allowed)
}

func TestCheckDailyLossLimit(t *testing.T) {
	p := testPolicy()
	total := decimal.NewFromInt(50000)

	d := p.CheckDailyLossLimit(decimal.NewFromInt(-1000), total)
	assert.True(t, d.Allowed, "2% loss is within the 3% limit")

	d = p.CheckDailyLossLimit(decimal.NewFromInt(-1500), total)
	assert.False(t, d.Allowed, "exactly at the limit halts")

	d = p.CheckDailyLossLimit(decimal.NewFromInt(-2000), total)
	assert.False(t, d.Allowed)

	d = p.CheckDailyLossLimit(decimal.NewFromInt(500), total)
	assert.True(t, d.Allowed)

	d = p.CheckDailyLossLimit(decimal.Zero, decimal.Zero)
	assert.False(t, d.Allowed, "unknown account value denies everything")
}

func TestCheckPortfolioRisk(t *testing.T) {
	p := testPolicy()
	peak := decimal.NewFromInt(50000)

	// 20% drawdown > 15% limit.
	pr := p.CheckPortfolioRisk(peak, decimal.NewFromInt(40000))
	assert.Equal(t, StatusHalt, pr.Status)
	assert.True(t, pr.Drawdown.Equal(decimal.NewFromFloat(0.20)))
	assert.NotEmpty(t, pr.Reason)

	// 12% drawdown >= 0.75*15% = 11.25%: warning.
	pr = p.CheckPortfolioRisk(peak, decimal.NewFromInt(44000))
	assert.Equal(t, StatusWarning, pr.Status)

	// 5% drawdown: fine.
	pr = p.CheckPortfolioRisk(peak, decimal.NewFromInt(47500))
	assert.Equal(t, StatusOK, pr.Status)

	// Exactly at the limit does not halt; only exceeding it does.
	pr = p.CheckPortfolioRisk(peak, decimal.NewFromInt(42500))
	assert.NotEqual(t, StatusHalt, pr.Status)
}

func TestCheckPortfolioRiskMonotonicUnderFixedPeak(t *testing.T) {
	p := testPolicy()
	peak := decimal.NewFromInt(50000)

	halted := false
	for v := 50000; v >= 30000; v -= 1000 {
		pr := p.CheckPortfolioRisk(peak, decimal.NewFromInt(int64(v)))
		if halted {
			assert.Equal(t, StatusHalt, pr.Status,
				"increasing drawdown must never leave halt without a peak update")
		}
		if pr.Status == StatusHalt {
			halted = true
		}
	}
	assert.True(t, halted)
}

func TestCheckPortfolioRiskEdgeValues(t *testing.T) {
	p := testPolicy()

	pr := p.CheckPortfolioRisk(decimal.Zero, decimal.NewFromInt(40000))
	assert.Equal(t, StatusOK, pr.Status, "no peak yet is ok, not a division by zero")

	pr = p.CheckPortfolioRisk(decimal.NewFromInt(50000), decimal.Zero)
	assert.Equal(t, StatusHalt, pr.Status, "unknown current value is a hard stop")
}
