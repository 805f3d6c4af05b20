package engine

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"copytrader/internal/models"
	"copytrader/internal/position"
)

// ManageReport summarizes one position-management pass.
type ManageReport struct {
	Checked       int
	Armed         int
	StopsClosed   int
	FailedUpdates int
}

// ManagePositions walks the open set with fresh quotes: raises high-water
// marks, arms trailing stops once the unrealized gain crosses the arm
// threshold, and closes positions whose stop has triggered. Stop-loss
// closes are never gated by market hours; getting out of a risk position
// always takes priority. Per-position failures are logged and skipped so
// one bad quote cannot wedge the rest of the pass.
func (e *Engine) ManagePositions(ctx context.Context) ManageReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rolloverLocked(e.now())

	var report ManageReport

	for _, pos := range e.snapshotOrderLocked() {
		report.Checked++

		quote, err := e.quote(ctx, pos.Symbol())
		if err != nil {
			report.FailedUpdates++
			e.logger.Warn("quote failed during position check",
				zap.String("symbol", pos.Symbol()), zap.Error(err))
			continue
		}
		if quote.Price.LessThanOrEqual(decimal.Zero) {
			report.FailedUpdates++
			e.logger.Warn("ignoring non-positive quote",
				zap.String("symbol", pos.Symbol()), zap.String("price", quote.Price.String()))
			continue
		}

		pos.UpdatePrice(quote.Price)

		if !pos.TrailingStopActive() &&
			pos.UnrealizedPnLPercent(quote.Price).GreaterThanOrEqual(e.cfg.TrailingArmPercent) {
			pos.ArmTrailingStop()
			report.Armed++
			e.logger.Info("trailing stop armed",
				zap.String("symbol", pos.Symbol()),
				zap.String("stop_price", pos.StopLossPrice().StringFixed(2)))
		}

		if pos.CheckStopLoss(quote.Price) {
			e.logger.Info("trailing stop triggered",
				zap.String("symbol", pos.Symbol()),
				zap.String("price", quote.Price.StringFixed(2)),
				zap.String("stop_price", pos.StopLossPrice().StringFixed(2)))

			fill, err := e.submit(ctx, pos.Symbol(), pos.Quantity(), models.Sell)
			if err != nil {
				// Position stays armed; the next pass retries the close.
				report.FailedUpdates++
				e.logger.Error("stop-loss close failed",
					zap.String("symbol", pos.Symbol()), zap.Error(err))
				continue
			}
			e.settleCloseLocked(pos, fill)
			report.StopsClosed++
			e.logger.Info("position closed on stop",
				zap.String("symbol", fill.Symbol),
				zap.String("avg_price", fill.AvgPrice.StringFixed(2)))
		}
	}

	e.persistLocked()
	return report
}

// snapshotOrderLocked returns open positions in stable symbol order so
// management passes and tests are deterministic.
func (e *Engine) snapshotOrderLocked() []*position.Position {
	symbols := make([]string, 0, len(e.positions))
	for symbol := range e.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	out := make([]*position.Position, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, e.positions[symbol])
	}
	return out
}
