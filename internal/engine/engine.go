package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"copytrader/internal/broker"
	"copytrader/internal/models"
	"copytrader/internal/position"
	"copytrader/internal/risk"
	"copytrader/internal/storage"
)

// Config holds the engine's own knobs, split out from the global config so
// tests can construct an engine directly.
type Config struct {
	TrailingStopPercent decimal.Decimal
	TrailingArmPercent  decimal.Decimal
	MarketHoursOnly     bool
	MarketOpenTime      string // "HH:MM"
	MarketCloseTime     string // "HH:MM"
	CallTimeout         time.Duration
}

// Engine converts source trades into risk-checked scaled orders and owns
// the open position set plus the rolling risk counters. Its exported
// methods are the only mutation path; everything runs under one mutex, so
// no two trades are ever evaluated against a stale risk snapshot.
type Engine struct {
	cfg    Config
	policy risk.Policy
	broker broker.Adapter
	store  *storage.PositionStore
	logger *zap.Logger
	now    func() time.Time

	mu                sync.Mutex
	positions         map[string]*position.Position
	dailyPnL          decimal.Decimal
	pnlDay            string
	consecutiveLosses int
	peakValue         decimal.Decimal
}

// New loads the persisted position set and builds the engine. A corrupt
// store is a loud warning, not a crash: the engine starts empty.
func New(cfg Config, policy risk.Policy, adapter broker.Adapter, store *storage.PositionStore, logger *zap.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		policy:    policy,
		broker:    adapter,
		store:     store,
		logger:    logger,
		now:       time.Now,
		positions: make(map[string]*position.Position),
		dailyPnL:  decimal.Zero,
		peakValue: decimal.Zero,
	}

	if store != nil {
		snaps, err := store.Load()
		if err != nil {
			logger.Error("position store unreadable, starting with empty position set; possible data loss",
				zap.Error(err))
		}
		for _, s := range snaps {
			p, err := position.FromSnapshot(s)
			if err != nil {
				logger.Error("discarding invalid persisted position", zap.String("symbol", s.Symbol), zap.Error(err))
				continue
			}
			e.positions[p.Symbol()] = p
		}
		if len(e.positions) > 0 {
			logger.Info("restored positions", zap.Int("count", len(e.positions)))
		}
	}

	return e
}

// ProcessTrade runs the full pipeline for one source trade: market-hours
// gate, account snapshot, portfolio risk re-check, scaling, position and
// daily-loss limits, order submission, position bookkeeping. Broker
// failures surface in the result; they are never fatal to the engine.
func (e *Engine) ProcessTrade(ctx context.Context, trade models.SourceTrade) TradeResult {
	if err := trade.Validate(); err != nil {
		return failed(trade, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rolloverLocked(e.now())

	if trade.TransactionType == models.Sale {
		return e.mirrorSaleLocked(ctx, trade)
	}
	return e.mirrorPurchaseLocked(ctx, trade)
}

func (e *Engine) mirrorPurchaseLocked(ctx context.Context, trade models.SourceTrade) TradeResult {
	if !e.IsMarketOpen(e.now()) {
		return skipped(trade, "market closed, opening orders refused")
	}

	balance, err := e.accountBalance(ctx)
	if err != nil {
		return failed(trade, err)
	}

	// Portfolio risk is re-checked before every order, never cached
	// across a run.
	pr := e.policy.CheckPortfolioRisk(e.peakValue, balance.TotalValue)
	switch pr.Status {
	case risk.StatusHalt:
		e.logger.Warn("portfolio risk halt, refusing opening order",
			zap.String("symbol", trade.Ticker),
			zap.String("drawdown", pr.Drawdown.StringFixed(4)),
			zap.String("reason", pr.Reason))
		return denied(trade, pr.Reason)
	case risk.StatusWarning:
		e.logger.Warn("portfolio drawdown warning",
			zap.String("drawdown", pr.Drawdown.StringFixed(4)),
			zap.String("reason", pr.Reason))
	}

	quote, err := e.quote(ctx, trade.Ticker)
	if err != nil {
		return failed(trade, err)
	}

	order, outcome, reason := e.policy.CalculateScaledTrade(trade, balance.TotalValue, quote.Price)
	switch outcome {
	case risk.ScaleBelowMinimum:
		e.logger.Info("scaled quantity below minimum", zap.String("symbol", trade.Ticker), zap.String("reason", reason))
		return belowMinimum(trade, reason)
	case risk.ScaleDenied:
		e.logger.Warn("scaling denied", zap.String("symbol", trade.Ticker), zap.String("reason", reason))
		return denied(trade, reason)
	}

	if d := e.policy.CheckPositionLimits(order.Symbol, order.Quantity, quote.Price, balance.TotalValue, e.openSymbolsLocked()); !d.Allowed {
		e.logger.Warn("position limit denial", zap.String("symbol", order.Symbol), zap.String("reason", d.Reason))
		return denied(trade, d.Reason)
	}
	if d := e.policy.CheckDailyLossLimit(e.dailyPnL, balance.TotalValue); !d.Allowed {
		e.logger.Warn("daily loss denial", zap.String("symbol", order.Symbol), zap.String("reason", d.Reason))
		return denied(trade, d.Reason)
	}

	fill, err := e.submit(ctx, order.Symbol, order.Quantity, models.Buy)
	if err != nil {
		// No optimistic transition: the position set is untouched.
		e.logger.Error("order submission failed", zap.String("symbol", order.Symbol), zap.Error(err))
		return failed(trade, err)
	}

	if existing, ok := e.positions[fill.Symbol]; ok {
		if err := existing.Add(fill.Quantity, fill.AvgPrice); err != nil {
			return failed(trade, err)
		}
	} else {
		p, err := position.New(fill.Symbol, fill.Quantity, fill.AvgPrice, fill.FilledAt,
			e.cfg.TrailingStopPercent, trade.SourceReference)
		if err != nil {
			return failed(trade, err)
		}
		e.positions[fill.Symbol] = p
	}
	e.persistLocked()

	e.logger.Info("mirrored purchase",
		zap.String("symbol", fill.Symbol),
		zap.Int64("quantity", fill.Quantity),
		zap.String("avg_price", fill.AvgPrice.StringFixed(2)))
	return executed(trade, fill)
}

// mirrorSaleLocked reduces or closes the matching open position. Sales are
// risk-reducing, so they are not gated by market hours or opening limits.
func (e *Engine) mirrorSaleLocked(ctx context.Context, trade models.SourceTrade) TradeResult {
	pos, ok := e.positions[trade.Ticker]
	if !ok {
		return skipped(trade, "no open position to mirror sale against")
	}

	balance, err := e.accountBalance(ctx)
	if err != nil {
		return failed(trade, err)
	}
	quote, err := e.quote(ctx, trade.Ticker)
	if err != nil {
		return failed(trade, err)
	}

	order, outcome, reason := e.policy.CalculateScaledTrade(trade, balance.TotalValue, quote.Price)
	switch outcome {
	case risk.ScaleBelowMinimum:
		return belowMinimum(trade, reason)
	case risk.ScaleDenied:
		return denied(trade, reason)
	}

	quantity := order.Quantity
	if quantity > pos.Quantity() {
		quantity = pos.Quantity()
	}

	fill, err := e.submit(ctx, trade.Ticker, quantity, models.Sell)
	if err != nil {
		e.logger.Error("sale submission failed", zap.String("symbol", trade.Ticker), zap.Error(err))
		return failed(trade, err)
	}

	e.settleCloseLocked(pos, fill)
	e.persistLocked()

	e.logger.Info("mirrored sale",
		zap.String("symbol", fill.Symbol),
		zap.Int64("quantity", fill.Quantity),
		zap.String("avg_price", fill.AvgPrice.StringFixed(2)))
	return executed(trade, fill)
}

// settleCloseLocked books realized P&L from a closing fill, updates the
// loss streak, and drops the position once quantity hits zero.
func (e *Engine) settleCloseLocked(pos *position.Position, fill *models.Fill) {
	realized := fill.AvgPrice.Sub(pos.EntryPrice()).Mul(decimal.NewFromInt(fill.Quantity))
	e.dailyPnL = e.dailyPnL.Add(realized)
	if realized.IsNegative() {
		e.consecutiveLosses++
	} else {
		e.consecutiveLosses = 0
	}

	if fill.Quantity >= pos.Quantity() {
		delete(e.positions, pos.Symbol())
	} else if err := pos.Reduce(fill.Quantity); err != nil {
		e.logger.Error("position reduce failed", zap.String("symbol", pos.Symbol()), zap.Error(err))
	}
}

// accountBalance fetches the broker snapshot and advances the portfolio
// peak high-water mark.
func (e *Engine) accountBalance(ctx context.Context) (*models.AccountBalance, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	balance, err := e.broker.AccountBalance(callCtx)
	if err != nil {
		return nil, err
	}
	if balance.TotalValue.GreaterThan(e.peakValue) {
		e.peakValue = balance.TotalValue
	}
	return balance, nil
}

func (e *Engine) quote(ctx context.Context, symbol string) (*models.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.broker.Quote(callCtx, symbol)
}

func (e *Engine) submit(ctx context.Context, symbol string, quantity int64, side models.OrderSide) (*models.Fill, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.broker.SubmitOrder(callCtx, symbol, quantity, side)
}

func (e *Engine) openSymbolsLocked() map[string]bool {
	open := make(map[string]bool, len(e.positions))
	for symbol := range e.positions {
		open[symbol] = true
	}
	return open
}

// rolloverLocked resets the daily P&L counter at the trading-day boundary.
// The peak portfolio value survives rollovers; only ResetPeak clears it.
func (e *Engine) rolloverLocked(now time.Time) {
	day := now.In(marketLoc).Format("2006-01-02")
	if e.pnlDay != day {
		if e.pnlDay != "" {
			e.logger.Info("daily counter rollover",
				zap.String("day", e.pnlDay),
				zap.String("realized_pnl", e.dailyPnL.StringFixed(2)))
		}
		e.pnlDay = day
		e.dailyPnL = decimal.Zero
	}
}

func (e *Engine) persistLocked() {
	if e.store == nil {
		return
	}
	snaps := make([]position.Snapshot, 0, len(e.positions))
	for _, p := range e.positions {
		snaps = append(snaps, p.Snapshot())
	}
	if err := e.store.Save(snaps); err != nil {
		e.logger.Error("failed to persist positions", zap.Error(err))
	}
}

// Positions returns a snapshot copy of the open set for reporting.
func (e *Engine) Positions() []position.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snaps := make([]position.Snapshot, 0, len(e.positions))
	for _, p := range e.positions {
		snaps = append(snaps, p.Snapshot())
	}
	return snaps
}

// Counters exposes the current risk counters for reporting.
func (e *Engine) Counters() (dailyPnL decimal.Decimal, consecutiveLosses int, peakValue decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyPnL, e.consecutiveLosses, e.peakValue
}

// ResetPeak is the explicit operator action that clears the drawdown
// high-water mark.
func (e *Engine) ResetPeak() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Warn("peak portfolio value reset by operator",
		zap.String("previous_peak", e.peakValue.StringFixed(2)))
	e.peakValue = decimal.Zero
}
