package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"copytrader/internal/collector"
	"copytrader/internal/engine"
	"copytrader/internal/models"
)

// executeRun performs one full pipeline pass and records it. Callers must
// hold runMu. The record enters history as running and is settled in place
// at the terminal status. A collector outage fails the run; individual
// trade failures are tallied and the run keeps going.
func (s *Scheduler) executeRun() *models.ExecutionRecord {
	start := time.Now()
	rec := models.ExecutionRecord{
		StartTime: start,
		Status:    models.RunRunning,
	}
	idx := s.beginRecord(rec)
	s.logger.Info("run started")

	collectCtx, cancel := context.WithTimeout(s.baseCtx, s.cfg.CollectTimeout)
	trades, err := s.collector.Collect(collectCtx)
	cancel()
	if err != nil {
		rec.Fail(time.Now(), fmt.Errorf("collector: %w", err))
		s.logger.Error("run failed: collector unreachable", zap.Error(err))
		s.settleRecord(idx, rec)
		return &rec
	}
	cstats := collector.Stats{Collected: len(trades)}
	rec.TradesCollected = cstats.Collected

	valid := trades[:0:0]
	for _, t := range trades {
		if err := t.Validate(); err != nil {
			cstats.Invalid++
			s.logger.Warn("discarding invalid source trade", zap.Error(err))
			continue
		}
		valid = append(valid, t)
	}

	// Alerts are fire-and-forget; a dead sink must not fail the run.
	for _, t := range s.scorer.Significant(valid) {
		s.notifier.Notify(fmt.Sprintf("*Significant trade observed*\n%s %s for %s",
			t.TransactionType, t.Ticker, t.Amount.StringFixed(0)))
		cstats.Alerted++
	}
	rec.AlertsSent = cstats.Alerted

	stats := cstats.AsMap()
	for _, t := range valid {
		result := s.engine.ProcessTrade(s.baseCtx, t)
		stats[string(result.Status)]++
		switch result.Status {
		case engine.StatusFailed:
			s.logger.Error("trade failed",
				zap.String("ticker", t.Ticker),
				zap.String("reference", t.SourceReference),
				zap.Error(result.Err))
		case engine.StatusDenied, engine.StatusBelowMinimum, engine.StatusSkipped:
			s.logger.Info("trade not mirrored",
				zap.String("ticker", t.Ticker),
				zap.String("status", string(result.Status)),
				zap.String("reason", result.Reason))
		}
	}

	report := s.engine.ManagePositions(s.baseCtx)
	stats["positions_checked"] = report.Checked
	stats["stops_closed"] = report.StopsClosed

	rec.CollectionStats = stats
	rec.Complete(time.Now())
	s.settleRecord(idx, rec)

	s.cleanupArtifacts()

	s.logger.Info("run completed",
		zap.Int("collected", rec.TradesCollected),
		zap.Int("alerts", rec.AlertsSent),
		zap.Duration("elapsed", time.Since(start)))
	return &rec
}

// beginRecord appends the running record so Records reflects the active
// run. Nothing is persisted yet; only terminal records reach disk.
func (s *Scheduler) beginRecord(rec models.ExecutionRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return len(s.records) - 1
}

// settleRecord replaces the running record with its terminal form, enforces
// the cap, and persists the full list. Persistence failure is loud but not
// fatal; the next run still gets scheduled. Single-flight guarantees no
// other append happened since beginRecord, so the index is still valid.
func (s *Scheduler) settleRecord(idx int, rec models.ExecutionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[idx] = rec
	if s.history != nil {
		// The store enforces the same cap on disk.
		s.records = s.history.Cap(s.records)
		if err := s.history.Save(s.records); err != nil {
			s.logger.Error("failed to persist execution history", zap.Error(err))
		}
	}
}
