package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"copytrader/internal/collector"
	"copytrader/internal/engine"
	"copytrader/internal/models"
	"copytrader/internal/notifier"
	"copytrader/internal/storage"
)

// Config is the scheduler's runtime configuration.
type Config struct {
	Schedule   string // five-field cron expression
	RunOnStart bool
	// CatchUpMissedRuns fires one immediate run on start when the schedule
	// fired while the process was down. At most one run is caught up,
	// regardless of how many fires were missed.
	CatchUpMissedRuns bool
	CollectTimeout    time.Duration
	DataDir           string
	RetentionDays     int
}

// Scheduler drives the collect-decide-execute pipeline on a cron cadence,
// guarantees at most one run in flight, and keeps the durable execution
// history. Ticks that fire while a run is active are dropped, not queued;
// missed ticks are likewise never replayed.
type Scheduler struct {
	cfg       Config
	collector collector.Collector
	scorer    collector.Scorer
	engine    *engine.Engine
	notifier  notifier.Notifier
	history   *storage.HistoryStore
	logger    *zap.Logger
	baseCtx   context.Context

	mu      sync.Mutex // guards cron handle and records
	cron    *cron.Cron
	records []models.ExecutionRecord

	runMu sync.Mutex // single-flight guard around executeRun
}

func New(cfg Config, col collector.Collector, scorer collector.Scorer, eng *engine.Engine,
	sink notifier.Notifier, history *storage.HistoryStore, logger *zap.Logger, baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	s := &Scheduler{
		cfg:       cfg,
		collector: col,
		scorer:    scorer,
		engine:    eng,
		notifier:  sink,
		history:   history,
		logger:    logger,
		baseCtx:   baseCtx,
	}
	if history != nil {
		records, err := history.Load()
		if err != nil {
			logger.Error("execution history unreadable, starting empty; possible data loss", zap.Error(err))
		}
		s.records = records
	}
	return s
}

// Start validates the schedule and begins ticking. With RunOnStart set the
// pipeline fires once immediately, through the same single-flight path.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.cfg.Schedule))

	if s.cfg.RunOnStart {
		go s.tick()
	} else if s.cfg.CatchUpMissedRuns && s.missedRunLocked(time.Now()) {
		s.logger.Info("schedule fired while down, catching up with one run")
		go s.tick()
	}
	return nil
}

// missedRunLocked reports whether the schedule would have fired between the
// last recorded run and now. No history means nothing to catch up.
func (s *Scheduler) missedRunLocked(now time.Time) bool {
	if len(s.records) == 0 {
		return false
	}
	sched, err := cron.ParseStandard(s.cfg.Schedule)
	if err != nil {
		return false
	}
	last := s.records[len(s.records)-1].StartTime
	return sched.Next(last).Before(now)
}

// tick is the cron entrypoint. Overlapping ticks are dropped with a log
// line so a slow run never stacks executions.
func (s *Scheduler) tick() {
	if !s.runMu.TryLock() {
		s.logger.Warn("previous run still in flight, dropping tick")
		return
	}
	defer s.runMu.Unlock()
	s.executeRun()
}

// RunOnce triggers the pipeline manually. It refuses rather than queues
// when a run is already active.
func (s *Scheduler) RunOnce() (*models.ExecutionRecord, error) {
	if !s.runMu.TryLock() {
		return nil, fmt.Errorf("a run is already in flight")
	}
	defer s.runMu.Unlock()
	rec := s.executeRun()
	return rec, nil
}

// Stop halts scheduling and waits, bounded, for any in-flight run to reach
// a terminal status. Exceeding the bound reports an incomplete stop
// instead of silently abandoning the run.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		s.runMu.Lock()
		s.runMu.Unlock()
		close(idle)
	}()

	select {
	case <-idle:
		s.logger.Info("scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("stop incomplete: run still in flight after %s", timeout)
	}
}

// UpdateSchedule atomically swaps the cron expression: validate, bounded
// stop (the in-flight run finishes first), reconfigure, restart.
func (s *Scheduler) UpdateSchedule(schedule string, stopTimeout time.Duration) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if err := s.Stop(stopTimeout); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Schedule = schedule
	s.mu.Unlock()
	s.logger.Info("schedule updated", zap.String("schedule", schedule))
	return s.Start()
}

// Records returns a copy of the execution history, newest last.
func (s *Scheduler) Records() []models.ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ExecutionRecord, len(s.records))
	copy(out, s.records)
	return out
}
