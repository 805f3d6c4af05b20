package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"copytrader/internal/broker"
	"copytrader/internal/collector"
	"copytrader/internal/config"
	"copytrader/internal/engine"
	"copytrader/internal/logger"
	"copytrader/internal/models"
	"copytrader/internal/notifier"
	"copytrader/internal/risk"
	"copytrader/internal/scheduler"
	"copytrader/internal/storage"
)

const stopTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("CRITICAL: cannot build logger: %v", err)
	}
	defer zl.Sync()

	verb := "run"
	if len(os.Args) > 1 {
		verb = os.Args[1]
	}

	switch verb {
	case "run":
		runDaemon(cfg, zl)
	case "once":
		runOnce(cfg, zl)
	case "status":
		printStatus(cfg, zl)
	case "cleanup":
		sched := buildScheduler(cfg, zl, context.Background())
		sched.Cleanup()
	default:
		fmt.Fprintf(os.Stderr, "usage: copytrader [run|once|status|cleanup]\n")
		os.Exit(2)
	}
}

func buildScheduler(cfg *config.Config, zl *zap.Logger, ctx context.Context) *scheduler.Scheduler {
	policy := risk.Policy{Limits: risk.Limits{
		TradeScale:     decimal.NewFromFloat(cfg.TradeScale),
		MaxPositionPct: decimal.NewFromFloat(cfg.MaxPositionPct),
		MaxPositions:   cfg.MaxPositions,
		DailyLossLimit: decimal.NewFromFloat(cfg.DailyLossLimit),
		MaxDrawdown:    decimal.NewFromFloat(cfg.MaxDrawdown),
		WarningRatio:   decimal.NewFromFloat(cfg.DrawdownWarningRatio),
	}}

	eng := engine.New(engine.Config{
		TrailingStopPercent: decimal.NewFromFloat(cfg.TrailingStopPercent),
		TrailingArmPercent:  decimal.NewFromFloat(cfg.TrailingArmPercent),
		MarketHoursOnly:     cfg.MarketHoursOnly,
		MarketOpenTime:      cfg.MarketOpenTime,
		MarketCloseTime:     cfg.MarketCloseTime,
		CallTimeout:         time.Duration(cfg.CallTimeoutSec) * time.Second,
	}, policy, broker.NewAlpacaAdapter(), storage.NewPositionStore(cfg.DataDir), zl)

	return scheduler.New(scheduler.Config{
		Schedule:          cfg.Schedule,
		RunOnStart:        cfg.RunOnStart,
		CatchUpMissedRuns: cfg.CatchUpMissedRuns,
		CollectTimeout:    time.Duration(cfg.CallTimeoutSec) * time.Second,
		DataDir:           cfg.DataDir,
		RetentionDays:     cfg.RetentionDays,
	},
		collector.NewFileCollector(cfg.DataDir, zl),
		collector.Scorer{MinAlertAmount: decimal.NewFromFloat(cfg.MinAlertAmount)},
		eng,
		notifier.NewTelegram(zl),
		storage.NewHistoryStore(cfg.DataDir, cfg.HistoryLimit),
		zl,
		ctx,
	)
}

func runDaemon(cfg *config.Config, zl *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := buildScheduler(cfg, zl, ctx)
	if err := sched.Start(); err != nil {
		zl.Fatal("scheduler start failed", zap.Error(err))
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	zl.Info("shutdown signal received")
	cancel()
	if err := sched.Stop(stopTimeout); err != nil {
		zl.Error("shutdown incomplete", zap.Error(err))
		os.Exit(1)
	}
}

func runOnce(cfg *config.Config, zl *zap.Logger) {
	sched := buildScheduler(cfg, zl, context.Background())
	rec, err := sched.RunOnce()
	if err != nil {
		zl.Fatal("run failed to start", zap.Error(err))
	}
	printRecord(*rec)
	if rec.Status == models.RunFailed {
		os.Exit(1)
	}
}

func printStatus(cfg *config.Config, zl *zap.Logger) {
	store := storage.NewHistoryStore(cfg.DataDir, cfg.HistoryLimit)
	records, err := store.Load()
	if err != nil {
		zl.Fatal("cannot read execution history", zap.Error(err))
	}
	if len(records) == 0 {
		fmt.Println("no runs recorded")
		return
	}
	for _, rec := range records {
		printRecord(rec)
	}
}

func printRecord(rec models.ExecutionRecord) {
	end := "-"
	if rec.EndTime != nil {
		end = rec.EndTime.Format(time.RFC3339)
	}
	line := fmt.Sprintf("%s  %-9s  collected=%d alerts=%d  end=%s",
		rec.StartTime.Format(time.RFC3339), rec.Status, rec.TradesCollected, rec.AlertsSent, end)
	if rec.Error != "" {
		line += "  error=" + rec.Error
	}
	fmt.Println(line)
}
