package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config is the complete, immutable runtime configuration. It is built once
// at startup and passed into each component at construction; nothing reads
// the environment after Load returns.
type Config struct {
	// Sizing and risk limits. Percentages are fractions (0.05 = 5%).
	TradeScale           float64
	MaxPositionPct       float64
	MaxPositions         int
	DailyLossLimit       float64
	MaxDrawdown          float64
	DrawdownWarningRatio float64

	// Trailing stop policy.
	TrailingStopPercent float64
	TrailingArmPercent  float64

	// Market hours gate.
	MarketHoursOnly bool
	MarketOpenTime  string // "HH:MM", engine falls back to 09:30 if malformed
	MarketCloseTime string // "HH:MM", engine falls back to 16:00 if malformed

	// Scheduling.
	Schedule          string // five-field cron expression
	RunOnStart        bool
	CatchUpMissedRuns bool
	HistoryLimit      int
	RetentionDays     int

	// Alerting.
	MinAlertAmount float64

	// External calls.
	CallTimeoutSec int

	// Storage and logging.
	DataDir     string
	LogLevel    string
	LogEncoding string

	Version string
}

// Load reads a .env file if present, verifies the required broker
// credentials, and assembles the Config from environment variables with
// documented defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	required := []string{
		"APCA_API_KEY_ID",
		"APCA_API_SECRET_KEY",
		"APCA_API_BASE_URL",
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	return &Config{
		TradeScale:           getEnvAsFloat64("TRADE_SCALE", 0.05),
		MaxPositionPct:       getEnvAsFloat64("MAX_POSITION_PCT", 0.10),
		MaxPositions:         getEnvAsInt("MAX_POSITIONS", 10),
		DailyLossLimit:       getEnvAsFloat64("DAILY_LOSS_LIMIT", 0.03),
		MaxDrawdown:          getEnvAsFloat64("MAX_DRAWDOWN", 0.15),
		DrawdownWarningRatio: getEnvAsFloat64("DRAWDOWN_WARNING_RATIO", 0.75),

		TrailingStopPercent: getEnvAsFloat64("TRAILING_STOP_PCT", 0.10),
		TrailingArmPercent:  getEnvAsFloat64("TRAILING_ARM_PCT", 0.05),

		MarketHoursOnly: getEnvAsBool("MARKET_HOURS_ONLY", true),
		MarketOpenTime:  getEnv("MARKET_OPEN_TIME", "09:30"),
		MarketCloseTime: getEnv("MARKET_CLOSE_TIME", "16:00"),

		Schedule:          getEnv("SCHEDULE", "0 10 * * 1-5"),
		RunOnStart:        getEnvAsBool("RUN_ON_START", false),
		CatchUpMissedRuns: getEnvAsBool("CATCH_UP_MISSED_RUNS", false),
		HistoryLimit:      getEnvAsInt("HISTORY_LIMIT", 100),
		RetentionDays:     getEnvAsInt("RETENTION_DAYS", 30),

		MinAlertAmount: getEnvAsFloat64("MIN_ALERT_AMOUNT", 50000),

		CallTimeoutSec: getEnvAsInt("CALL_TIMEOUT_SEC", 30),

		DataDir:     getEnv("DATA_DIR", "data"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogEncoding: getEnv("LOG_ENCODING", "console"),
	}
}
