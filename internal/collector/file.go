package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"copytrader/internal/models"
)

// InboxFile is the drop file an external scraper writes new source trades
// into, as a JSON array.
const InboxFile = "incoming_trades.json"

// FileCollector reads source trades from a drop file in the data directory
// and archives the file once consumed, so a trade is only ever handed over
// once. The upstream scraper owns de-duplication across drops.
type FileCollector struct {
	dataDir string
	logger  *zap.Logger
}

func NewFileCollector(dataDir string, logger *zap.Logger) *FileCollector {
	return &FileCollector{dataDir: dataDir, logger: logger}
}

// Collect consumes the inbox. A missing inbox means no new trades.
func (c *FileCollector) Collect(ctx context.Context) ([]models.SourceTrade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(c.dataDir, InboxFile)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	var trades []models.SourceTrade
	if err := json.Unmarshal(b, &trades); err != nil {
		return nil, fmt.Errorf("parse inbox: %w", err)
	}

	// Archive the consumed drop; retention cleanup removes it later.
	// Nanosecond precision so rapid consecutive collects never overwrite
	// an earlier archive.
	archived := filepath.Join(c.dataDir,
		fmt.Sprintf("processed_%s.json", time.Now().Format("20060102T150405.000000000")))
	if err := os.Rename(path, archived); err != nil {
		c.logger.Warn("could not archive consumed inbox", zap.Error(err))
	}

	return trades, nil
}
