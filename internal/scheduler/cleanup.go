package scheduler

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"copytrader/internal/storage"
)

// cleanupArtifacts deletes data-directory files older than the configured
// retention window. The live stores are always kept. Best-effort: any
// failure here is logged and never aborts a run.
func (s *Scheduler) cleanupArtifacts() {
	if s.cfg.RetentionDays <= 0 || s.cfg.DataDir == "" {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	entries, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("retention cleanup: cannot read data dir", zap.Error(err))
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == storage.PositionsFile || name == storage.HistoryFile {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.DataDir, name)
		if err := os.Remove(path); err != nil {
			s.logger.Warn("retention cleanup: remove failed", zap.String("file", path), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("retention cleanup removed old artifacts", zap.Int("count", removed))
	}
}

// Cleanup runs the retention pass on demand, outside a scheduled run.
func (s *Scheduler) Cleanup() {
	s.cleanupArtifacts()
}
