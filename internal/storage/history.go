package storage

import (
	"path/filepath"

	"copytrader/internal/models"
)

// HistoryFile is the on-disk name of the execution-history store.
const HistoryFile = "execution_history.json"

// HistoryStore persists the rolling execution history, capped at Limit
// records with the oldest evicted first.
type HistoryStore struct {
	path  string
	limit int
}

func NewHistoryStore(dataDir string, limit int) *HistoryStore {
	if limit <= 0 {
		limit = 100
	}
	return &HistoryStore{path: filepath.Join(dataDir, HistoryFile), limit: limit}
}

// Load reads the persisted history, trimming anything beyond the cap in
// case the limit was lowered between runs.
func (s *HistoryStore) Load() ([]models.ExecutionRecord, error) {
	var records []models.ExecutionRecord
	if _, err := readJSON(s.path, &records); err != nil {
		return nil, err
	}
	return s.trim(records), nil
}

// Save rewrites the full history atomically, enforcing the cap.
func (s *HistoryStore) Save(records []models.ExecutionRecord) error {
	records = s.trim(records)
	if records == nil {
		records = []models.ExecutionRecord{}
	}
	return writeAtomic(s.path, records)
}

// Cap applies the FIFO eviction policy without touching disk, so callers
// holding an in-memory copy stay consistent with the store.
func (s *HistoryStore) Cap(records []models.ExecutionRecord) []models.ExecutionRecord {
	return s.trim(records)
}

func (s *HistoryStore) trim(records []models.ExecutionRecord) []models.ExecutionRecord {
	if len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}
	return records
}
