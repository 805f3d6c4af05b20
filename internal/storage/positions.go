package storage

import (
	"path/filepath"

	"copytrader/internal/position"
)

// PositionsFile is the on-disk name of the position store inside the data
// directory. The format is a human-diffable JSON array of snapshots,
// rewritten in full on every mutation.
const PositionsFile = "positions.json"

// PositionStore persists position snapshots.
type PositionStore struct {
	path string
}

func NewPositionStore(dataDir string) *PositionStore {
	return &PositionStore{path: filepath.Join(dataDir, PositionsFile)}
}

// Load reads all snapshots. A missing file yields an empty slice; an
// unreadable or corrupt file also yields an empty slice plus the error so
// the caller can log loudly and still start.
func (s *PositionStore) Load() ([]position.Snapshot, error) {
	var snaps []position.Snapshot
	if _, err := readJSON(s.path, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// Save rewrites the full store atomically.
func (s *PositionStore) Save(snaps []position.Snapshot) error {
	if snaps == nil {
		snaps = []position.Snapshot{}
	}
	return writeAtomic(s.path, snaps)
}
