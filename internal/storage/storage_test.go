package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copytrader/internal/models"
	"copytrader/internal/position"
)

func TestPositionStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewPositionStore(dir)

	p, err := position.New("NVDA", 5, decimal.NewFromFloat(500), time.Now().UTC(),
		decimal.NewFromFloat(0.10), "filing-1")
	require.NoError(t, err)
	p.ArmTrailingStop()

	require.NoError(t, store.Save([]position.Snapshot{p.Snapshot()}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "NVDA", loaded[0].Symbol)
	assert.True(t, loaded[0].StopLossPrice.Equal(p.StopLossPrice()))

	// No stray temp file left behind.
	_, err = os.Stat(filepath.Join(dir, PositionsFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestPositionStoreMissingFileIsEmpty(t *testing.T) {
	store := NewPositionStore(t.TempDir())
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestPositionStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PositionsFile), []byte("{not json"), 0644))

	store := NewPositionStore(dir)
	loaded, err := store.Load()
	assert.Error(t, err, "corruption must be visible to the caller")
	assert.Empty(t, loaded)
}

func TestPositionStoreWritesJSONArray(t *testing.T) {
	dir := t.TempDir()
	store := NewPositionStore(dir)
	require.NoError(t, store.Save(nil))

	b, err := os.ReadFile(filepath.Join(dir, PositionsFile))
	require.NoError(t, err)

	var arr []any
	require.NoError(t, json.Unmarshal(b, &arr), "store format is a JSON array of objects")
}

func record(start time.Time) models.ExecutionRecord {
	rec := models.ExecutionRecord{StartTime: start, Status: models.RunRunning}
	rec.Complete(start.Add(time.Minute))
	return rec
}

func TestHistoryStoreCapFIFO(t *testing.T) {
	dir := t.TempDir()
	store := NewHistoryStore(dir, 5)

	var records []models.ExecutionRecord
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		records = append(records, record(base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, store.Save(records))
		records = store.Cap(records)
	}

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 5, "history never exceeds its cap")

	// Oldest evicted first: the survivors are the 5 most recent.
	assert.True(t, loaded[0].StartTime.Equal(base.Add(7*time.Hour)))
	assert.True(t, loaded[4].StartTime.Equal(base.Add(11*time.Hour)))
}

func TestHistoryStoreTrimsOnLoadWhenLimitLowered(t *testing.T) {
	dir := t.TempDir()

	var records []models.ExecutionRecord
	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		records = append(records, record(base.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, NewHistoryStore(dir, 100).Save(records))

	loaded, err := NewHistoryStore(dir, 3).Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.True(t, loaded[2].StartTime.Equal(base.Add(9*time.Minute)))
}

func TestHistoryStoreRecordFields(t *testing.T) {
	dir := t.TempDir()
	store := NewHistoryStore(dir, 10)

	rec := models.ExecutionRecord{
		StartTime:       time.Now().UTC(),
		Status:          models.RunRunning,
		TradesCollected: 3,
		AlertsSent:      1,
		CollectionStats: map[string]int{"executed": 2, "denied": 1},
	}
	rec.Fail(time.Now().UTC(), assert.AnError)

	require.NoError(t, store.Save([]models.ExecutionRecord{rec}))
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, models.RunFailed, got.Status)
	assert.NotNil(t, got.EndTime)
	assert.Equal(t, 3, got.TradesCollected)
	assert.Equal(t, 2, got.CollectionStats["executed"])
	assert.NotEmpty(t, got.Error)
}
