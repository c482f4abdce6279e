package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestRunStorage_AppendOnly(t *testing.T) {
	db := openTestDB(t)
	storage := NewRunStorage(db, arbor.NewLogger())
	ctx := context.Background()

	started := time.Date(2026, 1, 29, 10, 0, 0, 0, time.UTC)
	run := &models.RunRecord{
		RunID:       "run_a",
		ProfileID:   "EV-SHADOW-001",
		WindowCount: 2,
		Windows: []models.WindowOutcome{
			{WindowID: "W001_20240101_20240331", Success: true},
			{WindowID: "W002_20240131_20240430", Success: false, Error: "regime context not viable"},
		},
		Outcome:   models.RunFailure,
		StartedAt: started,
	}
	require.NoError(t, storage.SaveRun(ctx, run))

	err := storage.SaveRun(ctx, run)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunExists))

	got, err := storage.GetRun(ctx, "run_a")
	require.NoError(t, err)
	assert.Equal(t, "EV-SHADOW-001", got.ProfileID)
	assert.Len(t, got.Windows, 2)
	assert.False(t, got.Succeeded())
	assert.Len(t, got.FailedWindows(), 1)

	second := &models.RunRecord{RunID: "run_b", ProfileID: "EV-SHADOW-001", StartedAt: started.Add(time.Hour)}
	require.NoError(t, storage.SaveRun(ctx, second))

	runs, err := storage.ListRunsByProfile(ctx, "EV-SHADOW-001")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run_a", runs[0].RunID)

	_, err = storage.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestSnapshotStorage_UpsertAndList(t *testing.T) {
	db := openTestDB(t)
	storage := NewSnapshotStorage(db, arbor.NewLogger())
	ctx := context.Background()

	res := &models.Resolution{
		ID:            "ns/W001_20240101_20240331/2026-01-29",
		Namespace:     "ns",
		WindowID:      "W001_20240101_20240331",
		CurrentRegime: "BULLISH",
		Summary:       models.ResolutionSummary{Total: 3, Eligible: 1, Blocked: 2},
	}
	require.NoError(t, storage.SaveSnapshot(ctx, res))

	res.Summary.Eligible = 2
	res.Summary.Blocked = 1
	require.NoError(t, storage.SaveSnapshot(ctx, res))

	got, err := storage.GetSnapshot(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Summary.Eligible)

	list, err := storage.ListSnapshotsByNamespace(ctx, "ns")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestKVStorage_Prefix(t *testing.T) {
	db := openTestDB(t)
	kv := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "ingest:US:SPY", "2024-06-28", "last bar"))
	require.NoError(t, kv.Set(ctx, "ingest:US:QQQ", "2024-06-27", "last bar"))
	require.NoError(t, kv.Set(ctx, "ingest:INDIA:NIFTY50", "2024-06-28", "last bar"))

	value, err := kv.Get(ctx, "INGEST:us:spy")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-28", value)

	pairs, err := kv.ListByPrefix(ctx, "ingest:us:")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "ingest:us:qqq", pairs[0].Key)

	require.NoError(t, kv.Delete(ctx, "ingest:us:spy"))
	_, err = kv.Get(ctx, "ingest:us:spy")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestArtifactIndex_ListByRun(t *testing.T) {
	db := openTestDB(t)
	index := NewArtifactIndex(db, arbor.NewLogger())
	ctx := context.Background()

	for _, name := range []string{"regime_context.json", "factor_context.json"} {
		require.NoError(t, index.RecordArtifact(ctx, &models.ArtifactRecord{
			RunID:    "run_a",
			WindowID: "W001_20240101_20240331",
			Name:     name,
		}))
	}
	require.NoError(t, index.RecordArtifact(ctx, &models.ArtifactRecord{RunID: "run_b", WindowID: "W001", Name: "x"}))

	records, err := index.ListArtifactsByRun(ctx, "run_a")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run_a/W001_20240101_20240331/factor_context.json", records[0].ID)
}
