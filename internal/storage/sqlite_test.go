package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func equivalents(start time.Time, n int, group string) []models.IntakeRecord {
	records := make([]models.IntakeRecord, n)
	for i := range records {
		at := start.Add(time.Duration(i) * 30 * time.Minute)
		records[i] = models.NewEquivalentRecord(at, decimal.RequireFromString("2.5"), group)
	}
	return records
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	carbs := models.NewCarbRecord(start, decimal.NewFromInt(30))
	require.NoError(t, store.AppendBatch(ctx, equivalents(start.Add(time.Hour), 3, "g1")))
	require.NoError(t, store.AppendBatch(ctx, []models.IntakeRecord{carbs}))

	records, err := store.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, carbs.ID, records[0].ID)
	assert.False(t, records[0].IsEquivalent)
	assert.Nil(t, records[0].GroupID)
	assert.True(t, records[0].Grams.Equal(decimal.NewFromInt(30)))
	assert.True(t, records[0].Timestamp.Equal(start))

	for _, r := range records[1:] {
		assert.True(t, r.IsEquivalent)
		assert.Equal(t, "g1", r.Group())
		assert.Equal(t, models.SourceSynthetic, r.Source)
		assert.True(t, r.Grams.Equal(decimal.RequireFromString("2.5")))
	}
}

func TestSQLiteStore_ListRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendBatch(ctx, equivalents(start, 6, "g1")))

	records, err := store.List(ctx, start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSQLiteStore_AppendBatchIsAtomic(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	batch := equivalents(start, 3, "g1")
	batch[2].ID = batch[0].ID // primary key clash on the last insert

	err := store.AppendBatch(ctx, batch)
	require.Error(t, err)

	records, err := store.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStore_GroupAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendBatch(ctx, equivalents(start, 4, "g1")))
	require.NoError(t, store.AppendBatch(ctx, equivalents(start, 2, "g2")))

	group, err := store.Group(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, group, 4)

	n, err := store.DeleteGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	remaining, err := store.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	require.NoError(t, store.Delete(ctx, remaining[0].ID))
	assert.ErrorIs(t, store.Delete(ctx, remaining[0].ID), ErrNotFound)
}

func TestSQLiteStore_Presets(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	pizza := &models.MealPreset{
		Dish:    "Pizza",
		Carbs:   decimal.NewFromInt(80),
		Fat:     decimal.NewFromInt(30),
		Protein: decimal.RequireFromString("25.5"),
	}
	steak := &models.MealPreset{Dish: "Steak", Fat: decimal.NewFromInt(20), Protein: decimal.NewFromInt(50)}

	require.NoError(t, store.SavePreset(ctx, steak))
	require.NoError(t, store.SavePreset(ctx, pizza))
	assert.NotEmpty(t, pizza.ID)

	presets, err := store.Presets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "Pizza", presets[0].Dish)
	assert.True(t, presets[0].Protein.Equal(decimal.RequireFromString("25.5")))

	got, err := store.Preset(ctx, steak.ID)
	require.NoError(t, err)
	assert.Equal(t, "Steak", got.Dish)

	require.NoError(t, store.DeletePreset(ctx, steak.ID))
	_, err = store.Preset(ctx, steak.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeletePreset(ctx, steak.ID), ErrNotFound)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fpu.sqlite3")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.AppendBatch(ctx, equivalents(time.Now(), 2, "g1")))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() {
		_ = reopened.Close()
	}()

	records, err := reopened.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
