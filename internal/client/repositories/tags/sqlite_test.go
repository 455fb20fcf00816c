package tags

import (
	"context"
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/migrations/migratetest"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(id, name string) *models.Tag {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Tag{
		ID:        id,
		UserID:    "u1",
		Name:      name,
		Color:     models.ColorForest,
		CreatedAt: now,
		SyncMeta:  models.SyncMeta{LocalUpdatedAt: now},
	}
}

func TestUpsertGetAndList(t *testing.T) {
	r := NewSQLiteRepository(migratetest.Open(t), "u1")
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, tag("t2", "work")))
	require.NoError(t, r.Upsert(ctx, tag("t1", "Ideas")))

	got, err := r.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "work", got.Name)
	assert.Equal(t, models.ColorForest, got.Color)

	got, err = r.GetByName(ctx, "WORK")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ideas", list[0].Name)

	_, err = r.GetByName(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert_NameIsUniqueIgnoringCase(t *testing.T) {
	r := NewSQLiteRepository(migratetest.Open(t), "u1")
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, tag("t1", "Work")))
	assert.Error(t, r.Upsert(ctx, tag("t2", "work")))
}

func TestUpsert_SameNameForDifferentUsers(t *testing.T) {
	db := migratetest.Open(t)
	ctx := context.Background()

	require.NoError(t, NewSQLiteRepository(db, "u1").Upsert(ctx, tag("t1", "work")))
	other := tag("t2", "work")
	other.UserID = "u2"
	require.NoError(t, NewSQLiteRepository(db, "u2").Upsert(ctx, other))
}

func TestRenameAndDelete(t *testing.T) {
	r := NewSQLiteRepository(migratetest.Open(t), "u1")
	ctx := context.Background()

	tg := tag("t1", "work")
	require.NoError(t, r.Upsert(ctx, tg))
	tg.Name = "office"
	tg.Color = models.ColorPlum
	require.NoError(t, r.Upsert(ctx, tg))

	got, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "office", got.Name)
	assert.Equal(t, models.ColorPlum, got.Color)

	require.NoError(t, r.UpdateSyncMeta(ctx, "t1", models.SyncMeta{SyncStatus: models.StatusError}))
	got, err = r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.SyncStatus)

	require.NoError(t, r.Delete(ctx, "t1"))
	_, err = r.Get(ctx, "t1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
