package shares

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

func TestUpsertReplacesShareOfSameNote(t *testing.T) {
	r := NewSQLiteRepository(migratetest.Open(t), "u1")
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	exp := now.Add(7 * 24 * time.Hour)

	require.NoError(t, r.Upsert(ctx, &models.NoteShare{
		ID: "s1", NoteID: "n1", OwnerUserID: "u1", ShareToken: "tok1", ExpiresAt: &exp, CreatedAt: now,
	}))
	require.NoError(t, r.Upsert(ctx, &models.NoteShare{
		ID: "s2", NoteID: "n1", OwnerUserID: "u1", ShareToken: "tok2", CreatedAt: now.Add(time.Hour),
	}))

	got, err := r.GetByNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "s2", got.ID)
	assert.Equal(t, "tok2", got.ShareToken)
	assert.Nil(t, got.ExpiresAt)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, r.DeleteByNote(ctx, "n1"))
	require.NoError(t, r.DeleteByNote(ctx, "n1"))
	_, err = r.GetByNote(ctx, "n1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert_RejectsForeignOwner(t *testing.T) {
	r := NewSQLiteRepository(migratetest.Open(t), "u1")
	err := r.Upsert(context.Background(), &models.NoteShare{ID: "s1", NoteID: "n1", OwnerUserID: "u2", ShareToken: "t"})
	assert.ErrorIs(t, err, common.ErrUserMismatch)
}
