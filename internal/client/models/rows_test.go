package models

import (
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteRowRoundTrip(t *testing.T) {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	deleted := created.Add(time.Hour)
	row := NotePayload{Title: "a", Content: "b", Pinned: true, DeletedAt: &deleted, CreatedAt: created}.Row("n1")
	row["user_id"] = "u1"
	row["updated_at"] = remote.FormatTime(deleted)

	n, err := NoteFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "u1", n.UserID)
	assert.True(t, n.Pinned)
	require.NotNil(t, n.DeletedAt)
	assert.True(t, n.DeletedAt.Equal(deleted))
	assert.True(t, n.CreatedAt.Equal(created))
	require.NotNil(t, n.ServerUpdatedAt)
	assert.Nil(t, n.Tags)

	_, err = NoteFromRow(remote.Row{"title": "x"})
	assert.Error(t, err)
}

func TestTagAndNoteTagFromRow(t *testing.T) {
	tg, err := TagFromRow(TagPayload{Name: "work", Color: "ocean"}.Row("t1"))
	require.NoError(t, err)
	assert.Equal(t, ColorOcean, tg.Color)

	a, err := NoteTagFromRow(remote.Row{"id": "n1:t1"})
	require.NoError(t, err)
	assert.Equal(t, "n1", a.NoteID)
	assert.Equal(t, "t1", a.TagID)

	a, err = NoteTagFromRow(NoteTagPayload{NoteID: "n2", TagID: "t2"}.Row("n2:t2"))
	require.NoError(t, err)
	assert.Equal(t, "n2:t2", a.EntityID())

	_, err = NoteTagFromRow(remote.Row{"id": "broken"})
	assert.Error(t, err)
}

func TestShareFromRowAndServerTime(t *testing.T) {
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s, err := ShareFromRow(remote.Row{
		"id": "s1", "note_id": "n1", "user_id": "u1", "share_token": "tok",
		"expires_at": remote.FormatTime(exp), "created_at": remote.FormatTime(exp.Add(-time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", s.ShareToken)
	assert.True(t, s.Expired(exp))
	assert.False(t, s.Expired(exp.Add(-time.Minute)))

	fallback := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fallback, ServerTime(remote.Row{}, fallback))
	assert.True(t, exp.Equal(ServerTime(remote.Row{"updated_at": remote.FormatTime(exp)}, fallback)))
}

func TestEntityTypeTable(t *testing.T) {
	table, err := EntityNoteTag.Table()
	require.NoError(t, err)
	assert.Equal(t, remote.TableNoteTags, table)

	_, err = EntityType("folder").Table()
	assert.ErrorIs(t, err, ErrUnknownEntityType)
}
