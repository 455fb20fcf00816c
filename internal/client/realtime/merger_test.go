package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore/storetest"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/services"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deletedAt = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

type harness struct {
	session   *services.Session
	merger    *Merger
	navigated []string
	changes   int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{session: services.NewSession(storetest.Open(t, "u1"), logging.Nop())}
	h.merger = NewMerger(h.session.Store, Options{
		OnNavigateAway: func(id string) { h.navigated = append(h.navigated, id) },
		OnChange:       func() { h.changes++ },
	}, logging.Nop())
	return h
}

// settle drops every queued mutation, as if a drain had confirmed them.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	list, err := h.session.Queue.DrainOrder(ctx, "u1")
	require.NoError(t, err)
	for _, e := range list {
		require.NoError(t, h.session.Queue.Remove(ctx, e.ClientMutationID))
	}
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	require.NoError(t, h.merger.Load(context.Background()))
}

func (h *harness) apply(t *testing.T, ev remote.Event, table string, row remote.Row) {
	t.Helper()
	require.NoError(t, h.merger.Apply(context.Background(), remote.ChangeEvent{Event: ev, Table: table, Row: row}))
}

func TestApply_InsertAddsNoteAndIgnoresEcho(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	row := remote.Row{
		"id":         "n1",
		"user_id":    "u1",
		"title":      "from phone",
		"content":    "c",
		"pinned":     false,
		"deleted_at": nil,
		"created_at": remote.FormatTime(deletedAt),
		"updated_at": remote.FormatTime(deletedAt),
	}
	h.apply(t, remote.EventInsert, remote.TableNotes, row)

	v := h.merger.View()
	require.Len(t, v.Active, 1)
	assert.Equal(t, "from phone", v.Active[0].Title)
	assert.Empty(t, v.Active[0].Tags)
	assert.NotNil(t, v.Active[0].Tags)

	st, err := h.session.Store.SyncStatus(context.Background(), models.EntityNote, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, st)

	echo := row.Clone()
	echo["title"] = "stale echo"
	h.apply(t, remote.EventInsert, remote.TableNotes, echo)
	got, err := h.session.Notes.Get(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "from phone", got.Title)
}

func TestApply_UpdateKeepsLocalTags(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.session.Notes.Create(ctx, "old", "body")
	require.NoError(t, err)
	tag, err := h.session.Tags.Create(ctx, "work", "")
	require.NoError(t, err)
	require.NoError(t, h.session.Notes.AddTag(ctx, n.ID, tag.ID))
	h.settle(t)
	h.load(t)

	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{"id": n.ID, "title": "new"})

	v := h.merger.View()
	require.Len(t, v.Active, 1)
	assert.Equal(t, "new", v.Active[0].Title)
	assert.Equal(t, "body", v.Active[0].Content)
	require.Len(t, v.Active[0].Tags, 1)
	assert.Equal(t, "work", v.Active[0].Tags[0].Name)
	assert.Equal(t, 1, h.changes)
}

func TestApply_SoftDeleteOfOpenNoteNavigatesAway(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.session.Notes.Create(ctx, "t", "c")
	require.NoError(t, err)
	h.settle(t)
	h.load(t)
	h.merger.Open(n.ID)

	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{"id": n.ID, "deleted_at": remote.FormatTime(deletedAt)})

	v := h.merger.View()
	assert.Empty(t, v.Active)
	require.Len(t, v.Faded, 1)
	assert.Equal(t, 1, v.FadedCount)
	assert.Empty(t, v.OpenNoteID)
	assert.Equal(t, []string{n.ID}, h.navigated)

	// Restore moves it back and keeps the counter consistent.
	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{"id": n.ID, "deleted_at": nil})
	v = h.merger.View()
	require.Len(t, v.Active, 1)
	assert.Empty(t, v.Faded)
	assert.Equal(t, 0, v.FadedCount)
	assert.Len(t, h.navigated, 1)
}

func TestApply_PendingEditKeepsContentButTakesDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.session.Notes.Create(ctx, "t", "c")
	require.NoError(t, err)
	h.settle(t)
	_, err = h.session.Notes.Update(ctx, n.ID, "offline edit", "c")
	require.NoError(t, err)
	h.load(t)

	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{
		"id":         n.ID,
		"title":      "server title",
		"deleted_at": remote.FormatTime(deletedAt),
	})

	got, err := h.session.Notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "offline edit", got.Title)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, deletedAt.Equal(*got.DeletedAt))
	assert.Equal(t, models.StatusPending, got.SyncStatus)

	pending, err := h.session.Queue.Pending(ctx, models.EntityNote, n.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	p, err := pending[0].Unwrap()
	require.NoError(t, err)
	np := p.(models.NotePayload)
	assert.Equal(t, "offline edit", np.Title)
	require.NotNil(t, np.DeletedAt)
	assert.True(t, deletedAt.Equal(*np.DeletedAt))

	assert.Equal(t, 1, h.merger.View().FadedCount)
}

// syncedNote creates a note and applies its server row, leaving it synced
// at serverAt with nothing queued.
func (h *harness) syncedNote(t *testing.T, serverAt time.Time) *models.Note {
	t.Helper()
	n, err := h.session.Notes.Create(context.Background(), "t", "c")
	require.NoError(t, err)
	h.settle(t)
	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{
		"id":         n.ID,
		"title":      "t",
		"deleted_at": nil,
		"updated_at": remote.FormatTime(serverAt),
	})
	h.load(t)
	return n
}

func (h *harness) queuedNote(t *testing.T, id string) models.NotePayload {
	t.Helper()
	pending, err := h.session.Queue.Pending(context.Background(), models.EntityNote, id)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	p, err := pending[0].Unwrap()
	require.NoError(t, err)
	return p.(models.NotePayload)
}

func TestApply_LateEchoKeepsPendingSoftDelete(t *testing.T) {
	synced := time.Now().Add(-time.Hour)
	tests := []struct {
		name string
		echo func(id string) remote.Row
	}{
		{name: "same server time", echo: func(id string) remote.Row {
			return remote.Row{"id": id, "title": "t", "deleted_at": nil, "updated_at": remote.FormatTime(synced)}
		}},
		{name: "older server time", echo: func(id string) remote.Row {
			return remote.Row{"id": id, "title": "t", "deleted_at": nil, "updated_at": remote.FormatTime(synced.Add(-time.Minute))}
		}},
		{name: "written before the soft delete", echo: func(id string) remote.Row {
			return remote.Row{"id": id, "title": "t", "deleted_at": nil, "updated_at": remote.FormatTime(synced.Add(time.Minute))}
		}},
		{name: "no server time", echo: func(id string) remote.Row {
			return remote.Row{"id": id, "deleted_at": nil}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			n := h.syncedNote(t, synced)

			_, err := h.session.Notes.SoftDelete(ctx, n.ID)
			require.NoError(t, err)
			h.load(t)

			h.apply(t, remote.EventUpdate, remote.TableNotes, tt.echo(n.ID))

			got, err := h.session.Notes.Get(ctx, n.ID)
			require.NoError(t, err)
			assert.NotNil(t, got.DeletedAt)
			assert.NotNil(t, h.queuedNote(t, n.ID).DeletedAt)

			v := h.merger.View()
			assert.Empty(t, v.Active)
			assert.Equal(t, 1, v.FadedCount)
		})
	}
}

func TestApply_LateEchoKeepsPendingRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	synced := time.Now().Add(-time.Hour)
	n := h.syncedNote(t, synced)

	_, err := h.session.Notes.SoftDelete(ctx, n.ID)
	require.NoError(t, err)
	h.settle(t)
	_, err = h.session.Notes.Restore(ctx, n.ID)
	require.NoError(t, err)
	h.load(t)

	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{
		"id":         n.ID,
		"deleted_at": remote.FormatTime(deletedAt),
		"updated_at": remote.FormatTime(synced.Add(time.Minute)),
	})

	got, err := h.session.Notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
	assert.Nil(t, h.queuedNote(t, n.ID).DeletedAt)
	assert.Len(t, h.merger.View().Active, 1)
}

// A stale echo converges to the same state whether it arrives before or
// after the local soft delete it races with.
func TestApply_StaleEchoOrderDoesNotMatter(t *testing.T) {
	synced := time.Now().Add(-time.Hour)
	stale := func(id string) remote.Row {
		return remote.Row{
			"id":         id,
			"title":      "older title",
			"deleted_at": nil,
			"updated_at": remote.FormatTime(synced.Add(-time.Minute)),
		}
	}
	type outcome struct {
		title    string
		faded    bool
		queued   bool
		fadedNum int
	}
	run := func(t *testing.T, echoFirst bool) outcome {
		t.Helper()
		h := newHarness(t)
		ctx := context.Background()
		n := h.syncedNote(t, synced)

		if echoFirst {
			h.apply(t, remote.EventUpdate, remote.TableNotes, stale(n.ID))
		}
		_, err := h.session.Notes.SoftDelete(ctx, n.ID)
		require.NoError(t, err)
		h.load(t)
		if !echoFirst {
			h.apply(t, remote.EventUpdate, remote.TableNotes, stale(n.ID))
		}

		got, err := h.session.Notes.Get(ctx, n.ID)
		require.NoError(t, err)
		return outcome{
			title:    got.Title,
			faded:    got.DeletedAt != nil,
			queued:   h.queuedNote(t, n.ID).DeletedAt != nil,
			fadedNum: h.merger.View().FadedCount,
		}
	}

	var before, after outcome
	t.Run("echo first", func(t *testing.T) { before = run(t, true) })
	t.Run("echo last", func(t *testing.T) { after = run(t, false) })
	assert.Equal(t, before, after)
	assert.Equal(t, outcome{title: "t", faded: true, queued: true, fadedNum: 1}, after)
}

func TestApply_NewerRemoteDeleteBeatsPendingRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.syncedNote(t, time.Now().Add(-time.Hour))

	_, err := h.session.Notes.SoftDelete(ctx, n.ID)
	require.NoError(t, err)
	h.settle(t)
	_, err = h.session.Notes.Restore(ctx, n.ID)
	require.NoError(t, err)
	h.load(t)

	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{
		"id":         n.ID,
		"deleted_at": remote.FormatTime(deletedAt),
		"updated_at": remote.FormatTime(time.Now().Add(time.Hour)),
	})

	got, err := h.session.Notes.Get(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, deletedAt.Equal(*got.DeletedAt))
	q := h.queuedNote(t, n.ID)
	require.NotNil(t, q.DeletedAt)
	assert.False(t, q.FadeChanged)
	assert.Equal(t, 1, h.merger.View().FadedCount)
}

func TestApply_UpdateOfUnknownNoteInserts(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.apply(t, remote.EventUpdate, remote.TableNotes, remote.Row{"id": "n9", "title": "late"})

	got, err := h.session.Notes.Get(context.Background(), "n9")
	require.NoError(t, err)
	assert.Equal(t, "late", got.Title)
	assert.Len(t, h.merger.View().Active, 1)
}

func TestApply_RemoteDeleteDropsNoteAndQueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.session.Notes.Create(ctx, "t", "c")
	require.NoError(t, err)
	tag, err := h.session.Tags.Create(ctx, "x", "")
	require.NoError(t, err)
	require.NoError(t, h.session.Notes.AddTag(ctx, n.ID, tag.ID))
	h.load(t)
	h.merger.Open(n.ID)

	h.apply(t, remote.EventDelete, remote.TableNotes, remote.Row{"id": n.ID})

	_, err = h.session.Notes.Get(ctx, n.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	pending, err := h.session.Queue.Pending(ctx, models.EntityNote, n.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
	pending, err = h.session.Queue.Pending(ctx, models.EntityNoteTag, models.NoteTagID(n.ID, tag.ID))
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Empty(t, h.merger.View().Active)
	assert.Equal(t, []string{n.ID}, h.navigated)
}

func TestApply_IgnoresOtherUsers(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.apply(t, remote.EventInsert, remote.TableNotes, remote.Row{"id": "n1", "user_id": "u2", "title": "x"})

	assert.Empty(t, h.merger.View().Active)
	assert.Equal(t, 0, h.changes)
}

func TestApply_RejectsEventWithoutRow(t *testing.T) {
	h := newHarness(t)
	err := h.merger.Apply(context.Background(), remote.ChangeEvent{Event: remote.EventInsert, Table: remote.TableNotes})
	assert.Error(t, err)
}

func TestApply_NoteTagEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.session.Notes.Create(ctx, "t", "c")
	require.NoError(t, err)
	h.settle(t)
	h.load(t)

	h.apply(t, remote.EventInsert, remote.TableTags, remote.Row{"id": "tg1", "name": "ideas", "color": string(models.Palette[1])})
	h.apply(t, remote.EventInsert, remote.TableNoteTags, remote.Row{"id": models.NoteTagID(n.ID, "tg1"), "note_id": n.ID, "tag_id": "tg1"})
	// Duplicate delivery is harmless.
	h.apply(t, remote.EventInsert, remote.TableNoteTags, remote.Row{"id": models.NoteTagID(n.ID, "tg1"), "note_id": n.ID, "tag_id": "tg1"})

	v := h.merger.View()
	require.Len(t, v.Active, 1)
	require.Len(t, v.Active[0].Tags, 1)
	assert.Equal(t, "ideas", v.Active[0].Tags[0].Name)

	h.apply(t, remote.EventUpdate, remote.TableTags, remote.Row{"id": "tg1", "name": "plans"})
	assert.Equal(t, "plans", h.merger.View().Active[0].Tags[0].Name)

	h.apply(t, remote.EventDelete, remote.TableNoteTags, remote.Row{"id": models.NoteTagID(n.ID, "tg1")})
	assert.Empty(t, h.merger.View().Active[0].Tags)

	got, err := h.session.Notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestApply_TagDeleteStripsNotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.session.Notes.Create(ctx, "t", "c")
	require.NoError(t, err)
	tag, err := h.session.Tags.Create(ctx, "gone", "")
	require.NoError(t, err)
	require.NoError(t, h.session.Notes.AddTag(ctx, n.ID, tag.ID))
	h.settle(t)
	h.load(t)

	h.apply(t, remote.EventDelete, remote.TableTags, remote.Row{"id": tag.ID})

	assert.Empty(t, h.merger.View().Active[0].Tags)
	_, err = h.session.Tags.Get(ctx, tag.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestApply_TagUpdateSkippedWhileRenamePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tag, err := h.session.Tags.Create(ctx, "mine", "")
	require.NoError(t, err)
	h.settle(t)
	_, err = h.session.Tags.Rename(ctx, tag.ID, "renamed")
	require.NoError(t, err)
	h.load(t)

	h.apply(t, remote.EventUpdate, remote.TableTags, remote.Row{"id": tag.ID, "name": "theirs"})

	got, err := h.session.Tags.Get(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}
