// Package realtime folds change events pushed by the remote store into the
// local store and into the in-memory working set the UI renders.
//
// Pushed rows are partial: a column missing from a row is never treated as
// a zero value, and a note's tags are never part of a note row, so the tags
// known locally always survive an update.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
)

// View is a snapshot of the working set.
type View struct {
	Active     []models.Note
	Faded      []models.Note
	FadedCount int
	OpenNoteID string
}

type Options struct {
	// OnNavigateAway is called when the open note is deleted elsewhere.
	OnNavigateAway func(noteID string)
	// OnChange is called after every event that changed the working set.
	OnChange func()
}

type Merger struct {
	store *localstore.Store
	opts  Options
	log   logging.Logger
	now   func() time.Time

	mu         sync.Mutex
	active     map[string]*models.Note
	faded      map[string]*models.Note
	fadedCount int
	openID     string
}

func NewMerger(store *localstore.Store, opts Options, log logging.Logger) *Merger {
	if log == nil {
		log = logging.Nop()
	}
	return &Merger{
		store:  store,
		opts:   opts,
		log:    log.With("module", "realtime"),
		now:    time.Now,
		active: make(map[string]*models.Note),
		faded:  make(map[string]*models.Note),
	}
}

// Load rebuilds the working set from the local store. Call it after local
// writes; pushed events keep it current in between.
func (m *Merger) Load(ctx context.Context) error {
	r := m.store.Repos()
	active, err := r.Notes.ListActive(ctx)
	if err != nil {
		return err
	}
	faded, err := r.Notes.ListFaded(ctx)
	if err != nil {
		return err
	}
	byNote, err := r.NoteTags.TagsByNote(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[string]*models.Note, len(active))
	m.faded = make(map[string]*models.Note, len(faded))
	for i := range active {
		n := &active[i]
		n.Tags = tagsOrEmpty(byNote[n.ID])
		m.active[n.ID] = n
	}
	for i := range faded {
		n := &faded[i]
		n.Tags = tagsOrEmpty(byNote[n.ID])
		m.faded[n.ID] = n
	}
	m.fadedCount = len(faded)
	return nil
}

func tagsOrEmpty(t []models.Tag) []models.Tag {
	if t == nil {
		return []models.Tag{}
	}
	return t
}

// Open marks noteID as open in the editor.
func (m *Merger) Open(noteID string) {
	m.mu.Lock()
	m.openID = noteID
	m.mu.Unlock()
}

func (m *Merger) Close() {
	m.mu.Lock()
	m.openID = ""
	m.mu.Unlock()
}

// View returns a copy of the working set: active notes pinned first then
// most recently edited, faded notes most recently deleted first.
func (m *Merger) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{FadedCount: m.fadedCount, OpenNoteID: m.openID}
	for _, n := range m.active {
		v.Active = append(v.Active, copyNote(n))
	}
	for _, n := range m.faded {
		v.Faded = append(v.Faded, copyNote(n))
	}
	sort.Slice(v.Active, func(i, j int) bool {
		a, b := v.Active[i], v.Active[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if !a.LocalUpdatedAt.Equal(b.LocalUpdatedAt) {
			return a.LocalUpdatedAt.After(b.LocalUpdatedAt)
		}
		return a.ID < b.ID
	})
	sort.Slice(v.Faded, func(i, j int) bool {
		a, b := v.Faded[i], v.Faded[j]
		if !a.DeletedAt.Equal(*b.DeletedAt) {
			return a.DeletedAt.After(*b.DeletedAt)
		}
		return a.ID < b.ID
	})
	return v
}

func copyNote(n *models.Note) models.Note {
	c := *n
	c.Tags = append([]models.Tag{}, n.Tags...)
	return c
}

// Apply dispatches one pushed event by table.
func (m *Merger) Apply(ctx context.Context, ev remote.ChangeEvent) error {
	if ev.Row == nil {
		return fmt.Errorf("%s event on %s without row", ev.Event, ev.Table)
	}
	if owner := ev.Row.String("user_id"); owner != "" && owner != m.store.UserID() {
		m.log.Warn(ctx, "ignoring event of another user", "table", ev.Table)
		return nil
	}

	var err error
	switch ev.Table {
	case remote.TableNotes:
		switch ev.Event {
		case remote.EventInsert:
			err = m.OnRemoteInsert(ctx, ev.Row)
		case remote.EventUpdate:
			err = m.OnRemoteUpdate(ctx, ev.Row)
		case remote.EventDelete:
			err = m.OnRemoteDelete(ctx, ev.Row.ID())
		default:
			err = fmt.Errorf("unknown event %q", ev.Event)
		}
	case remote.TableTags:
		err = m.applyTag(ctx, ev)
	case remote.TableNoteTags:
		err = m.applyNoteTag(ctx, ev)
	default:
		m.log.Debug(ctx, "ignoring event", "table", ev.Table, "event", ev.Event)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s on %s: %w", ev.Event, ev.Table, err)
	}
	m.changed()
	return nil
}

func (m *Merger) changed() {
	if m.opts.OnChange != nil {
		m.opts.OnChange()
	}
}

// OnRemoteInsert adds a note created elsewhere. A note already known
// locally, such as the echo of our own create, is left alone, and so is the
// echo of a create whose note was deleted here before it was acknowledged.
func (m *Merger) OnRemoteInsert(ctx context.Context, row remote.Row) error {
	r := m.store.Repos()
	if _, err := r.Notes.Get(ctx, row.ID()); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	pending, err := r.Queue.ListByEntity(ctx, models.EntityNote, row.ID())
	if err != nil {
		return err
	}
	for _, e := range pending {
		if e.Operation == models.OpDelete {
			return nil
		}
	}

	n, err := models.NoteFromRow(row)
	if err != nil {
		return err
	}
	n.UserID = m.store.UserID()
	n.Tags = []models.Tag{}
	now := m.now()
	n.LocalUpdatedAt = models.ServerTime(row, now)
	n.MarkSynced(n.ServerUpdatedAt, now)
	if err := r.Notes.Upsert(ctx, n); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if n.Faded() {
		m.faded[n.ID] = n
		m.fadedCount++
	} else {
		m.active[n.ID] = n
	}
	return nil
}

// OnRemoteUpdate merges the columns present in row into the local note.
//
// A row older than the last server state seen for the note is a late echo
// and is ignored. While local edits of the note are still queued they win
// for content columns, since they will reach the remote store after this
// event. A change of deleted_at made elsewhere wins over queued content
// edits: it is applied locally and written into them so replaying them does
// not undo it. A queued soft delete or restore of our own only yields to a
// row written after it.
func (m *Merger) OnRemoteUpdate(ctx context.Context, row remote.Row) error {
	id := row.ID()
	var (
		before, after *models.Note
		inserted      bool
	)
	err := m.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		e, err := r.Get(ctx, models.EntityNote, id)
		if errors.Is(err, common.ErrorNotFound) {
			inserted = true
			return nil
		}
		if err != nil {
			return err
		}
		local := e.(*models.Note)
		serverAt, err := row.TimePtr("updated_at")
		if err != nil {
			return err
		}
		if serverAt != nil && local.ServerUpdatedAt != nil && serverAt.Before(*local.ServerUpdatedAt) {
			m.log.Debug(ctx, "ignoring stale note update", "id", id)
			return nil
		}
		prev := copyNote(local)
		before = &prev

		pending, err := r.Queue.ListByEntity(ctx, models.EntityNote, id)
		if err != nil {
			return err
		}
		fade := len(pending) == 0 || !ownFadeWins(pending, local, serverAt)
		if err := mergeNoteRow(local, row, len(pending) == 0, fade); err != nil {
			return err
		}

		if len(pending) == 0 {
			now := m.now()
			stamp := models.ServerTime(row, now)
			local.MarkSynced(&stamp, now)
		} else if row.Has("deleted_at") && !sameTime(prev.DeletedAt, local.DeletedAt) {
			if err := rewriteDeletedAt(ctx, r, pending, local.DeletedAt); err != nil {
				return err
			}
		}
		if err := r.Notes.Upsert(ctx, local); err != nil {
			return err
		}
		after = local
		return nil
	})
	if err != nil {
		return err
	}
	if inserted {
		return m.OnRemoteInsert(ctx, row)
	}
	if after == nil {
		return nil
	}

	m.track(ctx, before, after)
	return nil
}

// ownFadeWins reports whether a queued soft delete or restore of the note
// must be kept over the deleted_at carried by a row stamped serverAt. Only
// a row written after the last server state seen and after the queued
// change was made can override it.
func ownFadeWins(pending []models.SyncQueueEntry, local *models.Note, serverAt *time.Time) bool {
	var issued *time.Time
	for _, e := range pending {
		if e.Operation != models.OpUpdate && e.Operation != models.OpCreate {
			continue
		}
		p, err := e.Unwrap()
		if err != nil {
			continue
		}
		if np, ok := p.(models.NotePayload); ok && np.FadeChanged {
			at := e.CreatedAt
			issued = &at
		}
	}
	if issued == nil {
		return false
	}
	if serverAt == nil {
		return true
	}
	if local.ServerUpdatedAt != nil && !serverAt.After(*local.ServerUpdatedAt) {
		return true
	}
	return serverAt.Before(*issued)
}

// track moves the note between the working sets after an update.
func (m *Merger) track(ctx context.Context, before, after *models.Note) {
	var navigateAway string

	m.mu.Lock()
	switch {
	case !before.Faded() && after.Faded():
		delete(m.active, after.ID)
		m.faded[after.ID] = after
		m.fadedCount++
		if m.openID == after.ID {
			m.openID = ""
			navigateAway = after.ID
		}
	case before.Faded() && !after.Faded():
		delete(m.faded, after.ID)
		if _, ok := m.active[after.ID]; !ok && m.fadedCount > 0 {
			m.fadedCount--
		}
		m.active[after.ID] = after
	case after.Faded():
		m.faded[after.ID] = after
	default:
		m.active[after.ID] = after
	}
	m.mu.Unlock()

	if navigateAway != "" {
		m.log.Info(ctx, "open note was deleted elsewhere", "id", navigateAway)
		if m.opts.OnNavigateAway != nil {
			m.opts.OnNavigateAway(navigateAway)
		}
	}
}

// OnRemoteDelete drops a note deleted permanently elsewhere, together with
// its associations and any queued local edits of it.
func (m *Merger) OnRemoteDelete(ctx context.Context, id string) error {
	err := m.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if _, err := r.Queue.DeleteByEntity(ctx, models.EntityNote, id); err != nil {
			return err
		}
		if _, err := r.Queue.DeleteNoteTagsOf(ctx, models.EntityNote, id); err != nil {
			return err
		}
		return r.Delete(ctx, models.EntityNote, id)
	})
	if err != nil {
		return err
	}

	var navigateAway bool
	m.mu.Lock()
	delete(m.active, id)
	if _, ok := m.faded[id]; ok {
		delete(m.faded, id)
		if m.fadedCount > 0 {
			m.fadedCount--
		}
	}
	if m.openID == id {
		m.openID = ""
		navigateAway = true
	}
	m.mu.Unlock()

	if navigateAway && m.opts.OnNavigateAway != nil {
		m.opts.OnNavigateAway(id)
	}
	return nil
}

// mergeNoteRow copies the columns present in row into n. content and fade
// select the content columns and deleted_at.
func mergeNoteRow(n *models.Note, row remote.Row, content, fade bool) error {
	if fade && row.Has("deleted_at") {
		t, err := row.TimePtr("deleted_at")
		if err != nil {
			return err
		}
		n.DeletedAt = t
	}
	if !content {
		return nil
	}
	if row.Has("title") {
		n.Title = row.String("title")
	}
	if row.Has("content") {
		n.Content = row.String("content")
	}
	if row.Has("pinned") {
		n.Pinned = row.Bool("pinned")
	}
	return nil
}

func rewriteDeletedAt(ctx context.Context, r localstore.Repositories, pending []models.SyncQueueEntry, deletedAt *time.Time) error {
	for _, e := range pending {
		if e.Operation != models.OpUpdate && e.Operation != models.OpCreate {
			continue
		}
		p, err := e.Unwrap()
		if err != nil {
			return err
		}
		np, ok := p.(models.NotePayload)
		if !ok {
			continue
		}
		np.DeletedAt = deletedAt
		np.FadeChanged = false
		raw, err := models.WrapPayload(np)
		if err != nil {
			return err
		}
		if err := r.Queue.UpdatePayload(ctx, e.ClientMutationID, raw); err != nil {
			return err
		}
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
