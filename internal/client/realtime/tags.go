package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/remote"
)

func (m *Merger) applyTag(ctx context.Context, ev remote.ChangeEvent) error {
	id := ev.Row.ID()
	if ev.Event == remote.EventDelete {
		err := m.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
			if _, err := r.Queue.DeleteByEntity(ctx, models.EntityTag, id); err != nil {
				return err
			}
			if _, err := r.Queue.DeleteNoteTagsOf(ctx, models.EntityTag, id); err != nil {
				return err
			}
			return r.Delete(ctx, models.EntityTag, id)
		})
		if err != nil {
			return err
		}
		m.forEachNote(func(n *models.Note) { n.Tags = withoutTag(n.Tags, id) })
		return nil
	}
	if ev.Event != remote.EventInsert && ev.Event != remote.EventUpdate {
		return fmt.Errorf("unknown event %q", ev.Event)
	}

	var merged *models.Tag
	err := m.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		local, err := r.Tags.Get(ctx, id)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			t, err := models.TagFromRow(ev.Row)
			if err != nil {
				return err
			}
			t.UserID = r.UserID
			now := m.now()
			t.LocalUpdatedAt = models.ServerTime(ev.Row, now)
			t.MarkSynced(t.ServerUpdatedAt, now)
			merged = t
			return r.Tags.Upsert(ctx, t)
		case err != nil:
			return err
		case ev.Event == remote.EventInsert:
			return nil
		}

		pending, err := r.Queue.ListByEntity(ctx, models.EntityTag, id)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return nil
		}
		if ev.Row.Has("name") {
			local.Name = ev.Row.String("name")
		}
		if ev.Row.Has("color") {
			local.Color = models.TagColor(ev.Row.String("color"))
		}
		now := m.now()
		serverAt := models.ServerTime(ev.Row, now)
		local.MarkSynced(&serverAt, now)
		merged = local
		return r.Tags.Upsert(ctx, local)
	})
	if err != nil || merged == nil {
		return err
	}

	m.forEachNote(func(n *models.Note) {
		for i := range n.Tags {
			if n.Tags[i].ID == merged.ID {
				n.Tags[i] = *merged
			}
		}
	})
	return nil
}

func (m *Merger) applyNoteTag(ctx context.Context, ev remote.ChangeEvent) error {
	a, err := models.NoteTagFromRow(ev.Row)
	if err != nil {
		return err
	}
	a.UserID = m.store.UserID()
	r := m.store.Repos()

	switch ev.Event {
	case remote.EventInsert:
		if _, err := r.NoteTags.Get(ctx, a.NoteID, a.TagID); err == nil {
			return nil
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = m.now()
		}
		if err := r.NoteTags.Add(ctx, a); err != nil {
			return err
		}
		tag, err := r.Tags.Get(ctx, a.TagID)
		if errors.Is(err, common.ErrorNotFound) {
			// The tag event has not arrived yet; Load will pick it up.
			return nil
		}
		if err != nil {
			return err
		}
		m.withNote(a.NoteID, func(n *models.Note) {
			if !n.HasTag(tag.ID) {
				n.Tags = append(n.Tags, *tag)
			}
		})
		return nil
	case remote.EventDelete:
		err := r.Delete(ctx, models.EntityNoteTag, a.EntityID())
		if err != nil {
			return err
		}
		if _, err := r.Queue.DeleteByEntity(ctx, models.EntityNoteTag, a.EntityID()); err != nil {
			return err
		}
		m.withNote(a.NoteID, func(n *models.Note) { n.Tags = withoutTag(n.Tags, a.TagID) })
		return nil
	case remote.EventUpdate:
		return nil
	}
	return fmt.Errorf("unknown event %q", ev.Event)
}

func (m *Merger) forEachNote(fn func(n *models.Note)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.active {
		fn(n)
	}
	for _, n := range m.faded {
		fn(n)
	}
}

func (m *Merger) withNote(id string, fn func(n *models.Note)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.active[id]; ok {
		fn(n)
	}
	if n, ok := m.faded[id]; ok {
		fn(n)
	}
}

func withoutTag(tags []models.Tag, tagID string) []models.Tag {
	out := tags[:0]
	for _, t := range tags {
		if t.ID != tagID {
			out = append(out, t)
		}
	}
	return out
}
