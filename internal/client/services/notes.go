// Package services contains the optimistic write path of the client: every
// intent is validated, applied to the local store and queued for the remote
// store in one transaction, so the UI sees it immediately and the syncer
// replays it later.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/queue"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/google/uuid"
)

// NoteService defines the note operations available to the UI.
//
// Contract:
//   - Create/Update/SetPinned/SoftDelete/Restore write locally and queue an
//     update of the full mutable field set (a create for new notes).
//   - PermanentDelete removes the note, its associations and share link
//     locally and queues a delete.
//   - AddTag/RemoveTag manage associations; both endpoints must exist.
//   - Invalid input yields *common.ValidationError and writes nothing.
//
// Returned notes carry their tags.
type NoteService interface {
	Create(ctx context.Context, title, content string) (*models.Note, error)
	Update(ctx context.Context, id, title, content string) (*models.Note, error)
	SetPinned(ctx context.Context, id string, pinned bool) (*models.Note, error)
	SoftDelete(ctx context.Context, id string) (*models.Note, error)
	Restore(ctx context.Context, id string) (*models.Note, error)
	PermanentDelete(ctx context.Context, id string) error
	AddTag(ctx context.Context, noteID, tagID string) error
	RemoveTag(ctx context.Context, noteID, tagID string) error
	Get(ctx context.Context, id string) (*models.Note, error)
	ListActive(ctx context.Context) ([]models.Note, error)
	ListFaded(ctx context.Context) ([]models.Note, error)
	FadedCount(ctx context.Context) (int, error)
}

type noteService struct {
	store *localstore.Store
	queue *queue.Queue
	log   logging.Logger
	now   func() time.Time
	newID func() string
}

func NewNoteService(store *localstore.Store, q *queue.Queue, log logging.Logger) NoteService {
	if log == nil {
		log = logging.Nop()
	}
	return &noteService{
		store: store,
		queue: q,
		log:   log.With("module", "notes"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *noteService) Create(ctx context.Context, title, content string) (*models.Note, error) {
	if err := validateNote(title, content); err != nil {
		return nil, err
	}
	now := s.now()
	n := &models.Note{
		ID:        s.newID(),
		UserID:    s.store.UserID(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		Tags:      []models.Tag{},
	}
	n.Touch(now)

	err := s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if err := r.Notes.Upsert(ctx, n); err != nil {
			return err
		}
		_, err := s.queue.EnqueueTx(ctx, r, n.UserID, models.OpCreate, models.EntityNote, n.ID, n.Payload())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.log.Debug(ctx, "note created", "id", n.ID)
	return n, nil
}

// mutate loads the note, applies fn and queues the resulting snapshot as
// an update.
func (s *noteService) mutate(ctx context.Context, id string, fn func(n *models.Note) error) (*models.Note, error) {
	var out *models.Note
	err := s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		e, err := r.Get(ctx, models.EntityNote, id)
		if err != nil {
			return err
		}
		n := e.(*models.Note)
		wasFaded := n.Faded()
		if err := fn(n); err != nil {
			return err
		}
		n.Touch(s.now())
		if err := r.Notes.Upsert(ctx, n); err != nil {
			return err
		}
		p := n.Payload()
		p.FadeChanged = n.Faded() != wasFaded
		if _, err := s.queue.EnqueueTx(ctx, r, n.UserID, models.OpUpdate, models.EntityNote, n.ID, p); err != nil {
			return err
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *noteService) Update(ctx context.Context, id, title, content string) (*models.Note, error) {
	if err := validateNote(title, content); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(n *models.Note) error {
		n.Title = title
		n.Content = content
		return nil
	})
}

func (s *noteService) SetPinned(ctx context.Context, id string, pinned bool) (*models.Note, error) {
	return s.mutate(ctx, id, func(n *models.Note) error {
		n.Pinned = pinned
		return nil
	})
}

// SoftDelete moves the note to the faded list. Deleting a faded note again
// keeps its original deletion time.
func (s *noteService) SoftDelete(ctx context.Context, id string) (*models.Note, error) {
	return s.mutate(ctx, id, func(n *models.Note) error {
		if n.DeletedAt == nil {
			now := s.now()
			n.DeletedAt = &now
		}
		return nil
	})
}

func (s *noteService) Restore(ctx context.Context, id string) (*models.Note, error) {
	return s.mutate(ctx, id, func(n *models.Note) error {
		n.DeletedAt = nil
		return nil
	})
}

func (s *noteService) PermanentDelete(ctx context.Context, id string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if _, err := r.Notes.Get(ctx, id); err != nil {
			return err
		}
		// The remote store removes associations with the note.
		if _, err := r.Queue.DeleteNoteTagsOf(ctx, models.EntityNote, id); err != nil {
			return err
		}
		if err := r.Delete(ctx, models.EntityNote, id); err != nil {
			return err
		}
		_, err := s.queue.EnqueueTx(ctx, r, r.UserID, models.OpDelete, models.EntityNote, id, nil)
		return err
	})
}

func (s *noteService) AddTag(ctx context.Context, noteID, tagID string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if _, err := r.Notes.Get(ctx, noteID); err != nil {
			return fmt.Errorf("note %s: %w", noteID, err)
		}
		if _, err := r.Tags.Get(ctx, tagID); err != nil {
			return fmt.Errorf("tag %s: %w", tagID, err)
		}
		_, err := r.NoteTags.Get(ctx, noteID, tagID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		a := &models.NoteTag{NoteID: noteID, TagID: tagID, UserID: r.UserID, CreatedAt: s.now()}
		if err := r.NoteTags.Add(ctx, a); err != nil {
			return err
		}
		_, err = s.queue.EnqueueTx(ctx, r, r.UserID, models.OpCreate, models.EntityNoteTag, a.EntityID(), a.Payload())
		return err
	})
}

func (s *noteService) RemoveTag(ctx context.Context, noteID, tagID string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if err := r.NoteTags.Remove(ctx, noteID, tagID); err != nil {
			return err
		}
		_, err := s.queue.EnqueueTx(ctx, r, r.UserID, models.OpDelete, models.EntityNoteTag, models.NoteTagID(noteID, tagID), nil)
		return err
	})
}

func (s *noteService) Get(ctx context.Context, id string) (*models.Note, error) {
	e, err := s.store.Get(ctx, models.EntityNote, id)
	if err != nil {
		return nil, err
	}
	return e.(*models.Note), nil
}

func (s *noteService) withTags(ctx context.Context, list []models.Note) ([]models.Note, error) {
	byNote, err := s.store.Repos().NoteTags.TagsByNote(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Tags = byNote[list[i].ID]
		if list[i].Tags == nil {
			list[i].Tags = []models.Tag{}
		}
	}
	return list, nil
}

func (s *noteService) ListActive(ctx context.Context) ([]models.Note, error) {
	list, err := s.store.Repos().Notes.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, list)
}

func (s *noteService) ListFaded(ctx context.Context) ([]models.Note, error) {
	list, err := s.store.Repos().Notes.ListFaded(ctx)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, list)
}

func (s *noteService) FadedCount(ctx context.Context) (int, error) {
	return s.store.Repos().Notes.CountFaded(ctx)
}
