package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/metadata"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/notes"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/notetags"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/shares"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/syncqueue"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/tags"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

// Repositories gives typed access to every table, bound either to the
// database or to one transaction.
type Repositories struct {
	UserID string

	Notes    notes.Repository
	Tags     tags.Repository
	NoteTags notetags.Repository
	Queue    syncqueue.Repository
	Shares   shares.Repository
	Metadata metadata.Repository
}

func newRepositories(db dbx.DBTX, userID string) Repositories {
	return Repositories{
		UserID:   userID,
		Notes:    notes.NewSQLiteRepository(db, userID),
		Tags:     tags.NewSQLiteRepository(db, userID),
		NoteTags: notetags.NewSQLiteRepository(db, userID),
		Queue:    syncqueue.NewSQLiteRepository(db, userID),
		Shares:   shares.NewSQLiteRepository(db, userID),
		Metadata: metadata.NewSQLiteRepository(db),
	}
}

// Get loads one entity. Notes come with their tags.
func (r Repositories) Get(ctx context.Context, kind models.EntityType, id string) (models.Entity, error) {
	switch kind {
	case models.EntityNote:
		n, err := r.Notes.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if n.Tags, err = r.NoteTags.TagsForNote(ctx, id); err != nil {
			return nil, err
		}
		return n, nil
	case models.EntityTag:
		return r.Tags.Get(ctx, id)
	case models.EntityNoteTag:
		noteID, tagID, ok := models.SplitNoteTagID(id)
		if !ok {
			return nil, common.ErrorNotFound
		}
		return r.NoteTags.Get(ctx, noteID, tagID)
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, kind)
}

// List loads every entity of kind owned by the user.
func (r Repositories) List(ctx context.Context, kind models.EntityType) ([]models.Entity, error) {
	var result []models.Entity
	switch kind {
	case models.EntityNote:
		list, err := r.Notes.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		byNote, err := r.NoteTags.TagsByNote(ctx)
		if err != nil {
			return nil, err
		}
		for i := range list {
			list[i].Tags = byNote[list[i].ID]
			result = append(result, &list[i])
		}
	case models.EntityTag:
		list, err := r.Tags.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range list {
			result = append(result, &list[i])
		}
	case models.EntityNoteTag:
		list, err := r.NoteTags.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		for i := range list {
			result = append(result, &list[i])
		}
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, kind)
	}
	return result, nil
}

// Put inserts or replaces e. A note's Tags field is ignored; associations
// are written as *models.NoteTag.
func (r Repositories) Put(ctx context.Context, e models.Entity) error {
	if e.OwnerID() != r.UserID {
		return common.ErrUserMismatch
	}
	switch v := e.(type) {
	case *models.Note:
		return r.Notes.Upsert(ctx, v)
	case *models.Tag:
		return r.Tags.Upsert(ctx, v)
	case *models.NoteTag:
		return r.NoteTags.Add(ctx, v)
	}
	return fmt.Errorf("%w: %T", models.ErrUnknownEntityType, e)
}

// Delete removes an entity permanently together with the rows that only
// exist because of it. Deleting a missing entity is not an error.
func (r Repositories) Delete(ctx context.Context, kind models.EntityType, id string) error {
	var err error
	switch kind {
	case models.EntityNote:
		if _, err = r.NoteTags.DeleteByNote(ctx, id); err != nil {
			return err
		}
		if err = r.Shares.DeleteByNote(ctx, id); err != nil {
			return err
		}
		err = r.Notes.Delete(ctx, id)
	case models.EntityTag:
		if _, err = r.NoteTags.DeleteByTag(ctx, id); err != nil {
			return err
		}
		err = r.Tags.Delete(ctx, id)
	case models.EntityNoteTag:
		noteID, tagID, ok := models.SplitNoteTagID(id)
		if !ok {
			return nil
		}
		err = r.NoteTags.Remove(ctx, noteID, tagID)
	default:
		return fmt.Errorf("%w: %q", models.ErrUnknownEntityType, kind)
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

// SyncStatus reports whether the latest local write of an entity has been
// confirmed. Associations carry no status of their own: they are pending
// while the queue holds a mutation for them.
func (r Repositories) SyncStatus(ctx context.Context, kind models.EntityType, id string) (models.SyncStatus, error) {
	if kind == models.EntityNoteTag {
		pending, err := r.Queue.ListByEntity(ctx, kind, id)
		if err != nil {
			return "", err
		}
		for _, e := range pending {
			if e.RetryCount > 0 {
				return models.StatusError, nil
			}
		}
		if len(pending) > 0 {
			return models.StatusPending, nil
		}
		return models.StatusSynced, nil
	}

	e, err := r.Get(ctx, kind, id)
	if err != nil {
		return "", err
	}
	s, ok := e.(models.Synced)
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownEntityType, kind)
	}
	return s.Meta().SyncStatus, nil
}
