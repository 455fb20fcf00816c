// Package notetags persists the many-to-many association between notes and
// tags. Associations are removed together with either endpoint.
package notetags

import (
	"context"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context, noteID, tagID string) (*models.NoteTag, error)
	// Add is a no-op when the association already exists.
	Add(ctx context.Context, a *models.NoteTag) error
	Remove(ctx context.Context, noteID, tagID string) error
	ListAll(ctx context.Context) ([]models.NoteTag, error)
	ListByNote(ctx context.Context, noteID string) ([]models.NoteTag, error)
	DeleteByNote(ctx context.Context, noteID string) (int64, error)
	DeleteByTag(ctx context.Context, tagID string) (int64, error)
	TagsForNote(ctx context.Context, noteID string) ([]models.Tag, error)
	TagsByNote(ctx context.Context) (map[string][]models.Tag, error)
}
