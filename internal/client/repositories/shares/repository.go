// Package shares caches, in the local store, the share links the user has
// issued so they can be shown offline.
package shares

import (
	"context"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, s *models.NoteShare) error
	GetByNote(ctx context.Context, noteID string) (*models.NoteShare, error)
	List(ctx context.Context) ([]models.NoteShare, error)
	DeleteByNote(ctx context.Context, noteID string) error
}
