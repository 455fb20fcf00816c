// Package notes persists notes in the local SQLite store. Tag associations
// are not touched here; see package notetags.
package notes

import (
	"context"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Note, error)
	ListActive(ctx context.Context) ([]models.Note, error)
	ListFaded(ctx context.Context) ([]models.Note, error)
	ListAll(ctx context.Context) ([]models.Note, error)
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]models.Note, error)
	CountFaded(ctx context.Context) (int, error)
	Upsert(ctx context.Context, n *models.Note) error
	UpdateSyncMeta(ctx context.Context, id string, m models.SyncMeta) error
	Delete(ctx context.Context, id string) error
}
