// Package tags persists tags in the local SQLite store.
package tags

import (
	"context"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Tag, error)
	// GetByName matches names case-insensitively.
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
	Upsert(ctx context.Context, t *models.Tag) error
	UpdateSyncMeta(ctx context.Context, id string, m models.SyncMeta) error
	Delete(ctx context.Context, id string) error
}
