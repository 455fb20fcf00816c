// Package syncqueue persists the outbox of mutations waiting to be replayed
// against the remote store.
package syncqueue

import (
	"context"
	"encoding/json"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
)

type Repository interface {
	// Insert stores e and sets e.Seq.
	Insert(ctx context.Context, e *models.SyncQueueEntry) error
	Get(ctx context.Context, clientMutationID string) (*models.SyncQueueEntry, error)
	// ListOrdered returns every entry, oldest first.
	ListOrdered(ctx context.Context) ([]models.SyncQueueEntry, error)
	ListByEntity(ctx context.Context, kind models.EntityType, id string) ([]models.SyncQueueEntry, error)
	Delete(ctx context.Context, clientMutationID string) error
	// DeleteByEntity removes entries of the entity, optionally only those
	// with one of ops.
	DeleteByEntity(ctx context.Context, kind models.EntityType, id string, ops ...models.Operation) (int64, error)
	// DeleteNoteTagsOf removes pending association entries that reference
	// the note or tag with the given id.
	DeleteNoteTagsOf(ctx context.Context, kind models.EntityType, id string) (int64, error)
	MarkFailed(ctx context.Context, clientMutationID, lastError string) error
	UpdatePayload(ctx context.Context, clientMutationID string, payload json.RawMessage) error
	Count(ctx context.Context) (int, error)
}
