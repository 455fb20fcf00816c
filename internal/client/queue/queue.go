// Package queue is the mutation outbox of the client. Every local write
// enqueues the matching remote write; the syncer replays the queue in
// insertion order.
//
// Enqueue compacts as it goes:
//
//   - an update replaces any pending update of the same entity;
//   - a delete of an entity whose create is still pending cancels the
//     entity entirely, including pending associations that reference it;
//   - a create that is being sent, or was attempted before, may already
//     exist remotely, so a delete of its entity is queued like any other;
//   - any other delete drops pending updates of the entity first.
//
// An update of a note that soft-deletes or restores it keeps that mark
// when a later update replaces it.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/google/uuid"
)

type Queue struct {
	store *localstore.Store
	log   logging.Logger
	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(store *localstore.Store, log logging.Logger) *Queue {
	if log == nil {
		log = logging.Nop()
	}
	return &Queue{
		store:    store,
		log:      log.With("module", "queue"),
		now:      time.Now,
		newID:    uuid.NewString,
		inflight: make(map[string]struct{}),
	}
}

// Claim marks an entry as being sent to the remote store. A claimed create
// is never cancelled by a later delete; Release clears the mark.
func (q *Queue) Claim(clientMutationID string) {
	q.mu.Lock()
	q.inflight[clientMutationID] = struct{}{}
	q.mu.Unlock()
}

func (q *Queue) Release(clientMutationID string) {
	q.mu.Lock()
	delete(q.inflight, clientMutationID)
	q.mu.Unlock()
}

func (q *Queue) claimed(clientMutationID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[clientMutationID]
	return ok
}

// Enqueue records a mutation in its own transaction and returns its client
// mutation id, or "" when the mutation cancelled a pending create.
func (q *Queue) Enqueue(ctx context.Context, userID string, op models.Operation, kind models.EntityType, entityID string, payload models.Payload) (string, error) {
	var id string
	err := q.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		var err error
		id, err = q.EnqueueTx(ctx, r, userID, op, kind, entityID, payload)
		return err
	})
	return id, err
}

// EnqueueTx is Enqueue inside a caller's transaction.
func (q *Queue) EnqueueTx(ctx context.Context, r localstore.Repositories, userID string, op models.Operation, kind models.EntityType, entityID string, payload models.Payload) (string, error) {
	if userID != r.UserID {
		return "", common.ErrUserMismatch
	}
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownEntityType, kind)
	}
	if payload != nil && payload.PayloadType() != kind {
		return "", fmt.Errorf("enqueue %s %s: payload is for %s", op, kind, payload.PayloadType())
	}

	switch op {
	case models.OpCreate:
	case models.OpUpdate:
		var err error
		if payload, err = keepFadeChange(ctx, r, kind, entityID, payload); err != nil {
			return "", err
		}
		if _, err := r.Queue.DeleteByEntity(ctx, kind, entityID, models.OpUpdate); err != nil {
			return "", err
		}
	case models.OpDelete:
		cancelled, err := q.cancelPendingCreate(ctx, r, kind, entityID)
		if err != nil || cancelled {
			return "", err
		}
		if _, err := r.Queue.DeleteByEntity(ctx, kind, entityID, models.OpUpdate); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("enqueue: unknown operation %q", op)
	}

	raw, err := models.WrapPayload(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", kind, err)
	}
	e := &models.SyncQueueEntry{
		ClientMutationID: q.newID(),
		UserID:           userID,
		Operation:        op,
		EntityType:       kind,
		EntityID:         entityID,
		Payload:          raw,
		CreatedAt:        q.now(),
	}
	if err := r.Queue.Insert(ctx, e); err != nil {
		return "", err
	}
	q.log.Debug(ctx, "mutation queued", "op", op, "kind", kind, "id", entityID, "seq", e.Seq)
	return e.ClientMutationID, nil
}

// cancelPendingCreate drops every pending mutation of an entity the remote
// store has never seen.
func (q *Queue) cancelPendingCreate(ctx context.Context, r localstore.Repositories, kind models.EntityType, entityID string) (bool, error) {
	pending, err := r.Queue.ListByEntity(ctx, kind, entityID)
	if err != nil {
		return false, err
	}
	var create *models.SyncQueueEntry
	for i := range pending {
		if pending[i].Operation == models.OpCreate {
			create = &pending[i]
			break
		}
	}
	if create == nil {
		return false, nil
	}
	if q.claimed(create.ClientMutationID) || create.RetryCount > 0 {
		q.log.Debug(ctx, "create may have reached the remote store, queueing delete", "kind", kind, "id", entityID)
		return false, nil
	}

	if _, err := r.Queue.DeleteByEntity(ctx, kind, entityID); err != nil {
		return false, err
	}
	if kind != models.EntityNoteTag {
		if _, err := r.Queue.DeleteNoteTagsOf(ctx, kind, entityID); err != nil {
			return false, err
		}
	}
	q.log.Debug(ctx, "pending create cancelled", "kind", kind, "id", entityID)
	return true, nil
}

// keepFadeChange carries the soft-delete mark of the pending update being
// replaced over to payload.
func keepFadeChange(ctx context.Context, r localstore.Repositories, kind models.EntityType, entityID string, payload models.Payload) (models.Payload, error) {
	np, ok := payload.(models.NotePayload)
	if !ok || np.FadeChanged {
		return payload, nil
	}
	pending, err := r.Queue.ListByEntity(ctx, kind, entityID)
	if err != nil {
		return nil, err
	}
	for _, e := range pending {
		if e.Operation != models.OpUpdate {
			continue
		}
		p, err := e.Unwrap()
		if err != nil {
			return nil, err
		}
		if prev, ok := p.(models.NotePayload); ok && prev.FadeChanged {
			np.FadeChanged = true
			return np, nil
		}
	}
	return payload, nil
}

// DrainOrder returns the pending mutations of userID, oldest first.
func (q *Queue) DrainOrder(ctx context.Context, userID string) ([]models.SyncQueueEntry, error) {
	if userID != q.store.UserID() {
		return nil, common.ErrUserMismatch
	}
	return q.store.Repos().Queue.ListOrdered(ctx)
}

func (q *Queue) Remove(ctx context.Context, clientMutationID string) error {
	return q.store.Repos().Queue.Delete(ctx, clientMutationID)
}

// MarkFailed bumps the retry count of an entry and records cause.
func (q *Queue) MarkFailed(ctx context.Context, clientMutationID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return q.store.Repos().Queue.MarkFailed(ctx, clientMutationID, msg)
}

// Pending lists the queued mutations of one entity.
func (q *Queue) Pending(ctx context.Context, kind models.EntityType, entityID string) ([]models.SyncQueueEntry, error) {
	return q.store.Repos().Queue.ListByEntity(ctx, kind, entityID)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.Repos().Queue.Count(ctx)
}
