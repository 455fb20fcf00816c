package syncer

import (
	"context"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/remote"
)

// rowWriter is implemented by every payload variant.
type rowWriter interface {
	models.Payload
	Row(id string) remote.Row
}

// apply sends one queue entry to the remote store. Every combination of
// entity type and operation is handled here; anything else is rejected as
// invalid and never retried.
func (s *Syncer) apply(ctx context.Context, e models.SyncQueueEntry) (remote.Row, error) {
	table, err := e.EntityType.Table()
	if err != nil {
		return nil, &common.ValidationError{Field: "entity type", Reason: string(e.EntityType), Err: err}
	}

	if e.Operation == models.OpDelete {
		if err := s.remote.Delete(ctx, table, e.EntityID, e.ClientMutationID); err != nil {
			return nil, err
		}
		return remote.Row{"id": e.EntityID}, nil
	}

	payload, err := e.Unwrap()
	if err != nil {
		return nil, &common.ValidationError{Field: "payload", Reason: "undecodable", Err: err}
	}
	w, ok := payload.(rowWriter)
	if !ok {
		return nil, &common.ValidationError{Field: "payload", Reason: fmt.Sprintf("%T has no row form", payload)}
	}
	row := w.Row(e.EntityID)

	switch {
	case e.Operation == models.OpCreate:
		rows, err := s.remote.Insert(ctx, table, []remote.Row{row}, e.ClientMutationID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return row, nil
		}
		return rows[0], nil
	case e.Operation == models.OpUpdate && e.EntityType != models.EntityNoteTag:
		delete(row, "id")
		delete(row, "created_at")
		return s.remote.Update(ctx, table, e.EntityID, row, e.ClientMutationID)
	}
	return nil, &common.ValidationError{
		Field:  "operation",
		Reason: fmt.Sprintf("%s is not supported for %s", e.Operation, e.EntityType),
	}
}
