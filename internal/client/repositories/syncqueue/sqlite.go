package syncqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

const entryCols = `seq, client_mutation_id, user_id, operation, entity_type, entity_id, payload, created_at, retry_count, last_error`

type SQLiteRepository struct {
	db     dbx.DBTX
	userID string
}

func NewSQLiteRepository(db dbx.DBTX, userID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, userID: userID}
}

func scanEntry(s dbx.Scanner) (models.SyncQueueEntry, error) {
	var (
		e         models.SyncQueueEntry
		op, kind  string
		payload   []byte
		createdAt int64
	)
	err := s.Scan(&e.Seq, &e.ClientMutationID, &e.UserID, &op, &kind, &e.EntityID, &payload, &createdAt, &e.RetryCount, &e.LastError)
	if err != nil {
		return e, err
	}
	e.Operation = models.Operation(op)
	e.EntityType = models.EntityType(kind)
	e.Payload = json.RawMessage(payload)
	e.CreatedAt = dbx.FromMillis(createdAt)
	return e, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.SyncQueueEntry) error {
	if e.UserID != r.userID {
		return common.ErrUserMismatch
	}
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (client_mutation_id, user_id, operation, entity_type, entity_id, payload, created_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ClientMutationID, e.UserID, string(e.Operation), string(e.EntityType), e.EntityID,
		string(payload), dbx.Millis(e.CreatedAt), e.RetryCount, e.LastError)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s %s/%s: %w", e.Operation, e.EntityType, e.EntityID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read queue sequence: %w", err)
	}
	e.Seq = seq
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, clientMutationID string) (*models.SyncQueueEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryCols+` FROM sync_queue WHERE client_mutation_id = ? AND user_id = ?`, clientMutationID, r.userID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return &e, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.SyncQueueEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryCols+` FROM sync_queue WHERE user_id = ?`+where+` ORDER BY seq`,
		append([]any{r.userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	result := []models.SyncQueueEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) ListOrdered(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return r.list(ctx, "")
}

func (r *SQLiteRepository) ListByEntity(ctx context.Context, kind models.EntityType, id string) ([]models.SyncQueueEntry, error) {
	return r.list(ctx, ` AND entity_type = ? AND entity_id = ?`, string(kind), id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, clientMutationID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE client_mutation_id = ? AND user_id = ?`, clientMutationID, r.userID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry %s: %w", clientMutationID, err)
	}
	return dbx.ExpectAffected(res)
}

func (r *SQLiteRepository) DeleteByEntity(ctx context.Context, kind models.EntityType, id string, ops ...models.Operation) (int64, error) {
	query := `DELETE FROM sync_queue WHERE user_id = ? AND entity_type = ? AND entity_id = ?`
	args := []any{r.userID, string(kind), id}
	if len(ops) > 0 {
		query += ` AND operation IN (?` + strings.Repeat(`, ?`, len(ops)-1) + `)`
		for _, op := range ops {
			args = append(args, string(op))
		}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to remove queue entries of %s/%s: %w", kind, id, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteNoteTagsOf(ctx context.Context, kind models.EntityType, id string) (int64, error) {
	var cond string
	var key string
	switch kind {
	case models.EntityNote:
		cond = `substr(entity_id, 1, length(?)) = ?`
		key = id + ":"
	case models.EntityTag:
		cond = `substr(entity_id, -length(?)) = ?`
		key = ":" + id
	default:
		return 0, fmt.Errorf("%w: %q has no associations", models.ErrUnknownEntityType, kind)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE user_id = ? AND entity_type = ? AND `+cond,
		r.userID, string(models.EntityNoteTag), key, key)
	if err != nil {
		return 0, fmt.Errorf("failed to remove association entries of %s/%s: %w", kind, id, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, clientMutationID, lastError string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET retry_count = retry_count + 1, last_error = ?
		WHERE client_mutation_id = ? AND user_id = ?`, lastError, clientMutationID, r.userID)
	if err != nil {
		return fmt.Errorf("failed to mark queue entry %s failed: %w", clientMutationID, err)
	}
	return dbx.ExpectAffected(res)
}

func (r *SQLiteRepository) UpdatePayload(ctx context.Context, clientMutationID string, payload json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET payload = ? WHERE client_mutation_id = ? AND user_id = ?`,
		string(payload), clientMutationID, r.userID)
	if err != nil {
		return fmt.Errorf("failed to rewrite queue entry %s: %w", clientMutationID, err)
	}
	return dbx.ExpectAffected(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE user_id = ?`, r.userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return n, nil
}
