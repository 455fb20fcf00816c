package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

const noteCols = `id, user_id, title, content, pinned, deleted_at, created_at,
	sync_status, local_updated_at, server_updated_at, last_synced_at`

type SQLiteRepository struct {
	db     dbx.DBTX
	userID string
}

func NewSQLiteRepository(db dbx.DBTX, userID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, userID: userID}
}

func scanNote(s dbx.Scanner) (models.Note, error) {
	var (
		n                                  models.Note
		pinned                             int
		createdAt, localUpdatedAt          int64
		deletedAt, serverUpdated, syncedAt sql.NullInt64
		status                             string
	)
	err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &pinned, &deletedAt, &createdAt,
		&status, &localUpdatedAt, &serverUpdated, &syncedAt)
	if err != nil {
		return n, err
	}
	n.Pinned = pinned != 0
	n.DeletedAt = dbx.FromNullMillis(deletedAt)
	n.CreatedAt = dbx.FromMillis(createdAt)
	n.SyncStatus = models.SyncStatus(status)
	n.LocalUpdatedAt = dbx.FromMillis(localUpdatedAt)
	n.ServerUpdatedAt = dbx.FromNullMillis(serverUpdated)
	n.LastSyncedAt = dbx.FromNullMillis(syncedAt)
	return n, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteCols+` FROM notes WHERE id = ? AND user_id = ?`, id, r.userID)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return &n, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.Note, error) {
	query := `SELECT ` + noteCols + ` FROM notes WHERE user_id = ?` + where
	rows, err := r.db.QueryContext(ctx, query, append([]any{r.userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	result := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return result, nil
}

// ListActive returns notes that are not soft-deleted, pinned first, then
// most recently edited first.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Note, error) {
	return r.list(ctx, ` AND deleted_at IS NULL ORDER BY pinned DESC, local_updated_at DESC, id`)
}

// ListFaded returns soft-deleted notes, most recently deleted first.
func (r *SQLiteRepository) ListFaded(ctx context.Context) ([]models.Note, error) {
	return r.list(ctx, ` AND deleted_at IS NOT NULL ORDER BY deleted_at DESC, id`)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Note, error) {
	return r.list(ctx, ` ORDER BY created_at, id`)
}

func (r *SQLiteRepository) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]models.Note, error) {
	return r.list(ctx, ` AND deleted_at IS NOT NULL AND deleted_at < ? ORDER BY deleted_at, id`, dbx.Millis(cutoff))
}

func (r *SQLiteRepository) CountFaded(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE user_id = ? AND deleted_at IS NOT NULL`, r.userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count faded notes: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, n *models.Note) error {
	if n.UserID != r.userID {
		return common.ErrUserMismatch
	}
	status := n.SyncStatus
	if status == "" {
		status = models.StatusPending
	}
	pinned := 0
	if n.Pinned {
		pinned = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (`+noteCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			pinned = excluded.pinned,
			deleted_at = excluded.deleted_at,
			sync_status = excluded.sync_status,
			local_updated_at = excluded.local_updated_at,
			server_updated_at = excluded.server_updated_at,
			last_synced_at = excluded.last_synced_at
		WHERE notes.user_id = excluded.user_id`,
		n.ID, n.UserID, n.Title, n.Content, pinned, dbx.NullMillis(n.DeletedAt), dbx.Millis(n.CreatedAt),
		string(status), dbx.Millis(n.LocalUpdatedAt), dbx.NullMillis(n.ServerUpdatedAt), dbx.NullMillis(n.LastSyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateSyncMeta(ctx context.Context, id string, m models.SyncMeta) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes SET sync_status = ?, server_updated_at = ?, last_synced_at = ?
		WHERE id = ? AND user_id = ?`,
		string(m.SyncStatus), dbx.NullMillis(m.ServerUpdatedAt), dbx.NullMillis(m.LastSyncedAt), id, r.userID)
	if err != nil {
		return fmt.Errorf("failed to update sync state of note %s: %w", id, err)
	}
	return dbx.ExpectAffected(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, r.userID)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return dbx.ExpectAffected(res)
}
