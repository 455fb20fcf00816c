package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

// Cols is the column list ScanTag expects.
const Cols = `id, user_id, name, color, created_at, sync_status, local_updated_at, server_updated_at, last_synced_at`

type SQLiteRepository struct {
	db     dbx.DBTX
	userID string
}

func NewSQLiteRepository(db dbx.DBTX, userID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, userID: userID}
}

// ScanTag reads one row selected with Cols.
func ScanTag(s dbx.Scanner) (models.Tag, error) {
	var (
		t                       models.Tag
		color, status           string
		createdAt, localUpdated int64
		serverUpdated, syncedAt sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Name, &color, &createdAt, &status, &localUpdated, &serverUpdated, &syncedAt); err != nil {
		return t, err
	}
	t.Color = models.TagColor(color)
	t.CreatedAt = dbx.FromMillis(createdAt)
	t.SyncStatus = models.SyncStatus(status)
	t.LocalUpdatedAt = dbx.FromMillis(localUpdated)
	t.ServerUpdatedAt = dbx.FromNullMillis(serverUpdated)
	t.LastSyncedAt = dbx.FromNullMillis(syncedAt)
	return t, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, where string, arg any) (*models.Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+Cols+` FROM tags WHERE user_id = ? AND `+where, r.userID, arg)
	t, err := ScanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Tag, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.getOne(ctx, `name = ?`, name)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+Cols+` FROM tags WHERE user_id = ? ORDER BY name, id`, r.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer rows.Close()

	result := []models.Tag{}
	for rows.Next() {
		t, err := ScanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.Tag) error {
	if t.UserID != r.userID {
		return common.ErrUserMismatch
	}
	status := t.SyncStatus
	if status == "" {
		status = models.StatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (`+Cols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			sync_status = excluded.sync_status,
			local_updated_at = excluded.local_updated_at,
			server_updated_at = excluded.server_updated_at,
			last_synced_at = excluded.last_synced_at
		WHERE tags.user_id = excluded.user_id`,
		t.ID, t.UserID, t.Name, string(t.Color), dbx.Millis(t.CreatedAt), string(status),
		dbx.Millis(t.LocalUpdatedAt), dbx.NullMillis(t.ServerUpdatedAt), dbx.NullMillis(t.LastSyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert tag %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateSyncMeta(ctx context.Context, id string, m models.SyncMeta) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tags SET sync_status = ?, server_updated_at = ?, last_synced_at = ?
		WHERE id = ? AND user_id = ?`,
		string(m.SyncStatus), dbx.NullMillis(m.ServerUpdatedAt), dbx.NullMillis(m.LastSyncedAt), id, r.userID)
	if err != nil {
		return fmt.Errorf("failed to update sync state of tag %s: %w", id, err)
	}
	return dbx.ExpectAffected(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, r.userID)
	if err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", id, err)
	}
	return dbx.ExpectAffected(res)
}
