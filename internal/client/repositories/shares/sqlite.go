package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

const shareCols = `id, note_id, user_id, share_token, expires_at, created_at`

type SQLiteRepository struct {
	db     dbx.DBTX
	userID string
}

func NewSQLiteRepository(db dbx.DBTX, userID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, userID: userID}
}

func scanShare(s dbx.Scanner) (models.NoteShare, error) {
	var (
		sh        models.NoteShare
		expiresAt sql.NullInt64
		createdAt int64
	)
	if err := s.Scan(&sh.ID, &sh.NoteID, &sh.OwnerUserID, &sh.ShareToken, &expiresAt, &createdAt); err != nil {
		return sh, err
	}
	sh.ExpiresAt = dbx.FromNullMillis(expiresAt)
	sh.CreatedAt = dbx.FromMillis(createdAt)
	return sh, nil
}

// Upsert keeps at most one share per note; a new share for the same note
// replaces the old row.
func (r *SQLiteRepository) Upsert(ctx context.Context, s *models.NoteShare) error {
	if s.OwnerUserID != r.userID {
		return common.ErrUserMismatch
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO note_shares (`+shareCols+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (note_id) DO UPDATE SET
			id = excluded.id,
			share_token = excluded.share_token,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		s.ID, s.NoteID, s.OwnerUserID, s.ShareToken, dbx.NullMillis(s.ExpiresAt), dbx.Millis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to cache share of note %s: %w", s.NoteID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByNote(ctx context.Context, noteID string) (*models.NoteShare, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shareCols+` FROM note_shares WHERE note_id = ? AND user_id = ?`, noteID, r.userID)
	sh, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share of note %s: %w", noteID, err)
	}
	return &sh, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.NoteShare, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shareCols+` FROM note_shares WHERE user_id = ? ORDER BY created_at, id`, r.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	result := []models.NoteShare{}
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		result = append(result, sh)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) DeleteByNote(ctx context.Context, noteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM note_shares WHERE note_id = ? AND user_id = ?`, noteID, r.userID)
	if err != nil {
		return fmt.Errorf("failed to drop share of note %s: %w", noteID, err)
	}
	return nil
}
