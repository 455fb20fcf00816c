package notetags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/tags"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

type SQLiteRepository struct {
	db     dbx.DBTX
	userID string
}

func NewSQLiteRepository(db dbx.DBTX, userID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, userID: userID}
}

func scanNoteTag(s dbx.Scanner) (models.NoteTag, error) {
	var (
		a         models.NoteTag
		createdAt int64
	)
	if err := s.Scan(&a.NoteID, &a.TagID, &a.UserID, &createdAt); err != nil {
		return a, err
	}
	a.CreatedAt = dbx.FromMillis(createdAt)
	return a, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, noteID, tagID string) (*models.NoteTag, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT note_id, tag_id, user_id, created_at FROM note_tags
		WHERE note_id = ? AND tag_id = ? AND user_id = ?`, noteID, tagID, r.userID)
	a, err := scanNoteTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note tag: %w", err)
	}
	return &a, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, a *models.NoteTag) error {
	if a.UserID != r.userID {
		return common.ErrUserMismatch
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO note_tags (note_id, tag_id, user_id, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (note_id, tag_id) DO NOTHING`,
		a.NoteID, a.TagID, a.UserID, dbx.Millis(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add note tag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, noteID, tagID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM note_tags WHERE note_id = ? AND tag_id = ? AND user_id = ?`, noteID, tagID, r.userID)
	if err != nil {
		return fmt.Errorf("failed to remove note tag: %w", err)
	}
	return dbx.ExpectAffected(res)
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.NoteTag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT note_id, tag_id, user_id, created_at FROM note_tags WHERE user_id = ?`+where+` ORDER BY created_at, note_id, tag_id`,
		append([]any{r.userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select note tags: %w", err)
	}
	defer rows.Close()

	result := []models.NoteTag{}
	for rows.Next() {
		a, err := scanNoteTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note tag: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.NoteTag, error) {
	return r.list(ctx, "")
}

func (r *SQLiteRepository) ListByNote(ctx context.Context, noteID string) ([]models.NoteTag, error) {
	return r.list(ctx, ` AND note_id = ?`, noteID)
}

func (r *SQLiteRepository) DeleteByNote(ctx context.Context, noteID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ? AND user_id = ?`, noteID, r.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tags of note %s: %w", noteID, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteByTag(ctx context.Context, tagID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM note_tags WHERE tag_id = ? AND user_id = ?`, tagID, r.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete associations of tag %s: %w", tagID, err)
	}
	return res.RowsAffected()
}

const tagJoin = `SELECT nt.note_id, t.id, t.user_id, t.name, t.color, t.created_at, t.sync_status,
		t.local_updated_at, t.server_updated_at, t.last_synced_at
	FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
	WHERE nt.user_id = ?`

func (r *SQLiteRepository) TagsForNote(ctx context.Context, noteID string) ([]models.Tag, error) {
	m, err := r.tagsBy(ctx, ` AND nt.note_id = ?`, noteID)
	if err != nil {
		return nil, err
	}
	if m[noteID] == nil {
		return []models.Tag{}, nil
	}
	return m[noteID], nil
}

func (r *SQLiteRepository) TagsByNote(ctx context.Context) (map[string][]models.Tag, error) {
	return r.tagsBy(ctx, "")
}

func (r *SQLiteRepository) tagsBy(ctx context.Context, where string, args ...any) (map[string][]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, tagJoin+where+` ORDER BY t.name, t.id`, append([]any{r.userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags of notes: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.Tag)
	for rows.Next() {
		var noteID string
		t, err := tags.ScanTag(prefixScanner{rows: rows, first: &noteID})
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag of note: %w", err)
		}
		result[noteID] = append(result[noteID], t)
	}
	return result, rows.Err()
}

// prefixScanner lets tags.ScanTag read rows that carry one extra leading
// column.
type prefixScanner struct {
	rows  *sql.Rows
	first any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.first}, dest...)...)
}
