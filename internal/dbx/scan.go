package dbx

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
)

// Scanner is implemented by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ExpectAffected returns common.ErrorNotFound when the statement touched no
// rows.
func ExpectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Millis encodes t as UTC unix milliseconds, the time format of the local
// SQLite schema.
func Millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// NullMillis encodes an optional instant.
func NullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: Millis(*t), Valid: true}
}

// FromMillis decodes a value written by Millis.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FromNullMillis decodes a value written by NullMillis.
func FromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := FromMillis(v.Int64)
	return &t
}
