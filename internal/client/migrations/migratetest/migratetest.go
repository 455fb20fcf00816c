// Package migratetest opens throwaway migrated local stores for tests.
package migratetest

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/anbuneel/zenote-sub001/internal/client/migrations"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Open returns an in-memory database, private to tb, with every migration
// applied. It is closed when the test ends.
func Open(tb testing.TB) *sql.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(tb, err)
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })
	require.NoError(tb, migrations.Up(context.Background(), db))
	return db
}
