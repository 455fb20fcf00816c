package remotestore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	stamped = time.Date(2026, 2, 1, 9, 5, 0, 0, time.UTC)
)

const noteCols = `id, user_id, title, content, pinned, deleted_at, created_at, updated_at`

type events struct {
	got []remote.ChangeEvent
	to  []string
}

func (e *events) Publish(userID string, ev remote.ChangeEvent) {
	e.to = append(e.to, userID)
	e.got = append(e.got, ev)
}

func newStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *events) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	pub := &events{}
	s := NewPostgresStore(db, pub, logging.Nop())
	s.now = func() time.Time { return stamped }
	return s, mock, pub
}

func q(s string) string { return regexp.QuoteMeta(s) }

func expectNoLedger(mock sqlmock.Sqlmock, user, mutation string) {
	mock.ExpectQuery(q(`SELECT response FROM applied_mutations WHERE user_id = $1 AND client_mutation_id = $2`)).
		WithArgs(user, mutation).
		WillReturnRows(sqlmock.NewRows([]string{"response"}))
}

func expectRecord(mock sqlmock.Sqlmock, user, mutation string) {
	mock.ExpectExec(q(`INSERT INTO applied_mutations (client_mutation_id, user_id, response, created_at) VALUES ($1, $2, $3, $4)`)).
		WithArgs(mutation, user, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func noteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "title", "content", "pinned", "deleted_at", "created_at", "updated_at"})
}

func TestInsert_AppliesRecordsAndPublishes(t *testing.T) {
	s, mock, pub := newStore(t)

	mock.ExpectBegin()
	expectNoLedger(mock, "u1", "m1")
	mock.ExpectQuery(q(`INSERT INTO notes (content, created_at, deleted_at, id, pinned, title, user_id, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+noteCols)).
		WithArgs("body", sqlmock.AnyArg(), nil, "n1", false, "hello", "u1", sqlmock.AnyArg()).
		WillReturnRows(noteRows().AddRow("n1", "u1", "hello", "body", false, nil, created, stamped))
	expectRecord(mock, "u1", "m1")
	mock.ExpectCommit()

	in := remote.Row{
		"id":         "n1",
		"title":      "hello",
		"content":    "body",
		"pinned":     false,
		"deleted_at": nil,
		"created_at": remote.FormatTime(created),
		"user_id":    "someone-else",
	}
	rows, err := s.ForUser("u1").Insert(context.Background(), remote.TableNotes, []remote.Row{in}, "m1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].String("user_id"))
	assert.Equal(t, remote.FormatTime(stamped), rows[0]["updated_at"])
	assert.Nil(t, rows[0]["deleted_at"])

	require.Len(t, pub.got, 1)
	assert.Equal(t, remote.EventInsert, pub.got[0].Event)
	assert.Equal(t, []string{"u1"}, pub.to)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ReplayReturnsRecordedResponse(t *testing.T) {
	s, mock, pub := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT response FROM applied_mutations`).
		WithArgs("u1", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"response"}).AddRow([]byte(`[{"id":"n1","title":"first"}]`)))
	mock.ExpectCommit()

	rows, err := s.ForUser("u1").Insert(context.Background(), remote.TableNotes, []remote.Row{{"id": "n1", "title": "again"}}, "m1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0].String("title"))
	assert.Empty(t, pub.got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DuplicateIsConflict(t *testing.T) {
	s, mock, _ := newStore(t)

	mock.ExpectBegin()
	expectNoLedger(mock, "u1", "m1")
	mock.ExpectQuery(`INSERT INTO tags`).WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	mock.ExpectRollback()

	_, err := s.ForUser("u1").Insert(context.Background(), remote.TableTags,
		[]remote.Row{{"id": "t1", "name": "x", "color": "ocean"}}, "m1")
	var ce *common.ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 409, ce.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RejectsBadInputWithoutTouchingTheDatabase(t *testing.T) {
	s, mock, _ := newStore(t)
	ctx := context.Background()
	var ce *common.ClientError

	_, err := s.ForUser("u1").Insert(ctx, "folders", []remote.Row{{"id": "f"}}, "m1")
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 400, ce.StatusCode)
	assert.ErrorIs(t, err, remote.ErrUnknownTable)

	mock.ExpectBegin()
	expectNoLedger(mock, "u1", "m2")
	mock.ExpectRollback()
	_, err = s.ForUser("u1").Insert(ctx, remote.TableNotes, []remote.Row{{"id": "n1", "color": "red"}}, "m2")
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 400, ce.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MissingRowIsNotFound(t *testing.T) {
	s, mock, pub := newStore(t)

	mock.ExpectBegin()
	expectNoLedger(mock, "u1", "m1")
	mock.ExpectQuery(q(`UPDATE notes SET deleted_at = $1, title = $2, updated_at = $3 WHERE id = $4 AND user_id = $5 RETURNING `+noteCols)).
		WithArgs(sqlmock.AnyArg(), "t", sqlmock.AnyArg(), "n1", "u1").
		WillReturnRows(noteRows())
	mock.ExpectRollback()

	_, err := s.ForUser("u1").Update(context.Background(), remote.TableNotes, "n1",
		remote.Row{"id": "n1", "title": "t", "deleted_at": remote.FormatTime(created)}, "m1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	var ce *common.ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 404, ce.StatusCode)
	assert.Empty(t, pub.got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Publishes(t *testing.T) {
	s, mock, pub := newStore(t)

	mock.ExpectBegin()
	expectNoLedger(mock, "u1", "m1")
	mock.ExpectQuery(`UPDATE notes SET pinned = \$1, updated_at = \$2 WHERE id = \$3 AND user_id = \$4`).
		WithArgs(true, sqlmock.AnyArg(), "n1", "u1").
		WillReturnRows(noteRows().AddRow("n1", "u1", "t", "c", true, nil, created, stamped))
	expectRecord(mock, "u1", "m1")
	mock.ExpectCommit()

	row, err := s.ForUser("u1").Update(context.Background(), remote.TableNotes, "n1", remote.Row{"pinned": true}, "m1")
	require.NoError(t, err)
	assert.True(t, row.Bool("pinned"))
	require.Len(t, pub.got, 1)
	assert.Equal(t, remote.EventUpdate, pub.got[0].Event)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_MissingRowSucceedsSilently(t *testing.T) {
	s, mock, pub := newStore(t)

	mock.ExpectBegin()
	expectNoLedger(mock, "u1", "m1")
	mock.ExpectQuery(q(`DELETE FROM notes WHERE id = $1 AND user_id = $2 RETURNING user_id`)).
		WithArgs("n1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	expectRecord(mock, "u1", "m1")
	mock.ExpectCommit()

	require.NoError(t, s.ForUser("u1").Delete(context.Background(), remote.TableNotes, "n1", "m1"))
	assert.Empty(t, pub.got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_UnscopedPublishesToOwner(t *testing.T) {
	s, mock, pub := newStore(t)

	mock.ExpectBegin()
	expectNoLedger(mock, "", "m1")
	mock.ExpectQuery(q(`DELETE FROM note_shares WHERE id = $1 RETURNING user_id`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("owner"))
	expectRecord(mock, "", "m1")
	mock.ExpectCommit()

	require.NoError(t, s.Unscoped().Delete(context.Background(), remote.TableShares, "s1", "m1"))
	require.Len(t, pub.got, 1)
	assert.Equal(t, []string{"owner"}, pub.to)
	assert.Equal(t, "s1", pub.got[0].Row.ID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_BuildsFilterAndOrder(t *testing.T) {
	s, mock, _ := newStore(t)

	mock.ExpectQuery(q(`SELECT `+noteCols+` FROM notes WHERE user_id = $1 AND deleted_at < $2 AND pinned = $3 ORDER BY updated_at DESC, id`)).
		WithArgs("u1", sqlmock.AnyArg(), true).
		WillReturnRows(noteRows().
			AddRow("n1", "u1", "a", "", true, created, created, stamped).
			AddRow("n2", "u1", "b", "", true, created, created, stamped))

	rows, err := s.ForUser("u1").Select(context.Background(), remote.TableNotes,
		remote.Filter{remote.Lt("deleted_at", remote.FormatTime(stamped)), remote.Eq("pinned", true)},
		[]remote.Order{{Column: "updated_at", Desc: true}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, remote.FormatTime(created), rows[0]["deleted_at"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_NullChecksHaveNoArgs(t *testing.T) {
	s, mock, _ := newStore(t)

	mock.ExpectQuery(q(`SELECT `+noteCols+` FROM notes WHERE deleted_at IS NULL ORDER BY id`)).
		WillReturnRows(noteRows())

	rows, err := s.Unscoped().Select(context.Background(), remote.TableNotes, remote.Filter{remote.IsNull("deleted_at")}, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_RejectsUnknownColumnsAndOps(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	var ce *common.ClientError

	_, err := s.ForUser("u1").Select(ctx, remote.TableNotes, remote.Filter{remote.Eq("password", "x")}, nil)
	assert.ErrorAs(t, err, &ce)
	_, err = s.ForUser("u1").Select(ctx, remote.TableNotes, remote.Filter{{Column: "title", Op: "like", Value: "%"}}, nil)
	assert.ErrorAs(t, err, &ce)
	_, err = s.ForUser("u1").Select(ctx, remote.TableNotes, nil, []remote.Order{{Column: "title; DROP TABLE notes"}})
	assert.ErrorAs(t, err, &ce)
}

func TestDatabaseFailureIsServerError(t *testing.T) {
	s, mock, _ := newStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.ForUser("u1").Delete(context.Background(), remote.TableNotes, "n1", "m1")
	var se *common.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
}

func TestPurgeLedger(t *testing.T) {
	s, mock, _ := newStore(t)
	mock.ExpectExec(q(`DELETE FROM applied_mutations WHERE created_at < $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.PurgeLedger(context.Background(), stamped)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
