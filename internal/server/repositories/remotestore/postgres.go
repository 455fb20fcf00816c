// Package remotestore is the Postgres implementation of remote.Store used
// by the server. Every write tagged with a client mutation id is recorded
// in the applied_mutations ledger in the same transaction, so a replayed
// mutation returns the recorded response without being applied again.
package remotestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/jackc/pgx/v5/pgconn"
)

// Publisher receives the change events of committed writes.
type Publisher interface {
	Publish(userID string, ev remote.ChangeEvent)
}

type PostgresStore struct {
	db        *sql.DB
	publisher Publisher
	log       logging.Logger
	now       func() time.Time
}

func NewPostgresStore(db *sql.DB, publisher Publisher, log logging.Logger) *PostgresStore {
	if log == nil {
		log = logging.Nop()
	}
	return &PostgresStore{db: db, publisher: publisher, log: log.With("module", "remotestore"), now: time.Now}
}

// ForUser returns the store as userID sees it: reads and writes only touch
// rows owned by userID.
func (s *PostgresStore) ForUser(userID string) remote.Store {
	return &scoped{PostgresStore: s, userID: userID}
}

// Unscoped sees every user's rows. Inserts keep the user_id of the row.
func (s *PostgresStore) Unscoped() remote.Store {
	return &scoped{PostgresStore: s}
}

type scoped struct {
	*PostgresStore
	userID string
}

// args numbers query placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func (s *scoped) scope(where []string, a *args) []string {
	if s.userID == "" {
		return where
	}
	return append(where, "user_id = "+a.add(s.userID))
}

func (s *scoped) publish(events []remote.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		s.publisher.Publish(ev.Row.String("user_id"), ev)
	}
}

func (s *scoped) Insert(ctx context.Context, tableName string, rows []remote.Row, mutationID string) ([]remote.Row, error) {
	t, err := lookup(tableName)
	if err != nil {
		return nil, err
	}
	var (
		out    []remote.Row
		events []remote.ChangeEvent
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		replayed, err := lookupMutation(ctx, tx, s.userID, mutationID, &out)
		if err != nil || replayed {
			return err
		}
		out = make([]remote.Row, 0, len(rows))
		for _, r := range rows {
			row, err := s.insertRow(ctx, tx, t, r)
			if err != nil {
				return err
			}
			out = append(out, row)
			events = append(events, remote.ChangeEvent{Event: remote.EventInsert, Table: t.name, Row: row.Clone()})
		}
		return recordMutation(ctx, tx, s.userID, mutationID, out, s.now())
	})
	if err != nil {
		return nil, mapDBError("insert into "+tableName, err)
	}
	s.publish(events)
	return out, nil
}

func (s *scoped) insertRow(ctx context.Context, tx dbx.DBTX, t *table, r remote.Row) (remote.Row, error) {
	if r.ID() == "" {
		return nil, badRequest("row without id", nil)
	}
	owner := s.userID
	if owner == "" {
		owner = r.String("user_id")
	}
	if owner == "" {
		return nil, badRequest("row without owner", nil)
	}
	cols, err := t.writableColumns(r)
	if err != nil {
		return nil, err
	}

	var a args
	placeholders := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		v, err := t.toDB(c, r[c])
		if err != nil {
			return nil, err
		}
		placeholders = append(placeholders, a.add(v))
	}
	cols = append(cols, "user_id", "updated_at")
	placeholders = append(placeholders, a.add(owner), a.add(s.now().UTC()))

	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), t.selectList())
	dest := t.scanTargets()
	if err := tx.QueryRowContext(ctx, q, a...).Scan(dest...); err != nil {
		return nil, err
	}
	return t.toRow(dest), nil
}

func (s *scoped) Update(ctx context.Context, tableName, id string, patch remote.Row, mutationID string) (remote.Row, error) {
	t, err := lookup(tableName)
	if err != nil {
		return nil, err
	}
	cols, err := t.writableColumns(patch, "id")
	if err != nil {
		return nil, err
	}

	var (
		out     remote.Row
		applied bool
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		replayed, err := lookupMutation(ctx, tx, s.userID, mutationID, &out)
		if err != nil || replayed {
			return err
		}

		var a args
		set := make([]string, 0, len(cols)+1)
		for _, c := range cols {
			v, err := t.toDB(c, patch[c])
			if err != nil {
				return err
			}
			set = append(set, c+" = "+a.add(v))
		}
		set = append(set, "updated_at = "+a.add(s.now().UTC()))
		where := s.scope([]string{"id = " + a.add(id)}, &a)

		q := fmt.Sprintf(`UPDATE %s SET %s WHERE %s RETURNING %s`,
			t.name, strings.Join(set, ", "), strings.Join(where, " AND "), t.selectList())
		dest := t.scanTargets()
		err = tx.QueryRowContext(ctx, q, a...).Scan(dest...)
		if errors.Is(err, sql.ErrNoRows) {
			return &common.ClientError{StatusCode: 404, Message: fmt.Sprintf("%s %s not found", t.name, id), Err: common.ErrorNotFound}
		}
		if err != nil {
			return err
		}
		out, applied = t.toRow(dest), true
		return recordMutation(ctx, tx, s.userID, mutationID, out, s.now())
	})
	if err != nil {
		return nil, mapDBError("update "+tableName, err)
	}
	if applied {
		s.publish([]remote.ChangeEvent{{Event: remote.EventUpdate, Table: t.name, Row: out.Clone()}})
	}
	return out, nil
}

// Delete of a missing row succeeds.
func (s *scoped) Delete(ctx context.Context, tableName, id, mutationID string) error {
	t, err := lookup(tableName)
	if err != nil {
		return err
	}
	var owner string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var ignored any
		replayed, err := lookupMutation(ctx, tx, s.userID, mutationID, &ignored)
		if err != nil || replayed {
			return err
		}

		var a args
		where := s.scope([]string{"id = " + a.add(id)}, &a)
		q := fmt.Sprintf(`DELETE FROM %s WHERE %s RETURNING user_id`, t.name, strings.Join(where, " AND "))
		err = tx.QueryRowContext(ctx, q, a...).Scan(&owner)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return recordMutation(ctx, tx, s.userID, mutationID, nil, s.now())
	})
	if err != nil {
		return mapDBError("delete from "+tableName, err)
	}
	if owner != "" {
		s.publish([]remote.ChangeEvent{{Event: remote.EventDelete, Table: t.name, Row: remote.Row{"id": id, "user_id": owner}}})
	}
	return nil
}

var sqlOps = map[remote.Op]string{
	remote.OpEq:  "=",
	remote.OpNeq: "<>",
	remote.OpLt:  "<",
	remote.OpLte: "<=",
	remote.OpGt:  ">",
	remote.OpGte: ">=",
}

func (s *scoped) Select(ctx context.Context, tableName string, filter remote.Filter, order []remote.Order) ([]remote.Row, error) {
	t, err := lookup(tableName)
	if err != nil {
		return nil, err
	}

	var a args
	where := s.scope(nil, &a)
	for _, c := range filter {
		if _, ok := t.byName[c.Column]; !ok {
			return nil, badRequest(fmt.Sprintf("unknown column %s.%s", t.name, c.Column), nil)
		}
		switch c.Op {
		case remote.OpIsNull:
			where = append(where, c.Column+" IS NULL")
		case remote.OpNotNull:
			where = append(where, c.Column+" IS NOT NULL")
		default:
			op, ok := sqlOps[c.Op]
			if !ok {
				return nil, badRequest(fmt.Sprintf("unknown operator %q", c.Op), nil)
			}
			v, err := t.toDB(c.Column, c.Value)
			if err != nil {
				return nil, err
			}
			where = append(where, c.Column+" "+op+" "+a.add(v))
		}
	}

	orderBy := make([]string, 0, len(order)+1)
	for _, o := range order {
		if _, ok := t.byName[o.Column]; !ok {
			return nil, badRequest(fmt.Sprintf("unknown column %s.%s", t.name, o.Column), nil)
		}
		if o.Desc {
			orderBy = append(orderBy, o.Column+" DESC")
		} else {
			orderBy = append(orderBy, o.Column)
		}
	}
	orderBy = append(orderBy, "id")

	q := `SELECT ` + t.selectList() + ` FROM ` + t.name
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + strings.Join(orderBy, ", ")

	rows, err := s.db.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, mapDBError("select from "+tableName, err)
	}
	defer rows.Close()

	out := []remote.Row{}
	for rows.Next() {
		dest := t.scanTargets()
		if err := rows.Scan(dest...); err != nil {
			return nil, mapDBError("scan "+tableName, err)
		}
		out = append(out, t.toRow(dest))
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError("select from "+tableName, err)
	}
	return out, nil
}

// mapDBError leaves taxonomy errors alone and classifies driver errors.
func mapDBError(op string, err error) error {
	var (
		ce    *common.ClientError
		pgErr *pgconn.PgError
	)
	switch {
	case errors.As(err, &ce):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case "23505":
			return &common.ClientError{StatusCode: 409, Message: op + ": already exists", Err: err}
		case "23503":
			return &common.ClientError{StatusCode: 409, Message: op + ": referenced row missing", Err: err}
		case "23502", "22P02", "22007":
			return &common.ClientError{StatusCode: 400, Message: op + ": " + pgErr.Message, Err: err}
		}
	}
	return &common.ServerError{StatusCode: 500, Message: op + " failed", Err: err}
}

var _ remote.Store = (*scoped)(nil)
