package remotestore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/remote"
)

type kind int

const (
	text kind = iota
	boolean
	timestamp
)

type column struct {
	name string
	kind kind
}

type table struct {
	name    string
	columns []column
	byName  map[string]kind
}

func newTable(name string, cols ...column) *table {
	t := &table{name: name, columns: cols, byName: make(map[string]kind, len(cols))}
	for _, c := range cols {
		t.byName[c.name] = c.kind
	}
	return t
}

// Every table has id, user_id, created_at and updated_at.
func registry() map[string]*table {
	base := func(name string, cols ...column) *table {
		all := append([]column{{"id", text}, {"user_id", text}}, cols...)
		all = append(all, column{"created_at", timestamp}, column{"updated_at", timestamp})
		return newTable(name, all...)
	}
	return map[string]*table{
		remote.TableNotes: base(remote.TableNotes,
			column{"title", text}, column{"content", text}, column{"pinned", boolean}, column{"deleted_at", timestamp}),
		remote.TableTags: base(remote.TableTags,
			column{"name", text}, column{"color", text}),
		remote.TableNoteTags: base(remote.TableNoteTags,
			column{"note_id", text}, column{"tag_id", text}),
		remote.TableShares: base(remote.TableShares,
			column{"note_id", text}, column{"share_token", text}, column{"expires_at", timestamp}),
	}
}

var tables = registry()

func lookup(name string) (*table, error) {
	t, ok := tables[name]
	if !ok {
		return nil, badRequest(fmt.Sprintf("unknown table %q", name), remote.ErrUnknownTable)
	}
	return t, nil
}

func badRequest(msg string, err error) error {
	return &common.ClientError{StatusCode: 400, Message: msg, Err: err}
}

func (t *table) selectList() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

// managed columns are set by the store, never by callers.
func managed(col string) bool {
	return col == "user_id" || col == "updated_at"
}

// writableColumns returns the columns of row the caller may set, sorted.
func (t *table) writableColumns(row remote.Row, skip ...string) ([]string, error) {
	cols := make([]string, 0, len(row))
	for col := range row {
		if managed(col) || contains(skip, col) {
			continue
		}
		if _, ok := t.byName[col]; !ok {
			return nil, badRequest(fmt.Sprintf("unknown column %s.%s", t.name, col), nil)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toDB converts a wire value of col to a query argument.
func (t *table) toDB(col string, v any) (any, error) {
	k, ok := t.byName[col]
	if !ok {
		return nil, badRequest(fmt.Sprintf("unknown column %s.%s", t.name, col), nil)
	}
	switch k {
	case timestamp:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, badRequest(fmt.Sprintf("column %s: %v", col, err), err)
			}
			return ts.UTC(), nil
		}
	case boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, badRequest(fmt.Sprintf("column %s: unexpected %T", col, v), nil)
}

// scanTargets returns one destination per column of t.
func (t *table) scanTargets() []any {
	dest := make([]any, len(t.columns))
	for i, c := range t.columns {
		switch c.kind {
		case timestamp:
			dest[i] = new(*time.Time)
		case boolean:
			dest[i] = new(bool)
		default:
			dest[i] = new(string)
		}
	}
	return dest
}

func (t *table) toRow(dest []any) remote.Row {
	row := make(remote.Row, len(t.columns))
	for i, c := range t.columns {
		switch v := dest[i].(type) {
		case **time.Time:
			row[c.name] = remote.FormatTimePtr(*v)
		case *bool:
			row[c.name] = *v
		case *string:
			row[c.name] = *v
		}
	}
	return row
}
