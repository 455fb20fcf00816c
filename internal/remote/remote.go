// Package remote describes the authoritative store the client syncs
// against: a small table-oriented API where every write is tagged with a
// client mutation id, and the change events it pushes back.
package remote

import (
	"context"
	"errors"
	"fmt"
)

const (
	TableNotes    = "notes"
	TableTags     = "tags"
	TableNoteTags = "note_tags"
	TableShares   = "note_shares"
)

var ErrUnknownTable = errors.New("unknown table")

// Op is a filter comparison.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpIsNull, OpNotNull:
		return true
	}
	return false
}

// Cond is one column condition. Value is ignored by is_null and not_null.
type Cond struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value,omitempty"`
}

// Filter is a conjunction of conditions.
type Filter []Cond

func Eq(column string, v any) Cond { return Cond{Column: column, Op: OpEq, Value: v} }
func Lt(column string, v any) Cond { return Cond{Column: column, Op: OpLt, Value: v} }
func IsNull(column string) Cond    { return Cond{Column: column, Op: OpIsNull} }
func NotNull(column string) Cond   { return Cond{Column: column, Op: OpNotNull} }

func (c Cond) String() string {
	if c.Op == OpIsNull || c.Op == OpNotNull {
		return fmt.Sprintf("%s %s", c.Column, c.Op)
	}
	return fmt.Sprintf("%s %s %v", c.Column, c.Op, c.Value)
}

type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Store is the remote store as the client sees it. Rows are scoped to the
// authenticated user. Writes carrying a mutation id that was already
// applied return the original result without applying again.
type Store interface {
	Insert(ctx context.Context, table string, rows []Row, mutationID string) ([]Row, error)
	Update(ctx context.Context, table, id string, patch Row, mutationID string) (Row, error)
	Delete(ctx context.Context, table, id, mutationID string) error
	Select(ctx context.Context, table string, filter Filter, order []Order) ([]Row, error)
}

// Event is the kind of a pushed change.
type Event string

const (
	EventInsert Event = "insert"
	EventUpdate Event = "update"
	EventDelete Event = "delete"
)

// ChangeEvent is one message of the realtime channel. Delete events carry
// at least the id column.
type ChangeEvent struct {
	Event Event  `json:"event"`
	Table string `json:"table"`
	Row   Row    `json:"row"`
}
