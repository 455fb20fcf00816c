// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/remote"
)

// Call records one method invocation.
type Call struct {
	Method     string
	Table      string
	ID         string
	MutationID string
}

// Memory is a single-user remote store. Writes are idempotent per mutation
// id, like the real server.
type Memory struct {
	UserID string
	// Fail, when set, is consulted before every call; a non-nil result is
	// returned instead of performing the call.
	Fail func(method, table string) error
	// Now stamps updated_at.
	Now func() time.Time
	// OnChange observes every applied write.
	OnChange func(remote.ChangeEvent)

	mu      sync.Mutex
	tables  map[string]map[string]remote.Row
	applied map[string]any
	calls   []Call
}

func NewMemory(userID string) *Memory {
	return &Memory{
		UserID:  userID,
		Now:     time.Now,
		tables:  make(map[string]map[string]remote.Row),
		applied: make(map[string]any),
	}
}

// Seed stores rows as they are, without a mutation id.
func (m *Memory) Seed(table string, rows ...remote.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.table(table)[r.ID()] = r.Clone()
	}
}

// Row returns a copy of one stored row, or nil.
func (m *Memory) Row(table, id string) remote.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tables[table][id]
	if !ok {
		return nil
	}
	return r.Clone()
}

func (m *Memory) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount counts the calls of one method.
func (m *Memory) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *Memory) table(name string) map[string]remote.Row {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]remote.Row)
		m.tables[name] = t
	}
	return t
}

func (m *Memory) begin(method, table, id, mutationID string) error {
	m.calls = append(m.calls, Call{Method: method, Table: table, ID: id, MutationID: mutationID})
	if m.Fail != nil {
		if err := m.Fail(method, table); err != nil {
			return err
		}
	}
	switch table {
	case remote.TableNotes, remote.TableTags, remote.TableNoteTags, remote.TableShares:
		return nil
	}
	return &common.ClientError{StatusCode: 400, Message: "unknown table " + table, Err: remote.ErrUnknownTable}
}

func (m *Memory) emit(ev remote.ChangeEvent) {
	if m.OnChange != nil {
		m.OnChange(ev)
	}
}

func (m *Memory) Insert(ctx context.Context, table string, rows []remote.Row, mutationID string) ([]remote.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Insert", table, "", mutationID); err != nil {
		return nil, err
	}
	if prev, ok := m.applied[mutationID]; ok && mutationID != "" {
		return prev.([]remote.Row), nil
	}

	t := m.table(table)
	out := make([]remote.Row, 0, len(rows))
	for _, r := range rows {
		if _, exists := t[r.ID()]; exists {
			return nil, &common.ClientError{StatusCode: 409, Message: fmt.Sprintf("%s %s exists", table, r.ID())}
		}
	}
	for _, r := range rows {
		stored := r.Clone()
		stored["user_id"] = m.UserID
		stored["updated_at"] = remote.FormatTime(m.Now())
		t[r.ID()] = stored
		out = append(out, stored.Clone())
		m.emit(remote.ChangeEvent{Event: remote.EventInsert, Table: table, Row: stored.Clone()})
	}
	if mutationID != "" {
		m.applied[mutationID] = out
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, table, id string, patch remote.Row, mutationID string) (remote.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Update", table, id, mutationID); err != nil {
		return nil, err
	}
	if prev, ok := m.applied[mutationID]; ok && mutationID != "" {
		return prev.(remote.Row), nil
	}

	r, ok := m.table(table)[id]
	if !ok {
		return nil, &common.ClientError{StatusCode: 404, Message: fmt.Sprintf("%s %s not found", table, id), Err: common.ErrorNotFound}
	}
	for k, v := range patch {
		if k == "id" || k == "user_id" {
			continue
		}
		r[k] = v
	}
	r["updated_at"] = remote.FormatTime(m.Now())
	out := r.Clone()
	if mutationID != "" {
		m.applied[mutationID] = out
	}
	m.emit(remote.ChangeEvent{Event: remote.EventUpdate, Table: table, Row: out.Clone()})
	return out, nil
}

// Delete of a missing row succeeds.
func (m *Memory) Delete(ctx context.Context, table, id, mutationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Delete", table, id, mutationID); err != nil {
		return err
	}
	if _, ok := m.applied[mutationID]; ok && mutationID != "" {
		return nil
	}
	if _, ok := m.table(table)[id]; ok {
		delete(m.tables[table], id)
		m.emit(remote.ChangeEvent{Event: remote.EventDelete, Table: table, Row: remote.Row{"id": id}})
	}
	if mutationID != "" {
		m.applied[mutationID] = true
	}
	return nil
}

func (m *Memory) Select(ctx context.Context, table string, filter remote.Filter, order []remote.Order) ([]remote.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Select", table, "", ""); err != nil {
		return nil, err
	}

	var out []remote.Row
	for _, r := range m.table(table) {
		if matches(r, filter) {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range order {
			c := compare(out[i][o.Column], out[j][o.Column])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID() < out[j].ID()
	})
	return out, nil
}

func matches(r remote.Row, filter remote.Filter) bool {
	for _, c := range filter {
		v := r[c.Column]
		var ok bool
		switch c.Op {
		case remote.OpIsNull:
			ok = v == nil
		case remote.OpNotNull:
			ok = v != nil
		case remote.OpEq:
			ok = v != nil && compare(v, c.Value) == 0
		case remote.OpNeq:
			ok = v != nil && compare(v, c.Value) != 0
		case remote.OpLt:
			ok = v != nil && compare(v, c.Value) < 0
		case remote.OpLte:
			ok = v != nil && compare(v, c.Value) <= 0
		case remote.OpGt:
			ok = v != nil && compare(v, c.Value) > 0
		case remote.OpGte:
			ok = v != nil && compare(v, c.Value) >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// compare orders timestamps chronologically, numbers numerically and
// everything else by its string form.
func compare(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		ta, errA := time.Parse(time.RFC3339Nano, as)
		tb, errB := time.Parse(time.RFC3339Nano, bs)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

var _ remote.Store = (*Memory)(nil)
