package remote

import (
	"fmt"
	"time"
)

// Row is one record as it travels over the wire. Values are JSON-native:
// strings, float64, bool, nil, []any and map[string]any. Timestamps are
// RFC 3339 strings with nanoseconds.
type Row map[string]any

// FormatTime encodes t for a Row.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatTimePtr encodes t, or nil when t is nil.
func FormatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func (r Row) ID() string { return r.String("id") }

// String returns the column as a string, or "" when missing.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Has reports whether the column is present, even if null.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Time parses the column; a missing or null column is the zero time.
func (r Row) Time(col string) (time.Time, error) {
	t, err := r.TimePtr(col)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

// TimePtr parses the column; a missing or null column is nil.
func (r Row) TimePtr(col string) (*time.Time, error) {
	switch v := r[col].(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected %T", col, v)
	}
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
