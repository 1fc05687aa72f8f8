// Package store exposes the persistent state of the chronicle engine through
// generic table-and-filter operations. The engine performs no joins here;
// related rows are fetched separately and merged by id.
package store

import (
	"context"
	"time"
)

// Record is a plain row keyed by column name.
type Record map[string]any

// Filter matches rows whose columns equal every given value. An empty filter
// matches all rows of the table.
type Filter map[string]any

// ChangeType describes what a write did to a row.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeUpsert ChangeType = "upsert"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is published to the session's notification scope after every
// successful write. Row carries what the writer sent, not the persisted
// state: consumers must re-query rather than trust the payload.
type ChangeEvent struct {
	Table string
	Type  ChangeType
	Row   Record
}

// Store is the engine's persistence boundary. Writes are last-write-wins;
// there is no optimistic-concurrency token.
type Store interface {
	Select(ctx context.Context, table string, filter Filter) ([]Record, error)
	Insert(ctx context.Context, table string, record Record) error
	Update(ctx context.Context, table string, filter Filter, patch Record) error
	Upsert(ctx context.Context, table string, record Record, conflictKey []string) error
	Delete(ctx context.Context, table string, filter Filter) error
}

// String reads a text column, tolerating the []byte values the sqlite driver
// produces for TEXT columns.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Int reads an integer column, zero when absent.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Bool reads a boolean column stored as 0/1.
func (r Record) Bool(key string) bool {
	return r.Int(key) != 0
}

// Time reads an RFC 3339 text column, the zero time when absent or malformed.
func (r Record) Time(key string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, r.String(key))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// TimePtr reads an optional RFC 3339 text column, nil when NULL or empty.
func (r Record) TimePtr(key string) *time.Time {
	if r[key] == nil {
		return nil
	}
	parsed := r.Time(key)
	if parsed.IsZero() {
		return nil
	}
	return &parsed
}

// IntPtr reads an optional integer column, nil when NULL.
func (r Record) IntPtr(key string) *int {
	if r[key] == nil {
		return nil
	}
	v := r.Int(key)
	return &v
}

// FormatTime renders a timestamp the way the schema's TEXT columns expect.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
