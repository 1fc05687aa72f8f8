package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/broker"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/sqlite"
)

var ErrInvalidIdentifier = errors.NewSentinel("invalid table or column identifier")

// identifierPattern accepts the snake_case identifiers the schema uses.
// Table and column names reach this package as strings, so they are validated
// before being interpolated into SQL. Values always travel as placeholders.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLiteStore implements Store over the dual-connection database. After every
// successful write it publishes a ChangeEvent to the row's session scope
// (campaign scope for campaign-keyed tables) so other participants' engines
// can re-fetch the affected state.
type SQLiteStore struct {
	db       *sqlite.Database
	notifier *broker.Notifier[string, ChangeEvent]
	logger   *slog.Logger
}

// NewSQLiteStore wires the store to the database and an optional notifier.
// A nil notifier disables change publication, which tests of pure persistence use.
func NewSQLiteStore(db *sqlite.Database, notifier *broker.Notifier[string, ChangeEvent], logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:       db,
		notifier: notifier,
		logger:   logger.With("source", "SQLiteStore"),
	}
}

// sortedKeys returns the map keys in deterministic order so generated SQL is
// stable for logging and statement caching.
func sortedKeys[V any](m map[string]V) ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !identifierPattern.MatchString(k) {
			return nil, errors.Wrap(ErrInvalidIdentifier, "validate column", slog.String("column", k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func validateTable(table string) error {
	if !identifierPattern.MatchString(table) {
		return errors.Wrap(ErrInvalidIdentifier, "validate table", slog.String("table", table))
	}
	return nil
}

// whereClause builds "WHERE k1 = ? AND k2 = ?" with matching args. An empty
// filter yields an empty clause matching every row.
func whereClause(filter Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	keys, err := sortedKeys(filter)
	if err != nil {
		return "", nil, err
	}
	conditions := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, fmt.Sprintf("%s = ?", k))
		args = append(args, filter[k])
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

func (s *SQLiteStore) Select(ctx context.Context, table string, filter Filter) ([]Record, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT * FROM %s%s", table, where)
	rows, err := s.db.ReadOnly.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select rows", slog.String("table", table))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(closeErr, "close rows")))
		}
	}()

	var records []Record
	for rows.Next() {
		record := Record{}
		if err = rows.MapScan(record); err != nil {
			return nil, errors.Wrap(err, "scan row", slog.String("table", table))
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error", slog.String("table", table))
	}

	return records, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, record Record) error {
	if err := validateTable(table); err != nil {
		return err
	}
	keys, err := sortedKeys(record)
	if err != nil {
		return err
	}
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, record[k])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), placeholders(len(keys)))
	if _, err = s.db.ReadWrite.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "insert row", slog.String("table", table))
	}

	s.publish(table, ChangeInsert, record)
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, table string, filter Filter, patch Record) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}
	keys, err := sortedKeys(patch)
	if err != nil {
		return err
	}
	assignments := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		assignments = append(assignments, fmt.Sprintf("%s = ?", k))
		args = append(args, patch[k])
	}
	where, whereArgs, err := whereClause(filter)
	if err != nil {
		return err
	}
	args = append(args, whereArgs...)

	stmt := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(assignments, ", "), where)
	if _, err = s.db.ReadWrite.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "update rows", slog.String("table", table))
	}

	changed := Record{}
	for k, v := range filter {
		changed[k] = v
	}
	for k, v := range patch {
		changed[k] = v
	}
	s.publish(table, ChangeUpdate, changed)
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, table string, record Record, conflictKey []string) error {
	if err := validateTable(table); err != nil {
		return err
	}
	keys, err := sortedKeys(record)
	if err != nil {
		return err
	}
	for _, k := range conflictKey {
		if !identifierPattern.MatchString(k) {
			return errors.Wrap(ErrInvalidIdentifier, "validate conflict key", slog.String("column", k))
		}
	}

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, record[k])
	}

	// Non-key columns take the new values on conflict.
	conflictSet := map[string]bool{}
	for _, k := range conflictKey {
		conflictSet[k] = true
	}
	var updates []string
	for _, k := range keys {
		if conflictSet[k] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", k, k))
	}
	conflictAction := "NOTHING"
	if len(updates) > 0 {
		conflictAction = "UPDATE SET " + strings.Join(updates, ", ")
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO %s",
		table, strings.Join(keys, ", "), placeholders(len(keys)),
		strings.Join(conflictKey, ", "), conflictAction)
	if _, err = s.db.ReadWrite.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "upsert row", slog.String("table", table))
	}

	s.publish(table, ChangeUpsert, record)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, table string, filter Filter) error {
	if err := validateTable(table); err != nil {
		return err
	}
	where, args, err := whereClause(filter)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DELETE FROM %s%s", table, where)
	if _, err = s.db.ReadWrite.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "delete rows", slog.String("table", table))
	}

	s.publish(table, ChangeDelete, Record(filter))
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// publish announces a write on the row's session scope, falling back to the
// campaign scope for campaign-keyed tables. Rows without either stay local.
func (s *SQLiteStore) publish(table string, changeType ChangeType, row Record) {
	if s.notifier == nil {
		return
	}
	scope := row.String("session_id")
	if scope == "" {
		scope = row.String("campaign_id")
	}
	if scope == "" {
		return
	}
	s.notifier.Publish(scope, ChangeEvent{
		Table: table,
		Type:  changeType,
		Row:   row,
	})
}
