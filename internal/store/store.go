package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
)

// IDColumn is the primary key column every schema must list first.
const IDColumn = "id"

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Schema describes how a record type maps onto a table.
type Schema[T any] struct {
	// Table is the table name.
	Table string

	// Columns lists the table columns in scan order. The first must be IDColumn.
	Columns []string

	// Scan reads one row, in Columns order, into a new record.
	Scan func(RowScanner) (*T, error)

	// Values returns the column values of a record, in Columns order.
	Values func(*T) []any

	// ID returns the record identifier.
	ID func(*T) string

	// SetID assigns the record identifier.
	SetID func(*T, string)
}

// Store implements the common record operations for one table.
type Store[T any] struct {
	db     *sql.DB
	schema Schema[T]

	selectSQL string
	known     map[string]bool
}

// New creates a Store for schema over db. It panics if the schema is
// malformed, since that is a programming error.
func New[T any](db *sql.DB, schema Schema[T]) *Store[T] {
	if schema.Table == "" || len(schema.Columns) == 0 || schema.Columns[0] != IDColumn {
		panic(fmt.Sprintf("store: schema for %q must list %q as its first column", schema.Table, IDColumn))
	}
	if schema.Scan == nil || schema.Values == nil || schema.ID == nil || schema.SetID == nil {
		panic(fmt.Sprintf("store: schema for %q is missing a mapping function", schema.Table))
	}

	known := make(map[string]bool, len(schema.Columns))
	quoted := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		known[c] = true
		quoted[i] = quote(c)
	}

	return &Store[T]{
		db:        db,
		schema:    schema,
		selectSQL: "SELECT " + strings.Join(quoted, ", ") + " FROM " + quote(schema.Table),
		known:     known,
	}
}

// Get returns the record with the given id. It returns (nil, nil) when id
// is not a well-formed UUID or when no row exists; errors are reserved for
// storage failures.
func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	key, ok := CanonicalID(id)
	if !ok {
		return nil, nil
	}

	var rec *T
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		rec, err = s.get(ctx, tx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns up to limit records after skipping skip, in insertion
// order. Negative arguments are treated as zero.
func (s *Store[T]) List(ctx context.Context, skip, limit int) ([]T, error) {
	return s.FindMany(ctx, "", nil, skip, limit)
}

// Count returns the number of rows in the table.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(s.schema.Table)).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.schema.Table, err)
	}
	return n, nil
}

// Create inserts rec and returns the stored row. An empty id is replaced
// with a fresh UUID; rec itself is not modified.
func (s *Store[T]) Create(ctx context.Context, rec *T) (*T, error) {
	in := *rec
	id := s.schema.ID(&in)
	if id == "" {
		id = uuid.NewString()
	} else {
		key, ok := CanonicalID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
		id = key
	}
	s.schema.SetID(&in, id)

	cols := make([]string, len(s.schema.Columns))
	marks := make([]string, len(s.schema.Columns))
	for i, c := range s.schema.Columns {
		cols[i] = quote(c)
		marks[i] = "?"
	}
	query := "INSERT INTO " + quote(s.schema.Table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	var out *T
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, s.schema.Values(&in)...); err != nil {
			return fmt.Errorf("inserting %s %s: %w", s.schema.Table, id, translate(err))
		}
		var err error
		out, err = s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("inserting %s %s: row missing after insert", s.schema.Table, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies changes to the row identified by existing and returns
// the stored result. Columns absent from changes keep their value and the
// id column is ignored. An empty change set returns the current row
// without writing.
func (s *Store[T]) Update(ctx context.Context, existing *T, changes Changes) (*T, error) {
	id := s.schema.ID(existing)

	cols := make([]string, 0, len(changes))
	for c := range changes {
		if c == IDColumn {
			continue
		}
		if !s.known[c] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, s.schema.Table, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var out *T
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if len(cols) > 0 {
			sets := make([]string, len(cols))
			args := make([]any, 0, len(cols)+1)
			for i, c := range cols {
				sets[i] = quote(c) + " = ?"
				args = append(args, changes[c])
			}
			args = append(args, id)

			query := "UPDATE " + quote(s.schema.Table) + " SET " + strings.Join(sets, ", ") +
				" WHERE " + quote(IDColumn) + " = ?"
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("updating %s %s: %w", s.schema.Table, id, translate(err))
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("updating %s %s: %w", s.schema.Table, id, ErrNotFound)
			}
		}

		var err error
		out, err = s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("updating %s %s: %w", s.schema.Table, id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the row with the given id and returns it as it was
// before deletion. Unlike Get, a missing or malformed id is an error
// wrapping ErrNotFound.
func (s *Store[T]) Remove(ctx context.Context, id string) (*T, error) {
	key, ok := CanonicalID(id)
	if !ok {
		return nil, fmt.Errorf("removing %s %q: %w", s.schema.Table, id, ErrNotFound)
	}

	var out *T
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		out, err = s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("removing %s %s: %w", s.schema.Table, key, ErrNotFound)
		}
		query := "DELETE FROM " + quote(s.schema.Table) + " WHERE " + quote(IDColumn) + " = ?"
		if _, err := tx.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("removing %s %s: %w", s.schema.Table, key, translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the first record, in insertion order, matching the SQL
// condition where. It returns (nil, nil) when nothing matches.
func (s *Store[T]) FindOne(ctx context.Context, where string, args ...any) (*T, error) {
	recs, err := s.FindMany(ctx, where, args, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// FindMany returns a page of records matching where, in insertion order.
// An empty where matches every row.
func (s *Store[T]) FindMany(ctx context.Context, where string, args []any, skip, limit int) ([]T, error) {
	skip = max(skip, 0)
	limit = max(limit, 0)
	if limit == 0 {
		return []T{}, nil
	}

	query := s.selectSQL
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY rowid LIMIT ? OFFSET ?"

	all := make([]any, 0, len(args)+2)
	all = append(all, args...)
	all = append(all, limit, skip)

	return s.query(ctx, query, all...)
}

// FindAll returns every record matching where, in insertion order.
func (s *Store[T]) FindAll(ctx context.Context, where string, args ...any) ([]T, error) {
	query := s.selectSQL
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY rowid"

	return s.query(ctx, query, args...)
}

func (s *Store[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	recs := []T{}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		recs, err = s.scanAll(ctx, tx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store[T]) scanAll(ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.schema.Table, err)
	}
	defer rows.Close()

	recs := []T{}
	for rows.Next() {
		rec, err := s.schema.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.schema.Table, err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", s.schema.Table, err)
	}
	return recs, nil
}

func (s *Store[T]) get(ctx context.Context, q querier, id string) (*T, error) {
	row := q.QueryRowContext(ctx, s.selectSQL+" WHERE "+quote(IDColumn)+" = ?", id)
	rec, err := s.schema.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", s.schema.Table, id, err)
	}
	return rec, nil
}

// CanonicalID parses id as a UUID and returns its lowercase 36-character
// form. References to records must be stored in this form to match ids.
func CanonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// translate maps SQLite constraint failures onto the store sentinels.
func translate(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", ErrConflict, sqliteErr.Error())
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %s", ErrReference, sqliteErr.Error())
	default:
		return err
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
