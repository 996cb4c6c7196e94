package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Field describes one column of a result set.
type Field struct {
	Name string `json:"name"`
}

// Row is one result row keyed by field name.
type Row map[string]any

// Result is the outcome of a statement. Statements that do not return rows
// leave Fields and Rows empty and report RowsAffected instead.
type Result struct {
	Fields       []Field `json:"fields"`
	Rows         []Row   `json:"rows"`
	RowsAffected int64   `json:"rowsAffected"`
}

// FieldNames returns the field names in result order.
func (r *Result) FieldNames() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Executor runs SQL text with positional parameters.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (*Result, error)
}

// Tx is an open transaction.
type Tx interface {
	Executor
	Commit() error
	Rollback() error
}

// Engine is a live relational engine handle.
type Engine interface {
	Executor
	// Begin opens a transaction.
	Begin(ctx context.Context) (Tx, error)
	// Dialect describes the engine's introspection queries.
	Dialect() Dialect
	// Close releases the handle.
	Close() error
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB is an Engine backed by database/sql.
type DB struct {
	db      *sql.DB
	dialect Dialect

	mu     sync.Mutex
	closed bool
}

// New wraps an already opened database handle.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

// Open opens an engine by name ("sqlite" or "duckdb"). An empty name selects
// SQLite and an empty path selects an in-memory database.
func Open(ctx context.Context, name, path string) (*DB, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SQLite.Name:
		return OpenSQLite(ctx, path)
	case DuckDB.Name:
		return OpenDuckDB(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, name)
	}
}

// Names lists the engines Open accepts.
func Names() []string {
	return []string{SQLite.Name, DuckDB.Name}
}

// Execute runs query outside of any explicit transaction.
func (d *DB) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	return execute(ctx, d.db, query, args)
}

// Begin opens a transaction.
func (d *DB) Begin(ctx context.Context) (Tx, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

// Dialect returns the engine dialect.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Close closes the underlying handle. Closing twice is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

func (d *DB) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// sqlTx implements Tx on top of *sql.Tx
type sqlTx struct {
	tx *sql.Tx
}

// Execute runs query inside the transaction.
func (t *sqlTx) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	return execute(ctx, t.tx, query, args)
}

// Commit commits the transaction.
func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Leading keywords of statements that produce a result set
var rowKeywords = map[string]bool{
	"SELECT":    true,
	"WITH":      true,
	"VALUES":    true,
	"PRAGMA":    true,
	"SHOW":      true,
	"DESCRIBE":  true,
	"EXPLAIN":   true,
	"TABLE":     true,
	"FROM":      true,
	"SUMMARIZE": true,
}

var (
	leadingNoise = regexp.MustCompile(`^(?:\s+|--[^\n]*(?:\n|$)|/\*(?s:.*?)\*/|\()*`)
	firstWord    = regexp.MustCompile(`^[A-Za-z]+`)
	returning    = regexp.MustCompile(`(?i)\bRETURNING\b`)
)

// returnsRows reports whether a statement should be run as a query.
func returnsRows(query string) bool {
	rest := leadingNoise.ReplaceAllString(query, "")
	if rowKeywords[strings.ToUpper(firstWord.FindString(rest))] {
		return true
	}
	return returning.MatchString(query)
}

// execute dispatches to QueryContext or ExecContext.
func execute(ctx context.Context, q querier, query string, args []any) (*Result, error) {
	if !returnsRows(query) {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = 0
		}
		return &Result{RowsAffected: n}, nil
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows collects every row into a Result.
func scanRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{
		Fields: make([]Field, len(cols)),
		Rows:   make([]Row, 0),
	}
	for i, c := range cols {
		result.Fields[i] = Field{Name: c}
	}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	result.RowsAffected = int64(len(result.Rows))
	return result, nil
}
