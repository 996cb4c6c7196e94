package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver
)

// memoryPath selects an in-memory database
const memoryPath = ":memory:"

// OpenSQLite opens a SQLite engine. Use ":memory:" or an empty path for an
// in-memory database. The pool is limited to one connection so that every
// statement sees the same in-memory database.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = memoryPath
	}

	db, err := sql.Open(SQLite.DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return New(db, SQLite), nil
}
