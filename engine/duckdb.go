package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// OpenDuckDB opens a DuckDB engine.
// Use ":memory:" or an empty path for an in-memory database.
func OpenDuckDB(ctx context.Context, path string) (*DB, error) {
	if path == memoryPath {
		path = ""
	}

	db, err := sql.Open(DuckDB.DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return New(db, DuckDB), nil
}
