// Package engine provides the relational engine used by datalab.
// It wraps a database/sql handle (SQLite through modernc.org/sqlite or DuckDB)
// behind a small interface that returns rows as maps together with field
// metadata, supports transactions, and knows how to introspect its own schema.
package engine
