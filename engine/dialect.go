package engine

import "strings"

// Dialect describes how an engine is opened and introspected.
type Dialect struct {
	// Name is the engine name accepted by Open.
	Name string
	// DriverName is the database/sql driver name.
	DriverName string
	// TablesQuery lists base tables of the default schema as a table_name column.
	TablesQuery string
	// ColumnsQuery lists the columns of the table bound to its single
	// parameter as column_name and data_type, in declaration order.
	ColumnsQuery string
}

// SQLite is the dialect of the embedded modernc.org/sqlite engine. Internal
// tables carry the reserved sqlite_ prefix.
var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	TablesQuery: `SELECT name AS table_name FROM sqlite_master ` +
		`WHERE type = 'table' AND substr(name, 1, 7) <> 'sqlite_' ORDER BY name`,
	ColumnsQuery: `SELECT name AS column_name, type AS data_type FROM pragma_table_info(?) ORDER BY cid`,
}

// DuckDB is the dialect of the embedded DuckDB engine
var DuckDB = Dialect{
	Name:       "duckdb",
	DriverName: "duckdb",
	TablesQuery: `SELECT table_name FROM information_schema.tables ` +
		`WHERE table_schema = 'main' AND table_type = 'BASE TABLE' ORDER BY table_name`,
	ColumnsQuery: `SELECT column_name, data_type FROM information_schema.columns ` +
		`WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`,
}

// QuoteIdent double-quotes an identifier, doubling embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
