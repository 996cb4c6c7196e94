// Package datalab is a browser-free data lab: it loads delimited text, Excel
// (XLSX) and Parquet files into an embedded relational engine and keeps a
// live catalog of the resulting tables for interactive SQL work.
//
// A Workspace owns the engine handle and all state derived from it: the
// schema catalog, the category of every table (builtin, uploaded or
// external), the user's column selection and the charts pinned to the
// dashboard. State is read through copies and changed only through named
// methods; every change is announced to subscribers.
//
// # Features
//
//   - Load CSV text with type inference (INTEGER, REAL or TEXT per column)
//   - Load XLSX workbooks (one table per sheet) and Parquet files
//   - Automatic handling of compressed files (gzip, bzip2, xz, zstandard)
//   - SQLite (modernc.org/sqlite) or DuckDB engines
//   - Schema catalog refreshed after every load and DDL statement
//   - Column selection with per-table none/some/all state
//   - Dashboard charts with drill-down and filter injection
//   - Keyword, table and column autocompletion
//   - Export of tables to CSV, TSV, Parquet or XLSX
//
// # Basic Usage
//
//	builder := datalab.NewBuilder().
//	    WithSamples().
//	    AddPath("orders.csv")
//
//	validatedBuilder, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ws, err := validatedBuilder.Open(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ws.Close()
//
//	result, err := ws.RunQuery(ctx, `SELECT "地区", SUM("销售额") FROM sales_data GROUP BY "地区"`)
//
// # Table Naming
//
// Table names are derived from file names:
//   - "sales.csv" becomes table "sales"
//   - "Sales-Data.csv.gz" becomes table "sales_data"
//   - "book.xlsx" with sheets "Q1" and "Q2" becomes tables "book_q1" and "book_q2"
//
// Column names are sanitized the same way and made unique within a table.
// Loading a file again replaces the table of the same name.
//
// # Errors
//
// Failures wrap one of the exported sentinel errors, such as ErrLoadFailure
// or ErrEngineUnavailable, and can be tested with errors.Is. The message of
// the last failure is also kept in Workspace.LastError until the next load
// or an explicit ClearError.
package datalab
