package engine

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnsRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{name: "select", query: "SELECT 1", want: true},
		{name: "lowercase select", query: "select * from t", want: true},
		{name: "leading whitespace", query: "\n\t  SELECT 1", want: true},
		{name: "leading line comment", query: "-- pick rows\nSELECT 1", want: true},
		{name: "leading block comment", query: "/* a\nb */ SELECT 1", want: true},
		{name: "parenthesized", query: "(SELECT 1) UNION (SELECT 2)", want: true},
		{name: "with", query: "WITH x AS (SELECT 1) SELECT * FROM x", want: true},
		{name: "values", query: "VALUES (1), (2)", want: true},
		{name: "pragma", query: "PRAGMA table_info('t')", want: true},
		{name: "describe", query: "DESCRIBE t", want: true},
		{name: "insert returning", query: "INSERT INTO t VALUES (1) RETURNING id", want: true},
		{name: "insert", query: "INSERT INTO t VALUES (1)", want: false},
		{name: "create", query: "CREATE TABLE t (a TEXT)", want: false},
		{name: "drop", query: "DROP TABLE IF EXISTS t", want: false},
		{name: "empty", query: "", want: false},
		{name: "selector prefix is not select", query: "SELECTOR", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, returnsRows(tt.query))
		})
	}
}

func TestDB_Execute(t *testing.T) {
	t.Parallel()

	t.Run("query collects rows and converts bytes", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		rows := sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("alice")).
			AddRow(int64(2), nil)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users")).WillReturnRows(rows)

		result, err := New(db, SQLite).Execute(context.Background(), "SELECT id, name FROM users")
		require.NoError(t, err)

		assert.Equal(t, []string{"id", "name"}, result.FieldNames())
		require.Len(t, result.Rows, 2)
		assert.Equal(t, Row{"id": int64(1), "name": "alice"}, result.Rows[0])
		assert.Nil(t, result.Rows[1]["name"])
		assert.Equal(t, int64(2), result.RowsAffected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query with no rows returns empty slice", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}))

		result, err := New(db, SQLite).Execute(context.Background(), "SELECT a FROM t")
		require.NoError(t, err)
		assert.NotNil(t, result.Rows)
		assert.Empty(t, result.Rows)
	})

	t.Run("exec reports rows affected", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t VALUES (?)")).
			WithArgs("x").
			WillReturnResult(sqlmock.NewResult(1, 1))

		result, err := New(db, SQLite).Execute(context.Background(), "INSERT INTO t VALUES (?)", "x")
		require.NoError(t, err)
		assert.Empty(t, result.Fields)
		assert.Equal(t, int64(1), result.RowsAffected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("engine error is returned", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		_, err = New(db, SQLite).Execute(context.Background(), "SELECT * FROM missing")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestDB_Begin(t *testing.T) {
	t.Parallel()

	t.Run("commit", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := New(db, SQLite).Begin(context.Background())
		require.NoError(t, err)
		_, err = tx.Execute(context.Background(), "INSERT INTO t VALUES (1)")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.ErrorIs(t, tx.Commit(), ErrTxDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := New(db, SQLite).Begin(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin().WillReturnError(assert.AnError)

		_, err = New(db, SQLite).Begin(context.Background())
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestDB_Close(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	e := New(db, SQLite)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Execute(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Begin(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("unsupported engine", func(t *testing.T) {
		t.Parallel()
		_, err := Open(context.Background(), "oracle", "")
		if !errors.Is(err, ErrUnsupportedEngine) {
			t.Errorf("Open() error = %v, want %v", err, ErrUnsupportedEngine)
		}
	})

	t.Run("default is sqlite", func(t *testing.T) {
		t.Parallel()
		e, err := Open(context.Background(), "", "")
		require.NoError(t, err)
		defer func() { _ = e.Close() }()
		assert.Equal(t, SQLite.Name, e.Dialect().Name)
	})
}

func TestSQLite_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Execute(ctx, `CREATE TABLE "sales" ("region" TEXT, "amount" INTEGER, "ratio" REAL)`)
	require.NoError(t, err)

	tx, err := e.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Execute(ctx, `INSERT INTO "sales" VALUES (?, ?, ?)`, "east", int64(10), 0.5)
	require.NoError(t, err)
	_, err = tx.Execute(ctx, `INSERT INTO "sales" VALUES (?, ?, ?)`, "west", nil, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	result, err := e.Execute(ctx, `SELECT * FROM "sales" ORDER BY "region"`)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "east", result.Rows[0]["region"])
	assert.Equal(t, int64(10), result.Rows[0]["amount"])
	assert.InDelta(t, 0.5, result.Rows[0]["ratio"], 1e-9)
	assert.Nil(t, result.Rows[1]["amount"])

	tables, err := e.Execute(ctx, SQLite.TablesQuery)
	require.NoError(t, err)
	require.Len(t, tables.Rows, 1)
	assert.Equal(t, "sales", tables.Rows[0]["table_name"])

	columns, err := e.Execute(ctx, SQLite.ColumnsQuery, "sales")
	require.NoError(t, err)
	require.Len(t, columns.Rows, 3)
	assert.Equal(t, "region", columns.Rows[0]["column_name"])
	assert.Equal(t, "TEXT", columns.Rows[0]["data_type"])
	assert.Equal(t, "ratio", columns.Rows[2]["column_name"])
}

func TestSQLite_RollbackDiscardsRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, err := OpenSQLite(ctx, "")
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Execute(ctx, `CREATE TABLE t (a TEXT)`)
	require.NoError(t, err)

	tx, err := e.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Execute(ctx, `INSERT INTO t VALUES ('x')`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	result, err := e.Execute(ctx, `SELECT COUNT(*) AS n FROM t`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Rows[0]["n"])
}

func TestDuckDB_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	e, err := OpenDuckDB(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Execute(ctx, `CREATE TABLE "items" ("name" VARCHAR, "qty" INTEGER)`)
	require.NoError(t, err)
	_, err = e.Execute(ctx, `INSERT INTO "items" VALUES ('bolt', 3)`)
	require.NoError(t, err)

	tables, err := e.Execute(ctx, DuckDB.TablesQuery)
	require.NoError(t, err)
	require.Len(t, tables.Rows, 1)
	assert.Equal(t, "items", tables.Rows[0]["table_name"])

	columns, err := e.Execute(ctx, DuckDB.ColumnsQuery, "items")
	require.NoError(t, err)
	require.Len(t, columns.Rows, 2)
	assert.Equal(t, "name", columns.Rows[0]["column_name"])
	assert.Equal(t, "qty", columns.Rows[1]["column_name"])
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"sales"`, QuoteIdent("sales"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, `""`, QuoteIdent(""))
}
