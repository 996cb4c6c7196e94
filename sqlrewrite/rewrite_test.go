package sqlrewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectWhereClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		predicate string
		want      string
	}{
		{
			name:      "appended when no trailing clause",
			query:     "SELECT a FROM t",
			predicate: "WHERE a=1",
			want:      "SELECT a FROM t WHERE a=1",
		},
		{
			name:      "trailing whitespace trimmed before append",
			query:     "SELECT a FROM t \n ",
			predicate: "WHERE a=1",
			want:      "SELECT a FROM t WHERE a=1",
		},
		{
			name:      "inserted before group by",
			query:     "SELECT a FROM t GROUP BY a",
			predicate: "WHERE a=1",
			want:      "SELECT a FROM t WHERE a=1 GROUP BY a",
		},
		{
			name:      "inserted before earliest clause",
			query:     "SELECT a FROM t ORDER BY a LIMIT 5",
			predicate: "WHERE a=1",
			want:      "SELECT a FROM t WHERE a=1 ORDER BY a LIMIT 5",
		},
		{
			name:      "lowercase keywords are found",
			query:     "select a from t group by a order by a",
			predicate: "WHERE a=1",
			want:      "select a from t WHERE a=1 group by a order by a",
		},
		{
			name:      "limit only",
			query:     "SELECT * FROM t LIMIT 10",
			predicate: "WHERE x > 0",
			want:      "SELECT * FROM t WHERE x > 0 LIMIT 10",
		},
		{
			name:      "empty predicate leaves query untouched",
			query:     "  SELECT a FROM t  ",
			predicate: "",
			want:      "  SELECT a FROM t  ",
		},
		{
			name:      "existing where is not merged",
			query:     "SELECT a FROM t WHERE b=2",
			predicate: "WHERE a=1",
			want:      "SELECT a FROM t WHERE b=2 WHERE a=1",
		},
		{
			name:      "keyword inside literal is matched",
			query:     "SELECT 'no limit' AS note FROM t",
			predicate: "WHERE a=1",
			want:      "SELECT 'no WHERE a=1 limit' AS note FROM t",
		},
		{
			name:      "keyword inside identifier is matched",
			query:     "SELECT credit_limited FROM t",
			predicate: "WHERE a=1",
			want:      "SELECT credit_ WHERE a=1 limited FROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InjectWhereClause(tt.query, tt.predicate))
		})
	}
}

func TestInjectWhereClause_TopLevelScan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "literal is skipped",
			query: "SELECT 'no limit' AS note FROM t",
			want:  "SELECT 'no limit' AS note FROM t WHERE a=1",
		},
		{
			name:  "escaped quote inside literal",
			query: "SELECT 'it''s ORDER BY' FROM t ORDER BY 1",
			want:  "SELECT 'it''s ORDER BY' FROM t WHERE a=1 ORDER BY 1",
		},
		{
			name:  "quoted identifier is skipped",
			query: `SELECT "limit" FROM t`,
			want:  `SELECT "limit" FROM t WHERE a=1`,
		},
		{
			name:  "subquery is skipped",
			query: "SELECT * FROM (SELECT a FROM u GROUP BY a) s ORDER BY a",
			want:  "SELECT * FROM (SELECT a FROM u GROUP BY a) s WHERE a=1 ORDER BY a",
		},
		{
			name:  "word boundary required",
			query: "SELECT credit_limited FROM t",
			want:  "SELECT credit_limited FROM t WHERE a=1",
		},
		{
			name:  "comment is skipped",
			query: "SELECT a FROM t /* limit rows */ GROUP BY a",
			want:  "SELECT a FROM t /* limit rows */ WHERE a=1 GROUP BY a",
		},
		{
			name:  "multiple spaces between words",
			query: "SELECT a FROM t GROUP   BY a",
			want:  "SELECT a FROM t WHERE a=1 GROUP   BY a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InjectWhereClause(tt.query, "WHERE a=1", WithTopLevelScan()))
		})
	}
}

func TestDrillDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		column    string
		value     any
		sampleRow map[string]any
		want      string
	}{
		{
			name:      "numeric value stays unquoted",
			query:     `SELECT "r","s" FROM "sales_data"`,
			column:    "r",
			value:     5,
			sampleRow: map[string]any{"r": 5},
			want:      `SELECT * FROM "sales_data" WHERE "r" = 5;`,
		},
		{
			name:      "string value is quoted and escaped",
			query:     `SELECT "r" FROM "t"`,
			column:    "r",
			value:     "O'Brien",
			sampleRow: map[string]any{"r": "x"},
			want:      `SELECT * FROM "t" WHERE "r" = 'O''Brien';`,
		},
		{
			name:      "type hint decides quoting",
			query:     "select region, total from sales group by region",
			column:    "total",
			value:     "42",
			sampleRow: map[string]any{"total": float64(42)},
			want:      `SELECT * FROM sales WHERE "total" = 42;`,
		},
		{
			name:      "missing hint is treated as string",
			query:     "SELECT * FROM sales",
			column:    "region",
			value:     12,
			sampleRow: nil,
			want:      `SELECT * FROM sales WHERE "region" = '12';`,
		},
		{
			name:      "float value",
			query:     "SELECT * FROM sales",
			column:    "amount",
			value:     2.5,
			sampleRow: map[string]any{"amount": int64(1)},
			want:      `SELECT * FROM sales WHERE "amount" = 2.5;`,
		},
		{
			name:      "nil value",
			query:     "SELECT * FROM sales",
			column:    "region",
			value:     nil,
			sampleRow: map[string]any{"region": "x"},
			want:      `SELECT * FROM sales WHERE "region" = NULL;`,
		},
		{
			name:      "first table is used",
			query:     `SELECT * FROM "a" JOIN b ON a.id = b.id`,
			column:    "id",
			value:     1,
			sampleRow: map[string]any{"id": 1},
			want:      `SELECT * FROM "a" WHERE "id" = 1;`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DrillDown(tt.query, tt.column, tt.value, tt.sampleRow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDrillDown_NoTable(t *testing.T) {
	t.Parallel()

	got, err := DrillDown("SELECT 1", "a", 1, map[string]any{"a": 1})
	if !errors.Is(err, ErrRewriteFailure) {
		t.Errorf("DrillDown() error = %v, want %v", err, ErrRewriteFailure)
	}
	if got != "" {
		t.Errorf("DrillDown() = %q, want empty", got)
	}
}

func TestDrillDownFromKPI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `SELECT * FROM "sales_data" LIMIT 100;`, DrillDownFromKPI("sales_data"))
	assert.Equal(t, `SELECT * FROM "we""ird" LIMIT 100;`, DrillDownFromKPI(`we"ird`))
}

func TestIsNumber(t *testing.T) {
	t.Parallel()

	for _, v := range []any{1, int8(1), int64(1), uint(1), uint32(1), float32(1), 1.5} {
		assert.True(t, isNumber(v), "%T", v)
	}
	for _, v := range []any{nil, "1", true, []byte("1")} {
		assert.False(t, isNumber(v), "%T", v)
	}
}
