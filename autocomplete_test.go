package datalab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/datalab/domain/model"
)

var suggestTables = []model.Table{
	{
		Name: "sales",
		Columns: []model.Column{
			{OriginalName: "region", SanitizedName: "region", SQLType: model.SQLTypeText},
			{OriginalName: "revenue", SanitizedName: "revenue", SQLType: model.SQLTypeReal},
		},
	},
	{
		Name: "staff",
		Columns: []model.Column{
			{OriginalName: "name", SanitizedName: "name", SQLType: model.SQLTypeText},
		},
	},
}

func suggestionTexts(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.Text
	}
	return out
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "tables after from",
			query: "SELECT * FROM s",
			want:  []string{"sales", "staff"},
		},
		{
			name:  "tables after join",
			query: "SELECT * FROM sales JOIN st",
			want:  []string{"staff"},
		},
		{
			name:  "columns then keywords after where",
			query: "SELECT * FROM sales WHERE r",
			want:  []string{`"region"`, `"revenue"`, "RIGHT JOIN"},
		},
		{
			name:  "columns after comma",
			query: "SELECT region,r",
			want:  []string{"RIGHT JOIN"},
		},
		{
			name:  "keywords tables and columns elsewhere",
			query: "s",
			want:  []string{"SELECT", "SET", "SUM", "sales", "staff"},
		},
		{
			name:  "prefix ignores quotes and case",
			query: `SELECT * FROM sales WHERE "REV`,
			want:  []string{`"revenue"`},
		},
		{
			name:  "no word before cursor",
			query: "SELECT * FROM ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := suggest(suggestTables, tt.query, len(tt.query))
			assert.Equal(t, tt.want, append([]string{}, suggestionTexts(got)...))
		})
	}
}

func TestSuggest_ColumnKindAndDisplay(t *testing.T) {
	t.Parallel()

	got := suggest(suggestTables, "SELECT * FROM sales WHERE reg", len("SELECT * FROM sales WHERE reg"))
	require.Len(t, got, 1)
	assert.Equal(t, Suggestion{Text: `"region"`, Kind: SuggestionColumn, Display: "region (sales)"}, got[0])
}

func TestSuggest_CapsAtTen(t *testing.T) {
	t.Parallel()

	tables := make([]model.Table, 0, 20)
	for _, name := range []string{
		"t01", "t02", "t03", "t04", "t05", "t06", "t07", "t08", "t09", "t10", "t11", "t12",
	} {
		tables = append(tables, model.Table{Name: name})
	}
	got := suggest(tables, "SELECT * FROM t", len("SELECT * FROM t"))
	assert.Len(t, got, maxSuggestions)
	assert.Equal(t, "t01", got[0].Text)
}

func TestSuggest_CursorInsideQuery(t *testing.T) {
	t.Parallel()

	query := "SELECT * FROM st WHERE x = 1"
	got := suggest(suggestTables, query, len("SELECT * FROM st"))
	assert.Equal(t, []string{"staff"}, suggestionTexts(got))

	assert.Empty(t, suggest(suggestTables, query, -5))
	assert.Equal(t, "1", CurrentWord(query, 1000))
}

func TestApplySuggestion(t *testing.T) {
	t.Parallel()

	query := "SELECT * FROM st WHERE x = 1"
	cursor := len("SELECT * FROM st")

	got, newCursor := ApplySuggestion(query, cursor, Suggestion{Text: "staff", Kind: SuggestionTable})
	assert.Equal(t, "SELECT * FROM staff  WHERE x = 1", got)
	assert.Equal(t, len("SELECT * FROM staff "), newCursor)
}

func TestWorkspace_Suggest(t *testing.T) {
	t.Parallel()

	w := newTestWorkspace(t)
	require.NoError(t, w.LoadSamples(t.Context()))

	got := w.Suggest("SELECT * FROM sa", len("SELECT * FROM sa"))
	assert.Equal(t, []string{"sales_data"}, suggestionTexts(got))
}
