package datalab

import (
	"regexp"
	"strings"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/sqlrewrite"
)

// SuggestionKind classifies an autocompletion candidate.
type SuggestionKind string

const (
	// SuggestionKeyword is an SQL keyword
	SuggestionKeyword SuggestionKind = "keyword"
	// SuggestionTable is a catalog table
	SuggestionTable SuggestionKind = "table"
	// SuggestionColumn is a column of a table the query references
	SuggestionColumn SuggestionKind = "column"
)

// Suggestion is one autocompletion candidate.
type Suggestion struct {
	// Text is inserted into the query.
	Text string `json:"text"`
	Kind SuggestionKind `json:"kind"`
	// Display is shown instead of Text when set.
	Display string `json:"display,omitempty"`
}

// maxSuggestions caps the candidates returned by Suggest
const maxSuggestions = 10

var sqlKeywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY", "LIMIT", "JOIN", "LEFT JOIN",
	"RIGHT JOIN", "INNER JOIN", "ON", "AS", "INSERT INTO", "VALUES", "UPDATE", "SET",
	"DELETE FROM", "CREATE TABLE", "DROP TABLE", "ALTER TABLE", "ADD", "DISTINCT",
	"COUNT", "SUM", "AVG", "MIN", "MAX", "AND", "OR", "NOT", "IN", "LIKE", "BETWEEN",
	"IS NULL", "IS NOT NULL", "HAVING", "ASC", "DESC", "CASE", "WHEN", "THEN", "ELSE", "END",
}

var (
	currentWordPattern = regexp.MustCompile(`[\w"]+$`)
	lastKeywordPattern = regexp.MustCompile(`\b(SELECT|FROM|JOIN|WHERE|GROUP BY|ORDER BY|ON)$`)
)

// CurrentWord returns the identifier-like word that ends at the byte offset
// cursor.
func CurrentWord(query string, cursor int) string {
	return currentWordPattern.FindString(query[:clampCursor(query, cursor)])
}

// Suggest returns up to ten completions for the word ending at the byte
// offset cursor. After FROM or JOIN it offers tables. After SELECT, WHERE,
// GROUP BY, ORDER BY, ON or a comma it offers columns of the tables the query
// references, then keywords. Otherwise it offers keywords, tables and columns.
// Candidates are matched by case-insensitive prefix, ignoring double quotes.
func (w *Workspace) Suggest(query string, cursor int) []Suggestion {
	return suggest(w.Tables(), query, cursor)
}

func suggest(tables []model.Table, query string, cursor int) []Suggestion {
	cursor = clampCursor(query, cursor)
	word := currentWordPattern.FindString(query[:cursor])
	prefix := strings.ToLower(strings.ReplaceAll(word, `"`, ""))
	if prefix == "" {
		return nil
	}

	before := query[:cursor-len(word)]
	lastKeyword := ""
	if m := lastKeywordPattern.FindStringSubmatch(strings.TrimSpace(strings.ToUpper(before))); m != nil {
		lastKeyword = m[1]
	}

	var candidates []Suggestion
	switch {
	case lastKeyword == "FROM" || lastKeyword == "JOIN":
		candidates = tableSuggestions(tables)
	case lastKeyword != "" || strings.HasSuffix(before, ","):
		candidates = append(columnSuggestions(tables, query), keywordSuggestions()...)
	default:
		candidates = keywordSuggestions()
		candidates = append(candidates, tableSuggestions(tables)...)
		candidates = append(candidates, columnSuggestions(tables, query)...)
	}

	seen := make(map[string]bool)
	out := make([]Suggestion, 0, maxSuggestions)
	for _, c := range candidates {
		if !strings.HasPrefix(strings.ToLower(strings.ReplaceAll(c.Text, `"`, "")), prefix) {
			continue
		}
		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		out = append(out, c)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// ApplySuggestion replaces the word ending at cursor with s.Text followed by
// a space. It returns the new query and the cursor position after the
// inserted text.
func ApplySuggestion(query string, cursor int, s Suggestion) (string, int) {
	cursor = clampCursor(query, cursor)
	word := currentWordPattern.FindString(query[:cursor])
	before := query[:cursor-len(word)]
	return before + s.Text + " " + query[cursor:], len(before) + len(s.Text) + 1
}

func keywordSuggestions() []Suggestion {
	out := make([]Suggestion, len(sqlKeywords))
	for i, k := range sqlKeywords {
		out[i] = Suggestion{Text: k, Kind: SuggestionKeyword}
	}
	return out
}

func tableSuggestions(tables []model.Table) []Suggestion {
	out := make([]Suggestion, len(tables))
	for i, t := range tables {
		out[i] = Suggestion{Text: t.Name, Kind: SuggestionTable}
	}
	return out
}

// columnSuggestions offers the columns of every catalog table the query
// references, matched case-insensitively.
func columnSuggestions(tables []model.Table, query string) []Suggestion {
	var out []Suggestion
	for _, ref := range sqlrewrite.ReferencedTables(query) {
		for _, t := range tables {
			if !strings.EqualFold(t.Name, ref) {
				continue
			}
			for _, c := range t.Columns {
				out = append(out, Suggestion{
					Text:    `"` + c.SanitizedName + `"`,
					Kind:    SuggestionColumn,
					Display: c.SanitizedName + " (" + t.Name + ")",
				})
			}
			break
		}
	}
	return out
}

func clampCursor(query string, cursor int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > len(query) {
		return len(query)
	}
	return cursor
}
