package sqlrewrite

import (
	"regexp"
	"strings"
)

var (
	whitespace    = regexp.MustCompile(`\s+`)
	selectKeyword = regexp.MustCompile(`(?i)\bSELECT\b\s`)
	spaceNewline  = regexp.MustCompile(` +\n`)
)

// newlineKeywords start a new line in formatted output
var newlineKeywords = []string{
	"FROM", "WHERE", "GROUP BY", "ORDER BY", "LIMIT",
	"LEFT JOIN", "RIGHT JOIN", "INNER JOIN", "ON",
}

var newlinePatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(newlineKeywords))
	for i, kw := range newlineKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}()

// Format lays out a query for display. Whitespace runs collapse to a single
// space, the select list is indented under SELECT, and FROM, WHERE, GROUP BY,
// ORDER BY, LIMIT, joins and ON start new lines. Keywords are uppercased.
func Format(query string) string {
	formatted := strings.TrimSpace(whitespace.ReplaceAllString(query, " "))
	formatted = selectKeyword.ReplaceAllString(formatted, "SELECT\n  ")
	for i, re := range newlinePatterns {
		formatted = re.ReplaceAllLiteralString(formatted, "\n"+newlineKeywords[i])
	}
	formatted = spaceNewline.ReplaceAllString(formatted, "\n")
	return strings.TrimPrefix(formatted, "\n")
}
