package sqlrewrite

import (
	"regexp"
	"strings"
)

var (
	fromRef = regexp.MustCompile(`\bFROM\s+("?\w+"?)`)
	joinRef = regexp.MustCompile(`\bJOIN\s+("?\w+"?)`)
)

// ReferencedTables returns the table named by the first FROM clause followed
// by every table named by a JOIN, unquoted and in order of appearance.
// Names are compared case-insensitively and returned as first written.
func ReferencedTables(query string) []string {
	upper := upperASCII(query)

	var spans [][]int
	if m := fromRef.FindStringSubmatchIndex(upper); m != nil {
		spans = append(spans, m[2:4])
	}
	for _, m := range joinRef.FindAllStringSubmatchIndex(upper, -1) {
		spans = append(spans, m[2:4])
	}

	seen := make(map[string]bool, len(spans))
	tables := make([]string, 0, len(spans))
	for _, s := range spans {
		name := strings.ReplaceAll(query[s[0]:s[1]], `"`, "")
		key := strings.ToUpper(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		tables = append(tables, name)
	}
	return tables
}
