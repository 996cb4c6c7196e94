package sqlrewrite

import "strings"

// clauseKeywords are the clauses a WHERE predicate must precede.
var clauseKeywords = []string{"GROUP BY", "ORDER BY", "LIMIT"}

// upperASCII uppercases ASCII letters only so byte offsets stay valid in the
// original string.
func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func isWordByte(c byte) bool {
	return c == '_' ||
		('A' <= c && c <= 'Z') ||
		('a' <= c && c <= 'z') ||
		('0' <= c && c <= '9') ||
		c >= 0x80
}

// firstClauseIndex returns the smallest offset of any clause keyword found
// anywhere in query, or -1.
func firstClauseIndex(query string) int {
	upper := upperASCII(query)
	pos := -1
	for _, kw := range clauseKeywords {
		if i := strings.Index(upper, kw); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	return pos
}

// topLevelClauseIndex returns the offset of the first clause keyword that
// stands as a whole word outside quotes, comments and parentheses, or -1.
func topLevelClauseIndex(query string) int {
	upper := upperASCII(query)
	depth := 0
	for i := 0; i < len(upper); {
		c := upper[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(upper, i)
		case strings.HasPrefix(upper[i:], "--"):
			if j := strings.IndexByte(upper[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(upper)
			}
		case strings.HasPrefix(upper[i:], "/*"):
			if j := strings.Index(upper[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(upper)
			}
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isWordByte(c):
			if depth == 0 && hasClauseAt(upper[i:]) {
				return i
			}
			for i < len(upper) && isWordByte(upper[i]) {
				i++
			}
		default:
			i++
		}
	}
	return -1
}

// skipQuoted returns the offset just past the quoted run starting at i.
// A doubled quote character inside the run is an escaped quote.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// hasClauseAt reports whether s starts with a whole-word clause keyword.
func hasClauseAt(s string) bool {
	for _, kw := range clauseKeywords {
		if matchWords(s, strings.Fields(kw)) {
			return true
		}
	}
	return false
}

func matchWords(s string, words []string) bool {
	for n, w := range words {
		if n > 0 {
			t := strings.TrimLeft(s, " \t\r\n")
			if len(t) == len(s) {
				return false
			}
			s = t
		}
		if !strings.HasPrefix(s, w) {
			return false
		}
		s = s[len(w):]
	}
	return s == "" || !isWordByte(s[0])
}
