package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// CJK unified ideographs accepted verbatim in identifiers
const (
	cjkFirst = '一'
	cjkLast  = '龥'
)

// isIdentifierRune reports whether r survives sanitization unchanged.
func isIdentifierRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= cjkFirst && r <= cjkLast:
		return true
	default:
		return false
	}
}

// SanitizeIdentifier replaces every character outside [A-Za-z0-9_] and the CJK
// ideograph block with '_' and lowercases the result. Characters outside the
// basic multilingual plane count as two UTF-16 units and become "__".
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isIdentifierRune(r) {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			b.WriteRune(r)
			continue
		}
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		b.WriteString(strings.Repeat("_", n))
	}
	return b.String()
}

// isPlaceholderName reports whether a sanitized name carries no information.
func isPlaceholderName(name string) bool {
	return strings.Trim(name, "_") == ""
}

// SanitizeHeaders turns raw headers into unique engine-safe column names.
// Empty or underscore-only names become column_<i> (1-based), and repeats get
// _1, _2, ... appended while the first occurrence keeps the bare name.
func SanitizeHeaders(header Header) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))

	for i, h := range header {
		base := SanitizeIdentifier(h)
		if isPlaceholderName(base) {
			base = fmt.Sprintf("column_%d", i+1)
		}

		name := base
		for counter := 1; used[name]; counter++ {
			name = fmt.Sprintf("%s_%d", base, counter)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// InferColumns builds column definitions from the header and the first data
// row only. A later numeric row never upgrades a column inferred as TEXT.
func InferColumns(header Header, records []Record) []Column {
	names := SanitizeHeaders(header)

	var sample Record
	if len(records) > 0 {
		sample = records[0]
	}

	columns := make([]Column, len(header))
	for i, h := range header {
		value := ""
		if i < len(sample) {
			value = sample[i]
		}
		columns[i] = Column{
			OriginalName:  h,
			SanitizedName: names[i],
			SQLType:       InferType(value),
		}
	}
	return columns
}

// InferType classifies a single sample value.
func InferType(value string) SQLType {
	if strings.TrimSpace(value) == "" {
		return SQLTypeText
	}
	if _, ok := ParseNumber(value); !ok {
		return SQLTypeText
	}
	if strings.Contains(value, ".") {
		return SQLTypeReal
	}
	return SQLTypeInteger
}

// ParseNumber parses a numeric literal: decimal with optional sign, fraction
// and exponent, or an unsigned 0x/0o/0b integer. Infinities, NaN and digit
// separators are rejected.
func ParseNumber(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	if s == "" || strings.Contains(s, "_") {
		return 0, false
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// CoerceCell converts a raw cell to the value stored for a column of type t.
// Blank cells and unparseable numbers become nil. Integral values in INTEGER
// columns are returned as int64, other numbers as float64.
func CoerceCell(value string, t SQLType) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if !t.IsNumeric() {
		return value
	}

	f, ok := ParseNumber(value)
	if !ok {
		return nil
	}
	if t == SQLTypeInteger && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// CoerceRecord converts a record against the column definitions. Missing
// trailing cells become nil.
func CoerceRecord(record Record, columns []Column) []any {
	values := make([]any, len(columns))
	for i, col := range columns {
		if i < len(record) {
			values[i] = CoerceCell(record[i], col.SQLType)
		}
	}
	return values
}
