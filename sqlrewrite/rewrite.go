package sqlrewrite

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Option configures InjectWhereClause.
type Option func(*options)

type options struct {
	topLevel bool
}

// WithTopLevelScan makes InjectWhereClause ignore clause keywords inside
// string literals, quoted identifiers, comments and parenthesized subqueries.
func WithTopLevelScan() Option {
	return func(o *options) {
		o.topLevel = true
	}
}

// InjectWhereClause splices predicate (for example "WHERE region = 'east'")
// into query ahead of its first GROUP BY, ORDER BY or LIMIT, or appends it
// when there is none. An empty predicate returns query unchanged.
//
// An existing WHERE clause is not detected, so callers must pass a base
// query without one. Injecting twice produces invalid SQL.
func InjectWhereClause(query, predicate string, opts ...Option) string {
	if predicate == "" {
		return query
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	pos := firstClauseIndex(query)
	if o.topLevel {
		pos = topLevelClauseIndex(query)
	}
	if pos < 0 {
		return strings.TrimSpace(query) + " " + predicate
	}
	return strings.TrimSpace(query[:pos]) + " " + predicate + " " + query[pos:]
}

// fromTable matches the first table reference: a double-quoted identifier or
// a run of word characters.
var fromTable = regexp.MustCompile(`(?i)\bFROM\s+("[^"]+"|\w+)`)

// SourceTable returns the first table referenced by a FROM clause exactly as
// written in query, quotes included.
func SourceTable(query string) (string, error) {
	m := fromTable.FindStringSubmatch(query)
	if m == nil {
		return "", fmt.Errorf("%w: no table found in query", ErrRewriteFailure)
	}
	return m[1], nil
}

// DrillDown builds a query selecting the rows of sourceQuery's table whose
// labelColumn equals clickedValue. The value is emitted unquoted when
// sampleRow[labelColumn] holds a number, otherwise as a quoted string.
func DrillDown(sourceQuery, labelColumn string, clickedValue any, sampleRow map[string]any) (string, error) {
	table, err := SourceTable(sourceQuery)
	if err != nil {
		return "", err
	}

	var value string
	switch {
	case clickedValue == nil:
		value = "NULL"
	case isNumber(sampleRow[labelColumn]):
		value = literalText(clickedValue)
	default:
		value = "'" + strings.ReplaceAll(literalText(clickedValue), "'", "''") + "'"
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s;", table, quoteIdent(labelColumn), value), nil
}

// kpiRowLimit caps rows returned by a summary card drill-down
const kpiRowLimit = 100

// DrillDownFromKPI builds the query behind a summary card for tableName.
func DrillDownFromKPI(tableName string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d;", quoteIdent(tableName), kpiRowLimit)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// isNumber reports whether v holds a Go numeric value.
func isNumber(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func literalText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
