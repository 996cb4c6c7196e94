// Package sqlrewrite rewrites SQL text produced by the data lab UI.
//
// It injects filter predicates into base queries, synthesizes drill-down
// queries from chart and summary card clicks, extracts the tables a query
// references and lays queries out for display. None of these functions parse
// SQL; they work on keyword positions in the text. By default clause keywords
// are found anywhere in the query, including inside string literals and
// subqueries. WithTopLevelScan restricts the search to the outermost query.
package sqlrewrite
