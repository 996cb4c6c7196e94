// Package output renders query results and catalog listings for the CLI.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

// Formats.
const (
	Table = "table"
	CSV   = "csv"
	JSON  = "json"
)

// fder is implemented by *os.File.
type fder interface {
	Fd() uintptr
}

// Resolve returns explicit when set. Otherwise it picks Table when w is a
// terminal and CSV when output is piped or redirected.
func Resolve(explicit string, w io.Writer) string {
	if explicit != "" {
		return explicit
	}
	if f, ok := w.(fder); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return Table
	}
	return CSV
}

// Result writes a statement result in format. Statements without a result
// set print the affected row count.
func Result(w io.Writer, r *engine.Result, format string) error {
	if len(r.Fields) == 0 {
		if format == JSON {
			return writeJSON(w, map[string]int64{"rowsAffected": r.RowsAffected})
		}
		_, err := fmt.Fprintf(w, "OK (%d rows affected)\n", r.RowsAffected)
		return err
	}

	cols := r.FieldNames()
	switch format {
	case JSON:
		return writeJSON(w, r.Rows)
	case CSV:
		return writeCSV(w, cols, r.Rows)
	default:
		return writeTable(w, cols, r.Rows)
	}
}

func writeTable(w io.Writer, cols []string, rows []engine.Row) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = Value(r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return err
}

func writeCSV(w io.Writer, cols []string, rows []engine.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		for i, col := range cols {
			if r[col] == nil {
				record[i] = ""
				continue
			}
			record[i] = Value(r[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Value formats a single cell for display.
func Value(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// Tables writes the catalog: one row per table with its category and columns.
func Tables(w io.Writer, tables []model.Table, format string) error {
	switch format {
	case JSON:
		if tables == nil {
			tables = []model.Table{}
		}
		return writeJSON(w, tables)
	case CSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"table", "category", "column", "type"}); err != nil {
			return err
		}
		for _, tbl := range tables {
			for _, c := range tbl.Columns {
				if err := cw.Write([]string{tbl.Name, tbl.Category.String(), c.SanitizedName, c.SQLType.String()}); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Category", "Columns"})
	for _, tbl := range tables {
		cols := make([]string, len(tbl.Columns))
		for i, c := range tbl.Columns {
			cols[i] = fmt.Sprintf("%s %s", c.SanitizedName, c.SQLType)
		}
		t.AppendRow(table.Row{tbl.Name, tbl.Category, strings.Join(cols, ", ")})
	}
	t.Render()
	_, err := fmt.Fprintf(w, "(%d tables)\n", len(tables))
	return err
}
