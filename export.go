package datalab

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/datalab/engine"
)

// OutputFormat represents the output file format
type OutputFormat int

const (
	// OutputFormatCSV represents CSV output format
	OutputFormatCSV OutputFormat = iota
	// OutputFormatTSV represents TSV output format
	OutputFormatTSV
	// OutputFormatParquet represents Parquet output format
	OutputFormatParquet
	// OutputFormatXLSX represents Excel XLSX output format
	OutputFormatXLSX
)

// String returns the string representation of OutputFormat
func (f OutputFormat) String() string {
	switch f {
	case OutputFormatTSV:
		return "tsv"
	case OutputFormatParquet:
		return "parquet"
	case OutputFormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

// Extension returns the file extension for the format
func (f OutputFormat) Extension() string {
	return "." + f.String()
}

// ParseOutputFormat converts a format name to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return OutputFormatCSV, nil
	case "tsv":
		return OutputFormatTSV, nil
	case "parquet":
		return OutputFormatParquet, nil
	case "xlsx":
		return OutputFormatXLSX, nil
	default:
		return OutputFormatCSV, fmt.Errorf("unknown output format: %s", s)
	}
}

// DumpOptions configures how tables are exported.
//
// Example:
//
//	options := NewDumpOptions().
//		WithFormat(OutputFormatTSV).
//		WithCompression(CompressionGZ)
type DumpOptions struct {
	// Format specifies the output file format
	Format OutputFormat
	// Compression specifies the compression type
	Compression CompressionType
}

// NewDumpOptions creates default export options (CSV, no compression).
func NewDumpOptions() DumpOptions {
	return DumpOptions{
		Format:      OutputFormatCSV,
		Compression: CompressionNone,
	}
}

// WithFormat sets the output file format.
func (o DumpOptions) WithFormat(format OutputFormat) DumpOptions {
	o.Format = format
	return o
}

// WithCompression adds compression to output files. Bzip2 cannot be written.
func (o DumpOptions) WithCompression(compression CompressionType) DumpOptions {
	o.Compression = compression
	return o
}

// FileExtension returns the complete file extension including compression
func (o DumpOptions) FileExtension() string {
	return o.Format.Extension() + o.Compression.Extension()
}

// Export writes every row of a catalog table to out.
func (w *Workspace) Export(ctx context.Context, table string, out io.Writer, opts DumpOptions) error {
	e, err := w.engineOrFail()
	if err != nil {
		return err
	}
	if _, ok := w.Table(table); !ok {
		return fmt.Errorf("table not found: %s", table)
	}

	result, err := e.Execute(ctx, "SELECT * FROM "+engine.QuoteIdent(table))
	if err != nil {
		return NewErrorContext("export", "").WithTable(table).Error(err)
	}

	fields := result.FieldNames()
	rows := make([][]any, len(result.Rows))
	for i, r := range result.Rows {
		row := make([]any, len(fields))
		for j, f := range fields {
			row[j] = r[f]
		}
		rows[i] = row
	}

	writer, closeWriter, err := newCompressingWriter(out, opts.Compression)
	if err != nil {
		return err
	}
	if err := writeRows(writer, table, fields, rows, opts.Format); err != nil {
		return errors.Join(NewErrorContext("export", "").WithTable(table).Error(err), closeWriter())
	}
	return closeWriter()
}

// ExportFile exports a table to dir/<table><ext> and returns the file path.
func (w *Workspace) ExportFile(ctx context.Context, table, dir string, opts DumpOptions) (path string, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path = filepath.Join(dir, table+opts.FileExtension())
	f, err := os.Create(path) //nolint:gosec // output path is built from a catalog table name
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := w.Export(ctx, table, f, opts); err != nil {
		return "", err
	}
	return path, nil
}

// ExportAll exports every catalog table into dir. It fails with ErrNoTables
// when the catalog is empty.
func (w *Workspace) ExportAll(ctx context.Context, dir string, opts DumpOptions) ([]string, error) {
	names := w.TableNames()
	if len(names) == 0 {
		return nil, ErrNoTables
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path, err := w.ExportFile(ctx, name, dir, opts)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeRows(out io.Writer, table string, fields []string, rows [][]any, format OutputFormat) error {
	switch format {
	case OutputFormatParquet:
		return writeParquet(out, fields, rows)
	case OutputFormatXLSX:
		return writeXLSX(out, table, fields, rows)
	case OutputFormatTSV:
		return writeDelimited(out, '\t', fields, rows)
	default:
		return writeDelimited(out, ',', fields, rows)
	}
}

func writeDelimited(out io.Writer, comma rune, fields []string, rows [][]any) error {
	cw := csv.NewWriter(out)
	cw.Comma = comma
	if err := cw.Write(fields); err != nil {
		return err
	}
	record := make([]string, len(fields))
	for _, row := range rows {
		for i := range record {
			record[i] = cellText(row[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// maxSheetNameLength is the Excel limit on sheet names
const maxSheetNameLength = 31

func writeXLSX(out io.Writer, table string, fields []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() // Ignore close error
	}()

	sheet := table
	if len(sheet) > maxSheetNameLength {
		sheet = sheet[:maxSheetNameLength]
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(fields))
	for i, name := range fields {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = cellText(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(out)
}

// cellText renders an engine value for text output. NULL becomes "".
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
