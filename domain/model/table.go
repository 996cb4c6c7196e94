package model

import (
	"path/filepath"
	"strings"
)

// Compression extensions stripped before the file type extension
var compressionExtensions = []string{".gz", ".bz2", ".xz", ".zst"}

// defaultTableName is used when a source name sanitizes to nothing.
const defaultTableName = "table"

// Dataset represents parsed source contents ready to be loaded as a table.
type Dataset struct {
	// name is the table name derived from the source.
	name string
	// header is the raw header row.
	header Header
	// records are the raw data rows.
	records []Record
	// columns are the inferred column definitions
	columns []Column
}

// NewDataset create new Dataset.
func NewDataset(
	name string,
	header Header,
	records []Record,
) *Dataset {
	return &Dataset{
		name:    name,
		header:  header,
		records: records,
		columns: InferColumns(header, records),
	}
}

// Name return table name.
func (d *Dataset) Name() string {
	return d.name
}

// Header return raw header.
func (d *Dataset) Header() Header {
	return d.header
}

// Records return raw records.
func (d *Dataset) Records() []Record {
	return d.records
}

// Columns returns the inferred column definitions
func (d *Dataset) Columns() []Column {
	return d.columns
}

// Rows returns every record coerced against the inferred columns.
func (d *Dataset) Rows() [][]any {
	rows := make([][]any, len(d.records))
	for i, r := range d.records {
		rows[i] = CoerceRecord(r, d.columns)
	}
	return rows
}

// Equal compare Dataset.
func (d *Dataset) Equal(d2 *Dataset) bool {
	if d.Name() != d2.Name() {
		return false
	}
	if !d.header.Equal(d2.header) {
		return false
	}
	if len(d.Records()) != len(d2.Records()) {
		return false
	}
	for i, record := range d.Records() {
		if !record.Equal(d2.Records()[i]) {
			return false
		}
	}
	return true
}

// TableNameFromSource derives a table name from a source identifier such as a
// file name: directories, a compression extension and then the file type
// extension are removed, and the rest is sanitized like a header.
func TableNameFromSource(source string) string {
	fileName := source
	if i := strings.LastIndexAny(fileName, `/\`); i >= 0 {
		fileName = fileName[i+1:]
	}
	for _, ext := range compressionExtensions {
		if strings.HasSuffix(strings.ToLower(fileName), ext) {
			fileName = fileName[:len(fileName)-len(ext)]
			break
		}
	}
	fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName))

	name := SanitizeIdentifier(fileName)
	if name == "" {
		return defaultTableName
	}
	return name
}
