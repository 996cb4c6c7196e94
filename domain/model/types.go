// Package model provides domain model for datalab
package model

// Header is source header.
type Header []string

// NewHeader create new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// Equal compare Header.
func (h Header) Equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// Record is one source row.
type Record []string

// NewRecord create new Record.
func NewRecord(r []string) Record {
	return Record(r)
}

// Equal compare Record.
func (r Record) Equal(r2 Record) bool {
	if len(r) != len(r2) {
		return false
	}
	for i, v := range r {
		if v != r2[i] {
			return false
		}
	}
	return true
}

// SQLType is the declared type of a column. Loaded tables only use TEXT, INTEGER
// and REAL; tables created by other DDL carry whatever the engine reports, uppercased.
type SQLType string

const (
	// SQLTypeText is the SQL TEXT type
	SQLTypeText SQLType = "TEXT"
	// SQLTypeInteger is the SQL INTEGER type
	SQLTypeInteger SQLType = "INTEGER"
	// SQLTypeReal is the SQL REAL type
	SQLTypeReal SQLType = "REAL"
)

// String returns the SQL type string
func (t SQLType) String() string {
	return string(t)
}

// IsNumeric reports whether values of the type are coerced to numbers on load.
func (t SQLType) IsNumeric() bool {
	return t != SQLTypeText
}

// Category records why a table exists.
type Category string

const (
	// CategoryBuiltin marks tables loaded from bundled sample data
	CategoryBuiltin Category = "builtin"
	// CategoryUploaded marks user uploads and tables created through SQL
	CategoryUploaded Category = "uploaded"
	// CategoryExternal marks tables attached from an external source
	CategoryExternal Category = "external"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{CategoryBuiltin, CategoryUploaded, CategoryExternal}
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryBuiltin, CategoryUploaded, CategoryExternal:
		return true
	default:
		return false
	}
}

// String returns the category name
func (c Category) String() string {
	return string(c)
}

// Column describes one column of a catalog table.
type Column struct {
	// OriginalName is the name as given in the source text.
	OriginalName string `json:"originalName"`
	// SanitizedName is the engine-safe identifier, unique within its table.
	SanitizedName string `json:"sanitizedName"`
	// SQLType is the declared column type.
	SQLType SQLType `json:"sqlType"`
}

// Table is the catalog view of one engine table.
type Table struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	Category Category `json:"category"`
}

// Column looks up a column by its original name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.OriginalName == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the sanitized column names in table order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.SanitizedName
	}
	return names
}

// SelectedColumn is a user-chosen (table, column) pair.
type SelectedColumn struct {
	TableName  string  `json:"tableName"`
	ColumnName string  `json:"columnName"`
	SQLType    SQLType `json:"sqlType"`
}

// SelectionState is the tri-state summary of a table's selected columns.
type SelectionState string

const (
	// SelectionNone means no column of the table is selected
	SelectionNone SelectionState = "none"
	// SelectionSome means part of the table is selected
	SelectionSome SelectionState = "some"
	// SelectionAll means every column of the table is selected
	SelectionAll SelectionState = "all"
)
