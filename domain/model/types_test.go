package model

import (
	"testing"
)

func TestHeader_Equal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header1  Header
		header2  Header
		expected bool
	}{
		{
			name:     "Equal headers",
			header1:  NewHeader([]string{"col1", "col2"}),
			header2:  NewHeader([]string{"col1", "col2"}),
			expected: true,
		},
		{
			name:     "Different length",
			header1:  NewHeader([]string{"col1", "col2"}),
			header2:  NewHeader([]string{"col1"}),
			expected: false,
		},
		{
			name:     "Different order",
			header1:  NewHeader([]string{"col1", "col2"}),
			header2:  NewHeader([]string{"col2", "col1"}),
			expected: false,
		},
		{
			name:     "Both empty",
			header1:  NewHeader([]string{}),
			header2:  NewHeader([]string{}),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.header1.Equal(tt.header2); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRecord_Equal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		record1  Record
		record2  Record
		expected bool
	}{
		{
			name:     "Equal records",
			record1:  NewRecord([]string{"val1", "val2"}),
			record2:  NewRecord([]string{"val1", "val2"}),
			expected: true,
		},
		{
			name:     "Different length records",
			record1:  NewRecord([]string{"val1", "val2"}),
			record2:  NewRecord([]string{"val1"}),
			expected: false,
		},
		{
			name:     "Different content records",
			record1:  NewRecord([]string{"val1", "val2"}),
			record2:  NewRecord([]string{"val1", "val3"}),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.record1.Equal(tt.record2); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCategory_IsValid(t *testing.T) {
	t.Parallel()

	for _, c := range Categories() {
		if !c.IsValid() {
			t.Errorf("expected %q to be valid", c)
		}
	}
	if Category("pglite").IsValid() {
		t.Error("expected unknown category to be invalid")
	}
}

func TestSQLType_IsNumeric(t *testing.T) {
	t.Parallel()

	if SQLTypeText.IsNumeric() {
		t.Error("TEXT must not be numeric")
	}
	if !SQLTypeInteger.IsNumeric() || !SQLTypeReal.IsNumeric() {
		t.Error("INTEGER and REAL must be numeric")
	}
}

func TestTable_Column(t *testing.T) {
	t.Parallel()

	table := Table{
		Name: "sales",
		Columns: []Column{
			{OriginalName: "Region", SanitizedName: "region", SQLType: SQLTypeText},
			{OriginalName: "Sales", SanitizedName: "sales", SQLType: SQLTypeInteger},
		},
	}

	col, ok := table.Column("Sales")
	if !ok {
		t.Fatal("expected column to be found")
	}
	if col.SQLType != SQLTypeInteger {
		t.Errorf("expected INTEGER, got %s", col.SQLType)
	}
	if _, ok := table.Column("sales"); ok {
		t.Error("lookup must use the original name")
	}

	names := table.ColumnNames()
	if len(names) != 2 || names[0] != "region" || names[1] != "sales" {
		t.Errorf("unexpected column names %v", names)
	}
}
