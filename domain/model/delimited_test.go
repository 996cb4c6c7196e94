package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelimited(t *testing.T) {
	t.Parallel()

	t.Run("blank lines dropped and quotes stripped", func(t *testing.T) {
		t.Parallel()

		text := "\"Region\", Sales \n\n  \nNorth,\"1500\"\r\nSouth , 1250\n"
		header, records, err := ParseDelimited(text)
		require.NoError(t, err)

		assert.Equal(t, NewHeader([]string{"Region", "Sales"}), header)
		assert.Equal(t, []Record{
			NewRecord([]string{"North", "1500"}),
			NewRecord([]string{"South", "1250"}),
		}, records)
	})

	t.Run("quoted comma is split", func(t *testing.T) {
		t.Parallel()

		_, records, err := ParseDelimited("name,city\n\"Smith, J\",Paris")
		require.NoError(t, err)
		assert.Equal(t, NewRecord([]string{"Smith", "J", "Paris"}), records[0])
	})

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace only", text: "  \n\t\n"},
		{name: "header only", text: "a,b\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := ParseDelimited(tt.text)
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
		})
	}
}

func TestParseDataset(t *testing.T) {
	t.Parallel()

	dataset, err := ParseDataset("日期,地区,销售额,利润\n2024-01-15,North,1500,250.50", "sales_data.csv")
	require.NoError(t, err)

	assert.Equal(t, "sales_data", dataset.Name())
	assert.Equal(t, []Column{
		{OriginalName: "日期", SanitizedName: "日期", SQLType: SQLTypeText},
		{OriginalName: "地区", SanitizedName: "地区", SQLType: SQLTypeText},
		{OriginalName: "销售额", SanitizedName: "销售额", SQLType: SQLTypeInteger},
		{OriginalName: "利润", SanitizedName: "利润", SQLType: SQLTypeReal},
	}, dataset.Columns())
}
