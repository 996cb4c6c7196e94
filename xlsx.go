package datalab

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/datalab/domain/model"
)

// parseXLSX reads a workbook. Every sheet with a header row and at least one
// data row becomes a dataset named <file>_<sheet>.
func parseXLSX(r io.Reader, name string) ([]*model.Dataset, error) {
	xlsxFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer func() {
		_ = xlsxFile.Close() // Ignore close error
	}()

	base := model.TableNameFromSource(name)
	datasets := make([]*model.Dataset, 0)
	for _, sheetName := range xlsxFile.GetSheetList() {
		rows, err := xlsxFile.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}

		rows = dropBlankRows(rows)
		if len(rows) < 2 {
			continue
		}

		header, records := convertXLSXRowsToTable(rows)
		tableName := model.SanitizeIdentifier(base + "_" + sheetName)
		datasets = append(datasets, model.NewDataset(tableName, header, records))
	}

	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: no sheet with a header and data rows in %s", ErrMalformedInput, name)
	}
	return datasets, nil
}

// dropBlankRows removes rows whose cells are all blank
func dropBlankRows(rows [][]string) [][]string {
	kept := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				kept = append(kept, row)
				break
			}
		}
	}
	return kept
}

// convertXLSXRowsToTable converts XLSX rows to table headers and records
// First row becomes headers, remaining rows become records with padding
func convertXLSXRowsToTable(rows [][]string) (model.Header, []model.Record) {
	var headers model.Header
	var records []model.Record

	if len(rows) > 0 {
		headers = make(model.Header, len(rows[0]))
		for i, h := range rows[0] {
			headers[i] = strings.TrimSpace(h)
		}
	}

	if len(rows) > 1 {
		records = make([]model.Record, len(rows)-1)
		for i, row := range rows[1:] {
			record := make(model.Record, len(headers))
			for j := range headers {
				if j < len(row) {
					record[j] = strings.TrimSpace(row[j])
				} else {
					record[j] = "" // Pad with empty string if row is shorter
				}
			}
			records[i] = record
		}
	}

	return headers, records
}
