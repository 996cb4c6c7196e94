package model

import (
	"fmt"
	"strings"
)

// csvDelimiter separates cells in uploaded text
const csvDelimiter = ","

// ParseDelimited splits comma-delimited text into a header and records.
// Blank lines are dropped, every cell is trimmed and double quotes are removed
// wherever they appear. Quoted delimiters and embedded newlines are not
// supported. At least a header line and one data line are required.
func ParseDelimited(text string) (Header, []Record, error) {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, nil, fmt.Errorf("%w: need a header line and at least one data line, got %d non-blank line(s)", ErrMalformedInput, len(lines))
	}

	header := NewHeader(splitLine(lines[0]))
	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		records = append(records, NewRecord(splitLine(line)))
	}
	return header, records, nil
}

// splitLine splits one line into trimmed, quote-stripped cells.
func splitLine(line string) []string {
	cells := strings.Split(line, csvDelimiter)
	for i, c := range cells {
		cells[i] = strings.ReplaceAll(strings.TrimSpace(c), `"`, "")
	}
	return cells
}

// ParseDataset parses delimited text and names the dataset after source.
func ParseDataset(text, source string) (*Dataset, error) {
	header, records, err := ParseDelimited(text)
	if err != nil {
		return nil, err
	}
	return NewDataset(TableNameFromSource(source), header, records), nil
}
