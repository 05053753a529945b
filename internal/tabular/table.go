package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is one parsed tabular source file. Headers are lower-cased and
// trimmed at parse time; records map those normalized headers to raw
// cell values.
type Table struct {
	FileName string
	Headers  []string
	Records  []Record
}

// Record is a single row keyed by normalized column header.
type Record map[string]string

// Get returns the trimmed value for a column, or "" when absent.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Has reports whether the record carries a non-blank value for a column.
func (r Record) Has(column string) bool {
	return r.Get(column) != ""
}

// HasColumn reports whether the table declares a column.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Parse reads CSV content into a Table. The first row is taken as the
// header row; short rows are padded, long rows truncated to the header
// width.
func Parse(fileName string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to parse %s: empty file", fileName)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	table := &Table{
		FileName: fileName,
		Headers:  headers,
		Records:  make([]Record, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		record := make(Record, len(headers))
		for i, header := range headers {
			if i < len(row) {
				record[header] = row[i]
			}
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}
