package statement

import (
	"strings"

	"incomestatement/pkg/contracts/domain"
)

// RequiredColumns is the header subset every table must contain
var RequiredColumns = []string{domain.ColumnProduct, domain.ColumnMetric, domain.ColumnValue}

const utf8BOM = "\ufeff"

// Table is a raw tabular dataset as produced by a reader
type Table struct {
	Header []string
	Rows   [][]string
	Source string
}

// Columns holds the positions of the required columns within a header
type Columns struct {
	Product int
	Metric  int
	Value   int
}

// ValidateSchema checks that the table header is a superset of RequiredColumns.
// The table is returned unchanged on success.
func ValidateSchema(t *Table) (*Table, error) {
	if t == nil {
		return nil, &SchemaError{Required: RequiredColumns, Missing: RequiredColumns}
	}
	if _, err := locateColumns(t.Header); err != nil {
		return nil, err
	}
	return t, nil
}

// locateColumns finds the required columns. The first occurrence wins when a
// header name repeats.
func locateColumns(header []string) (Columns, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = normalizeHeader(name, i)
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Columns{}, &SchemaError{Required: RequiredColumns, Missing: missing}
	}

	return Columns{
		Product: positions[domain.ColumnProduct],
		Metric:  positions[domain.ColumnMetric],
		Value:   positions[domain.ColumnValue],
	}, nil
}

func normalizeHeader(name string, position int) string {
	if position == 0 {
		name = strings.TrimPrefix(name, utf8BOM)
	}
	return strings.TrimSpace(name)
}

// cell returns the trimmed cell at i, or "" for short rows
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
