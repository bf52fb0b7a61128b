package dataprocessing

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"incomestatement/internal/statement"
)

// XLSXReader reads one worksheet of a workbook. An empty Sheet selects the
// first sheet in workbook order.
type XLSXReader struct {
	Sheet string
}

// Read implements Reader
func (x XLSXReader) Read(ctx context.Context, r io.Reader) (*statement.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	defer f.Close()

	sheet, err := x.resolveSheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrMalformedFile, sheet, err)
	}
	defer rows.Close()

	table := &statement.Table{}
	for n := 0; rows.Next(); n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q row %d: %w", ErrMalformedFile, sheet, n+1, err)
		}

		if table.Header == nil {
			// leading blank rows are not a header
			if len(cells) == 0 {
				continue
			}
			table.Header = cells
			continue
		}
		table.Rows = append(table.Rows, padRow(cells, len(table.Header)))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrMalformedFile, sheet, err)
	}

	return table, nil
}

func (x XLSXReader) resolveSheet(f *excelize.File) (string, error) {
	if x.Sheet != "" {
		idx, err := f.GetSheetIndex(x.Sheet)
		if err != nil || idx < 0 {
			return "", fmt.Errorf("%w: sheet %q not found", ErrMalformedFile, x.Sheet)
		}
		return x.Sheet, nil
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrMalformedFile)
	}
	return sheets[0], nil
}

// padRow extends rows whose trailing cells were empty in the workbook
func padRow(cells []string, width int) []string {
	if len(cells) >= width {
		return cells
	}
	padded := make([]string, width)
	copy(padded, cells)
	return padded
}
