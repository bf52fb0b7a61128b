package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"incomestatement/pkg/contracts/domain"
)

// CSVHeader is the header row of a statement export
var CSVHeader = []string{"Metric", "Value"}

// CSVOptions configures CSV writing behavior
type CSVOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Formatted bool // Use thousands separators instead of plain decimals
}

// WriteCSV writes the statement lines as Metric,Value records
func WriteCSV(w io.Writer, result *domain.ResultSet, opts CSVOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, line := range result.Lines {
		value := formatPlain(line.Value)
		if opts.Formatted {
			value = FormatAmount(line.Value)
		}
		if err := writer.Write([]string{line.Label, value}); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
