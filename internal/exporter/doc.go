// Package exporter presents computed income statements.
//
// Every output starts from a domain.ResultSet and shares the same formatting
// rules: table values carry thousands separators and two decimals, headline
// margins are shown as whole numbers and ROE as a percentage.
//
// Available outputs:
//
//	NewView     - formatted lines and headlines for JSON and WebSocket clients
//	WriteCSV    - Metric,Value rows, optionally prefixed with a UTF-8 BOM
//	WriteXLSX   - a workbook with highlighted rows and number formats
//	WriteChart  - a PNG bar chart of the headline margins
//	WriteHTML   - a standalone HTML report rendered from Markdown
//	WriteTable  - an aligned plain text table for terminals
//
// Example usage:
//
//	result, err := statement.Compute(index, selection)
//	if err != nil {
//	    return err
//	}
//	err = exporter.WriteXLSX(w, result)
package exporter
