// Package dataprocessing turns uploaded files into raw statement tables.
//
// # Readers
//
// A Reader converts a byte stream into a statement.Table without interpreting
// any values. Two readers ship with the package:
//
//	- CSVReader: comma, semicolon or tab separated text, delimiter sniffed from the header line
//	- XLSXReader: the first worksheet of a workbook, or a named one
//
// A Registry selects the reader from the file extension:
//
//	registry := dataprocessing.NewRegistry(cfg.Upload, logger)
//	table, err := registry.Load(ctx, "statement.xlsx", file)
//
// # Google Sheets
//
// SheetsSource imports a spreadsheet range through the Sheets API and produces
// the same Table shape, so everything downstream is unaware of the origin.
//
// # Errors
//
// Unknown extensions yield ErrUnsupportedFormat. Files that cannot be decoded
// yield ErrMalformedFile wrapping the decoder error. Column and value checks
// are left to the statement package.
package dataprocessing
