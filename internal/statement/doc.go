// Package statement turns a tabular income-statement dataset into the derived
// lending metrics shown to analysts.
//
// The pipeline runs in four stages, each a pure function:
//
//  1. ValidateSchema: the table header must contain Product, Metric and Value.
//  2. BuildIndex: rows are pivoted into product -> metric -> value. A repeated
//     (product, metric) pair keeps the later row.
//  3. Aggregate: the selected products are folded into a single Totals map.
//  4. Evaluate: the fixed formula chain in Steps is applied to Totals in order,
//     producing a 14-line ResultSet plus headline figures.
//
// # Arithmetic
//
// Values are parsed and summed with shopspring/decimal so that totals and the
// tax charge are exact. Results cross the package boundary as float64.
//
// # Errors
//
// Every failure is reported before any result is produced:
//
//   - *SchemaError: required columns are missing from the header
//   - *ValueTypeError: a Value cell is not numeric, or a key cell is blank
//   - *EmptySelectionError: no product was selected
//   - *UnknownProductError: a selected product is not in the index
//   - *MissingMetricError: Totals lacks a metric the formula chain reads
//
// A zero Core equity capital holding is not an error; ROE is reported as 0.
//
// # Usage Example
//
//	index, err := statement.BuildIndex(table)
//	if err != nil {
//	    return err
//	}
//	result, err := statement.Compute(index, domain.Selection{"Mortgages", "SME"})
//	if err != nil {
//	    return err
//	}
//	libt, _ := result.Value(domain.LineLIBT)
package statement
