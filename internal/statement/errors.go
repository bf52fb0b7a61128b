package statement

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDataset is returned when a table has a valid header but no data rows
	ErrEmptyDataset = errors.New("dataset contains no data rows")

	// ErrValueOutOfRange is returned for numeric cells beyond float64 range
	ErrValueOutOfRange = errors.New("value out of range")
)

// SchemaError reports required columns missing from a table header
type SchemaError struct {
	Required []string
	Missing  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("uploaded file must contain columns {%s}: missing %s",
		strings.Join(e.Required, ", "), strings.Join(e.Missing, ", "))
}

// ValueTypeError reports a data row whose cells cannot be pivoted
type ValueTypeError struct {
	Row     int // 1-based data row, header excluded
	Column  string
	Product string
	Metric  string
	Value   string
	Err     error
}

func (e *ValueTypeError) Error() string {
	if e.Column != "Value" {
		return fmt.Sprintf("row %d: %s is empty", e.Row, e.Column)
	}
	if errors.Is(e.Err, ErrValueOutOfRange) {
		return fmt.Sprintf("row %d: value %q for %s / %s is out of range", e.Row, e.Value, e.Product, e.Metric)
	}
	return fmt.Sprintf("row %d: value %q for %s / %s is not numeric", e.Row, e.Value, e.Product, e.Metric)
}

func (e *ValueTypeError) Unwrap() error {
	return e.Err
}

// EmptySelectionError is returned when a computation is requested for no products
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "please select at least one product"
}

// UnknownProductError lists selected products absent from the index
type UnknownProductError struct {
	Products []string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product(s): %s", strings.Join(e.Products, ", "))
}

// OverflowError reports a statement line whose value leaves float64 range
type OverflowError struct {
	Line     string
	Products []string
}

func (e *OverflowError) Error() string {
	if len(e.Products) == 0 {
		return fmt.Sprintf("%s is out of range", e.Line)
	}
	return fmt.Sprintf("%s is out of range for %s", e.Line, strings.Join(e.Products, ", "))
}

// MissingMetricError lists required metrics absent from the totals of a selection
type MissingMetricError struct {
	Missing  []string
	Products []string
}

func (e *MissingMetricError) Error() string {
	if len(e.Products) == 0 {
		return fmt.Sprintf("missing required metric(s): %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("missing required metric(s) for %s: %s",
		strings.Join(e.Products, ", "), strings.Join(e.Missing, ", "))
}
