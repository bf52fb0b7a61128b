package statement

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"incomestatement/pkg/contracts/domain"
)

// ProductIndex maps each product to its metric values. It is immutable once built.
type ProductIndex struct {
	order      []string
	metrics    map[string]map[string]decimal.Decimal
	rows       int
	overwrites int
}

// BuildIndex validates the table and pivots its rows into a ProductIndex.
// When a product lists the same metric twice the later row wins.
func BuildIndex(t *Table) (*ProductIndex, error) {
	if _, err := ValidateSchema(t); err != nil {
		return nil, err
	}
	cols, err := locateColumns(t.Header)
	if err != nil {
		return nil, err
	}

	idx := &ProductIndex{
		metrics: make(map[string]map[string]decimal.Decimal),
	}

	for i, row := range t.Rows {
		if isBlankRow(row) {
			continue
		}
		rowNum := i + 1

		product := cell(row, cols.Product)
		if product == "" {
			return nil, &ValueTypeError{Row: rowNum, Column: domain.ColumnProduct}
		}
		metric := cell(row, cols.Metric)
		if metric == "" {
			return nil, &ValueTypeError{Row: rowNum, Column: domain.ColumnMetric, Product: product}
		}
		raw := cell(row, cols.Value)
		value, err := ParseValue(raw)
		if err != nil {
			return nil, &ValueTypeError{
				Row:     rowNum,
				Column:  domain.ColumnValue,
				Product: product,
				Metric:  metric,
				Value:   raw,
				Err:     err,
			}
		}

		metrics, ok := idx.metrics[product]
		if !ok {
			metrics = make(map[string]decimal.Decimal)
			idx.metrics[product] = metrics
			idx.order = append(idx.order, product)
		}
		if _, dup := metrics[metric]; dup {
			idx.overwrites++
		}
		metrics[metric] = value
		idx.rows++
	}

	if idx.rows == 0 {
		return nil, ErrEmptyDataset
	}
	return idx, nil
}

const (
	// maxValueLength bounds a Value cell before it reaches the decimal parser
	maxValueLength = 128
	// maxValueExponent keeps every value and every sum inside float64 range
	maxValueExponent = 308
)

// ParseValue converts a Value cell to a decimal. Thousands separators are
// ignored and an accounting-style "(40)" reads as -40. Values outside the
// float64 range fail with ErrValueOutOfRange.
func ParseValue(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if len(s) > maxValueLength {
		return decimal.Decimal{}, ErrValueOutOfRange
	}
	negative := false
	if len(s) > 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if exp := d.Exponent(); exp > maxValueExponent || exp < -maxValueExponent {
		return decimal.Decimal{}, ErrValueOutOfRange
	}
	if math.IsInf(d.InexactFloat64(), 0) {
		return decimal.Decimal{}, ErrValueOutOfRange
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Products returns the product keys in first-seen order
func (p *ProductIndex) Products() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of distinct products
func (p *ProductIndex) Len() int {
	return len(p.order)
}

// Has reports whether product is a key of the index
func (p *ProductIndex) Has(product string) bool {
	_, ok := p.metrics[product]
	return ok
}

// MetricMap returns a float copy of a product's metrics
func (p *ProductIndex) MetricMap(product string) (domain.MetricMap, bool) {
	metrics, ok := p.metrics[product]
	if !ok {
		return nil, false
	}
	out := make(domain.MetricMap, len(metrics))
	for k, v := range metrics {
		out[k] = v.InexactFloat64()
	}
	return out, true
}

// Rows returns the number of data rows pivoted into the index
func (p *ProductIndex) Rows() int {
	return p.rows
}

// Overwrites returns how many rows replaced an earlier value for the same product and metric
func (p *ProductIndex) Overwrites() int {
	return p.overwrites
}
