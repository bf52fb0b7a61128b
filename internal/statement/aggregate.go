package statement

import (
	"strings"

	"github.com/shopspring/decimal"

	"incomestatement/pkg/contracts/domain"
)

// Totals is the per-metric sum over a selection. Values are never mutated in
// place; add returns a new map.
type Totals map[string]decimal.Decimal

// Get returns the total for metric
func (t Totals) Get(metric string) (decimal.Decimal, bool) {
	v, ok := t[metric]
	return v, ok
}

// MetricMap returns the totals as floats
func (t Totals) MetricMap() domain.MetricMap {
	out := make(domain.MetricMap, len(t))
	for k, v := range t {
		out[k] = v.InexactFloat64()
	}
	return out
}

func (t Totals) add(metrics map[string]decimal.Decimal) Totals {
	out := make(Totals, len(t)+len(metrics))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range metrics {
		out[k] = out[k].Add(v)
	}
	return out
}

// Aggregate sums the metrics of every selected product. Metrics missing from a
// product contribute nothing.
func Aggregate(index *ProductIndex, selection domain.Selection) (Totals, error) {
	products, err := index.Resolve(selection)
	if err != nil {
		return nil, err
	}
	return fold(products, Totals{}, func(acc Totals, product string) Totals {
		return acc.add(index.metrics[product])
	}), nil
}

// Resolve checks a selection against the index and returns it without
// duplicates, preserving the order products were first named. Keys are
// trimmed the same way BuildIndex trims Product cells.
func (p *ProductIndex) Resolve(selection domain.Selection) ([]string, error) {
	if len(selection) == 0 {
		return nil, &EmptySelectionError{}
	}

	seen := make(map[string]struct{}, len(selection))
	products := make([]string, 0, len(selection))
	var unknown []string
	for _, product := range selection {
		product = strings.TrimSpace(product)
		if _, dup := seen[product]; dup {
			continue
		}
		seen[product] = struct{}{}
		if !p.Has(product) {
			unknown = append(unknown, product)
			continue
		}
		products = append(products, product)
	}

	if len(unknown) > 0 {
		return nil, &UnknownProductError{Products: unknown}
	}
	return products, nil
}

func fold[T, A any](items []T, initial A, step func(A, T) A) A {
	acc := initial
	for _, item := range items {
		acc = step(acc, item)
	}
	return acc
}
