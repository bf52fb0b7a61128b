package testutil

import (
	"encoding/csv"
	"strconv"
	"strings"

	"incomestatement/pkg/contracts/domain"
)

// SampleHeader is the canonical header of an income statement upload
var SampleHeader = []string{"Product", "Metric", "Value"}

// ProductA holds one product with every required metric
var ProductA = []MetricValue{
	{domain.MetricInterestReceived, 100},
	{domain.MetricCostOfFunds, -40},
	{domain.MetricReturnOnCapitalInvested, 5},
	{domain.MetricCreditPremium, -2},
	{domain.MetricOtherCreditFeeIncome, 3},
	{domain.MetricOverheads, -10},
	{domain.MetricAdditionalTier1Cost, -1},
	{domain.MetricTier2Cost, -1},
	{domain.MetricCoreEquityTier1Cost, 2},
	{domain.MetricCoreEquityCapitalHolding, 50},
}

// MetricValue is a single metric entry of a fixture product
type MetricValue struct {
	Metric string
	Value  float64
}

// Scaled returns the metrics with every value multiplied by factor
func Scaled(metrics []MetricValue, factor float64) []MetricValue {
	out := make([]MetricValue, len(metrics))
	for i, m := range metrics {
		out[i] = MetricValue{Metric: m.Metric, Value: m.Value * factor}
	}
	return out
}

// Without returns the metrics with the named metric removed
func Without(metrics []MetricValue, metric string) []MetricValue {
	out := make([]MetricValue, 0, len(metrics))
	for _, m := range metrics {
		if m.Metric != metric {
			out = append(out, m)
		}
	}
	return out
}

// Product pairs a product name with its metrics
type Product struct {
	Name    string
	Metrics []MetricValue
}

// Rows flattens products into Product, Metric, Value rows
func Rows(products ...Product) [][]string {
	var rows [][]string
	for _, p := range products {
		for _, m := range p.Metrics {
			rows = append(rows, []string{p.Name, m.Metric, strconv.FormatFloat(m.Value, 'f', -1, 64)})
		}
	}
	return rows
}

// CSV renders products as a comma separated upload, quoting where needed
func CSV(products ...Product) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(SampleHeader)
	_ = w.WriteAll(Rows(products...))
	return b.String()
}

// SampleProducts returns A and B, where B is A doubled
func SampleProducts() []Product {
	return []Product{
		{Name: "A", Metrics: ProductA},
		{Name: "B", Metrics: Scaled(ProductA, 2)},
	}
}

// SampleCSV is the two-product upload used across tests
func SampleCSV() string {
	return CSV(SampleProducts()...)
}
