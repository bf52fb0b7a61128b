package statement

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"incomestatement/pkg/contracts/domain"
)

// TaxRate is the flat rate charged on LIBT
const TaxRate = 0.27

var (
	taxRate = decimal.NewFromFloat(TaxRate)
	hundred = decimal.NewFromInt(100)
)

// Values gives a step read access to the totals and to lines computed before it
type Values struct {
	totals Totals
	lines  map[string]decimal.Decimal
}

// Metric returns a total by metric name
func (v Values) Metric(name string) decimal.Decimal {
	return v.totals[name]
}

// Line returns an already computed line by label
func (v Values) Line(label string) decimal.Decimal {
	return v.lines[label]
}

// Step is one line of the income statement
type Step struct {
	Label     string
	Inputs    []string // totals read by Eval
	Highlight domain.Highlight
	Eval      func(Values) decimal.Decimal
}

// Steps is the formula chain in evaluation and display order
var Steps = []Step{
	metricLine(domain.MetricInterestReceived),
	metricLine(domain.MetricCostOfFunds),
	{
		Label:     domain.LineGrossLendingMargin,
		Highlight: domain.HighlightSecondary,
		Eval: func(v Values) decimal.Decimal {
			return v.Line(domain.MetricInterestReceived).Add(v.Line(domain.MetricCostOfFunds))
		},
	},
	metricLine(domain.MetricReturnOnCapitalInvested),
	metricLine(domain.MetricCreditPremium),
	{
		Label:     domain.LineLendingMarginAfterRisk,
		Highlight: domain.HighlightSecondary,
		Eval: func(v Values) decimal.Decimal {
			return v.Line(domain.LineGrossLendingMargin).
				Add(v.Line(domain.MetricReturnOnCapitalInvested)).
				Add(v.Line(domain.MetricCreditPremium))
		},
	},
	metricLine(domain.MetricOtherCreditFeeIncome),
	metricLine(domain.MetricOverheads),
	metricLine(domain.MetricAdditionalTier1Cost),
	metricLine(domain.MetricTier2Cost),
	{
		Label:     domain.LineLIBT,
		Highlight: domain.HighlightSecondary,
		Eval: func(v Values) decimal.Decimal {
			return v.Line(domain.LineLendingMarginAfterRisk).
				Add(v.Line(domain.MetricOtherCreditFeeIncome)).
				Add(v.Line(domain.MetricOverheads)).
				Add(v.Line(domain.MetricAdditionalTier1Cost)).
				Add(v.Line(domain.MetricTier2Cost))
		},
	},
	{
		Label: domain.LineTaxation,
		Eval: func(v Values) decimal.Decimal {
			return v.Line(domain.LineLIBT).Mul(taxRate)
		},
	},
	{
		Label:     domain.LineLIACC,
		Inputs:    []string{domain.MetricCoreEquityTier1Cost},
		Highlight: domain.HighlightSecondary,
		Eval: func(v Values) decimal.Decimal {
			return v.Line(domain.LineLIBT).
				Sub(v.Line(domain.LineTaxation)).
				Add(v.Metric(domain.MetricCoreEquityTier1Cost))
		},
	},
	{
		Label:     domain.LineROE,
		Inputs:    []string{domain.MetricCoreEquityCapitalHolding},
		Highlight: domain.HighlightPrimary,
		Eval: func(v Values) decimal.Decimal {
			holding := v.Metric(domain.MetricCoreEquityCapitalHolding)
			if holding.IsZero() {
				return decimal.Zero
			}
			afterTax := v.Line(domain.LineLIBT).Sub(v.Line(domain.LineTaxation))
			return afterTax.Div(holding).Mul(hundred)
		},
	},
}

// metricLine passes a total straight through as a line of the same name
func metricLine(metric string) Step {
	return Step{
		Label:  metric,
		Inputs: []string{metric},
		Eval: func(v Values) decimal.Decimal {
			return v.Metric(metric)
		},
	}
}

// RequiredMetrics returns every totals key the chain reads, in first-use order
func RequiredMetrics() []string {
	var required []string
	seen := make(map[string]struct{})
	for _, step := range Steps {
		for _, input := range step.Inputs {
			if _, ok := seen[input]; ok {
				continue
			}
			seen[input] = struct{}{}
			required = append(required, input)
		}
	}
	return required
}

// Evaluate runs the formula chain over totals. All required metrics are
// checked up front so no partial result is ever returned.
func Evaluate(totals Totals) (*domain.ResultSet, error) {
	var missing []string
	for _, metric := range RequiredMetrics() {
		if _, ok := totals[metric]; !ok {
			missing = append(missing, metric)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingMetricError{Missing: missing}
	}

	values := Values{totals: totals, lines: make(map[string]decimal.Decimal, len(Steps))}
	lines := make([]domain.ResultLine, 0, len(Steps))
	for _, step := range Steps {
		result := step.Eval(values)
		value := result.InexactFloat64()
		if math.IsInf(value, 0) {
			return nil, &OverflowError{Line: step.Label}
		}
		values.lines[step.Label] = result
		lines = append(lines, domain.ResultLine{
			Label:     step.Label,
			Value:     value,
			Highlight: step.Highlight,
		})
	}

	return &domain.ResultSet{
		Lines: lines,
		Headlines: domain.Headlines{
			GrossLendingMargin: values.Line(domain.LineGrossLendingMargin).InexactFloat64(),
			LIBT:               values.Line(domain.LineLIBT).InexactFloat64(),
			LIACC:              values.Line(domain.LineLIACC).InexactFloat64(),
			ROE:                values.Line(domain.LineROE).InexactFloat64(),
		},
	}, nil
}

// Compute aggregates the selection and evaluates the chain in one pass
func Compute(index *ProductIndex, selection domain.Selection) (*domain.ResultSet, error) {
	products, err := index.Resolve(selection)
	if err != nil {
		return nil, err
	}
	totals, err := Aggregate(index, products)
	if err != nil {
		return nil, err
	}

	result, err := Evaluate(totals)
	if err != nil {
		var missing *MissingMetricError
		if errors.As(err, &missing) {
			missing.Products = products
		}
		var overflow *OverflowError
		if errors.As(err, &overflow) {
			overflow.Products = products
		}
		return nil, err
	}
	result.Products = products
	return result, nil
}
