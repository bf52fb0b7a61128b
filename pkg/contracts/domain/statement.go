package domain

import (
	"time"
)

// Column names every uploaded table must carry
const (
	ColumnProduct = "Product"
	ColumnMetric  = "Metric"
	ColumnValue   = "Value"
)

// Input metric names read by the formula chain
const (
	MetricInterestReceived         = "Interest received"
	MetricCostOfFunds              = "Cost of Funds incl liquids"
	MetricReturnOnCapitalInvested  = "Return on Capital Invested"
	MetricCreditPremium            = "Credit Premium"
	MetricOtherCreditFeeIncome     = "Other credit based fee income"
	MetricOverheads                = "Overheads related to lending business"
	MetricAdditionalTier1Cost      = "Additional Tier 1 Cost of Capital"
	MetricTier2Cost                = "Tier 2 Cost of Capital"
	MetricCoreEquityTier1Cost      = "Core Equity Tier 1 Cost Of Capital"
	MetricCoreEquityCapitalHolding = "Core equity capital holding"
)

// Derived line labels
const (
	LineGrossLendingMargin     = "Gross Lending Margin"
	LineLendingMarginAfterRisk = "Lending Margin after Credit Premium"
	LineLIBT                   = "LIBT"
	LineTaxation               = "Taxation"
	LineLIACC                  = "LIACC"
	LineROE                    = "ROE (%)"
)

// MetricMap maps a metric name to its value
type MetricMap map[string]float64

// Selection is the set of product keys a computation runs over
type Selection []string

// Highlight marks a result line for emphasis by a presenter
type Highlight string

const (
	HighlightNone      Highlight = ""
	HighlightPrimary   Highlight = "primary"
	HighlightSecondary Highlight = "secondary"
)

// ResultLine is one (label, value) pair of a computed income statement
type ResultLine struct {
	Label     string    `json:"label"`
	Value     float64   `json:"value"`
	Highlight Highlight `json:"highlight,omitempty"`
}

// Headlines are the dashboard figures exposed next to the full statement
type Headlines struct {
	GrossLendingMargin float64 `json:"gross_lending_margin"`
	LIBT               float64 `json:"libt"`
	LIACC              float64 `json:"liacc"`
	ROE                float64 `json:"roe"`
}

// ResultSet is the ordered output of the formula chain for one selection
type ResultSet struct {
	Products  []string     `json:"products"`
	Lines     []ResultLine `json:"lines"`
	Headlines Headlines    `json:"headlines"`
}

// Value returns the value of the line with the given label
func (rs *ResultSet) Value(label string) (float64, bool) {
	for _, line := range rs.Lines {
		if line.Label == label {
			return line.Value, true
		}
	}
	return 0, false
}

// DatasetSummary describes an ingested dataset without its contents
type DatasetSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	Checksum     string    `json:"checksum"`
	Products     []string  `json:"products"`
	ProductCount int       `json:"product_count"`
	RowCount     int       `json:"row_count"`
	Overwrites   int       `json:"overwrites"`
	UploadedAt   time.Time `json:"uploaded_at"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}
