package exporter

import "incomestatement/pkg/contracts/domain"

// View is a display-ready rendering of a result set
type View struct {
	Title     string         `json:"title"`
	Headlines []HeadlineView `json:"headlines"`
	Lines     []LineView     `json:"lines"`
}

// HeadlineView is one dashboard figure
type HeadlineView struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// LineView is one row of the detailed table
type LineView struct {
	Label     string           `json:"label"`
	Value     float64          `json:"value"`
	Display   string           `json:"display"`
	Highlight domain.Highlight `json:"highlight,omitempty"`
	Color     string           `json:"color,omitempty"`
}

// NewView formats a result set for presentation
func NewView(result *domain.ResultSet) View {
	h := result.Headlines
	view := View{
		Title: Title(result.Products),
		Headlines: []HeadlineView{
			{Label: domain.LineGrossLendingMargin, Value: h.GrossLendingMargin, Display: FormatWhole(h.GrossLendingMargin)},
			{Label: domain.LineLIBT, Value: h.LIBT, Display: FormatWhole(h.LIBT)},
			{Label: domain.LineLIACC, Value: h.LIACC, Display: FormatWhole(h.LIACC)},
			{Label: domain.LineROE, Value: h.ROE, Display: FormatPercent(h.ROE)},
		},
		Lines: make([]LineView, len(result.Lines)),
	}

	for i, line := range result.Lines {
		view.Lines[i] = LineView{
			Label:     line.Label,
			Value:     line.Value,
			Display:   FormatLine(line.Label, line.Value),
			Highlight: line.Highlight,
			Color:     HighlightColor(line.Highlight),
		}
	}
	return view
}

// ChartLines are the lines plotted in the key metrics chart, in order
var ChartLines = []string{domain.LineGrossLendingMargin, domain.LineLIBT, domain.LineLIACC}
