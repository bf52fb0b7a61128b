package exporter

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"incomestatement/pkg/contracts/domain"
)

const (
	// ColorPrimary is the ROE row background
	ColorPrimary = "#90EE90"
	// ColorSecondary is the margin and income row background
	ColorSecondary = "#FFD580"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders a table value with grouping and two decimals
func FormatAmount(v float64) string {
	return printer.Sprintf("%.2f", noNegativeZero(v, 2))
}

// FormatWhole renders a headline value with grouping and no decimals
func FormatWhole(v float64) string {
	return printer.Sprintf("%.0f", noNegativeZero(v, 0))
}

// FormatPercent renders ROE with two decimals and a percent sign
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", noNegativeZero(v, 2))
}

// FormatLine renders a statement line; the ROE line is already a percentage
func FormatLine(label string, v float64) string {
	if label == domain.LineROE {
		return FormatPercent(v)
	}
	return FormatAmount(v)
}

// formatPlain renders a value with two decimals and no grouping, for machine-readable outputs
func formatPlain(v float64) string {
	return fmt.Sprintf("%.2f", noNegativeZero(v, 2))
}

// Title is the heading shown above every report
func Title(products []string) string {
	return "Results for: " + strings.Join(products, ", ")
}

// HighlightColor maps a line highlight to its background color
func HighlightColor(h domain.Highlight) string {
	switch h {
	case domain.HighlightPrimary:
		return ColorPrimary
	case domain.HighlightSecondary:
		return ColorSecondary
	default:
		return ""
	}
}

// noNegativeZero avoids "-0.00" for values that round to zero
func noNegativeZero(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	if math.Round(v*scale) == 0 {
		return 0
	}
	return v
}
