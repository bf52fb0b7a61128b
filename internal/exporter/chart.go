package exporter

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"incomestatement/pkg/contracts/domain"
)

// ChartOptions sizes the rendered chart
type ChartOptions struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultChartOptions is a landscape chart readable in a browser
var DefaultChartOptions = ChartOptions{Width: 8 * vg.Inch, Height: 5 * vg.Inch}

var barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// WriteChart renders a PNG bar chart of the headline margins
func WriteChart(w io.Writer, result *domain.ResultSet, opts ChartOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultChartOptions
	}

	values := make(plotter.Values, len(ChartLines))
	for i, label := range ChartLines {
		v, ok := result.Value(label)
		if !ok {
			return fmt.Errorf("result has no %q line", label)
		}
		values[i] = v
	}

	p := plot.New()
	p.Title.Text = "Key Metrics: " + Title(result.Products)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "Value"

	bars, err := plotter.NewBarChart(values, vg.Points(48))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(ChartLines...)

	lo, hi := valueRange(values)
	p.Y.Min = math.Min(0, lo*1.15)
	p.Y.Max = math.Max(0, hi*1.15)
	if p.Y.Min == p.Y.Max {
		p.Y.Max = 1
	}

	labels := make([]string, len(values))
	xys := make([]plotter.XY, len(values))
	for i, v := range values {
		labels[i] = FormatWhole(v)
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	valueLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("failed to build labels: %w", err)
	}
	p.Add(valueLabels)

	writer, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}

func valueRange(values plotter.Values) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
