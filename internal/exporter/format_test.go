package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomestatement/internal/shared/testutil"
	"incomestatement/internal/statement"
	"incomestatement/pkg/contracts/domain"
)

// sampleResult computes the statement for products A and B of the shared fixture
func sampleResult(t *testing.T) *domain.ResultSet {
	t.Helper()
	idx, err := statement.BuildIndex(&statement.Table{
		Header: testutil.SampleHeader,
		Rows:   testutil.Rows(testutil.SampleProducts()...),
	})
	require.NoError(t, err)

	result, err := statement.Compute(idx, domain.Selection{"A", "B"})
	require.NoError(t, err)
	return result
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{13.4, "13.40"},
		{1234567.891, "1,234,567.89"},
		{-43.74, "-43.74"},
		{-0.001, "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in))
	}
}

func TestFormatWholeAndPercent(t *testing.T) {
	assert.Equal(t, "1,250", FormatWhole(1249.6))
	assert.Equal(t, "-162", FormatWhole(-162.2))
	assert.Equal(t, "0", FormatWhole(-0.2))
	assert.Equal(t, "78.84%", FormatPercent(78.84))
	assert.Equal(t, "1234.50%", FormatPercent(1234.5))

	assert.Equal(t, "78.84%", FormatLine(domain.LineROE, 78.84))
	assert.Equal(t, "1,000.00", FormatLine(domain.LineLIBT, 1000))
}

func TestTitleAndColors(t *testing.T) {
	assert.Equal(t, "Results for: A, B", Title([]string{"A", "B"}))
	assert.Equal(t, "#90EE90", HighlightColor(domain.HighlightPrimary))
	assert.Equal(t, "#FFD580", HighlightColor(domain.HighlightSecondary))
	assert.Empty(t, HighlightColor(domain.HighlightNone))
}

func TestNewView(t *testing.T) {
	view := NewView(sampleResult(t))

	assert.Equal(t, "Results for: A, B", view.Title)
	require.Len(t, view.Headlines, 4)
	assert.Equal(t, "180", view.Headlines[0].Display)
	assert.Equal(t, "162", view.Headlines[1].Display)
	assert.Equal(t, "124", view.Headlines[2].Display)
	assert.Equal(t, "78.84%", view.Headlines[3].Display)

	require.Len(t, view.Lines, 14)
	assert.Equal(t, "300.00", view.Lines[0].Display)
	assert.Empty(t, view.Lines[0].Color)

	last := view.Lines[13]
	assert.Equal(t, domain.LineROE, last.Label)
	assert.Equal(t, "78.84%", last.Display)
	assert.Equal(t, ColorPrimary, last.Color)

	assert.Equal(t, ColorSecondary, view.Lines[2].Color)
}
