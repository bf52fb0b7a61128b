package exporter

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomestatement/pkg/contracts/domain"
)

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, sampleResult(t), ChartOptions{}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Positive(t, img.Bounds().Dy())
}

func TestWriteChart_NegativeMargins(t *testing.T) {
	result := sampleResult(t)
	for i := range result.Lines {
		result.Lines[i].Value = -result.Lines[i].Value
	}

	var buf bytes.Buffer
	assert.NoError(t, WriteChart(&buf, result, DefaultChartOptions))
}

func TestWriteChart_MissingLine(t *testing.T) {
	result := &domain.ResultSet{Products: []string{"A"}}

	var buf bytes.Buffer
	assert.Error(t, WriteChart(&buf, result, DefaultChartOptions))
}
