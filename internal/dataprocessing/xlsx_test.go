package dataprocessing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory xlsx with the given sheets in order
func workbook(t *testing.T, sheets map[string][][]interface{}, order ...string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestXLSXReader_FirstSheet(t *testing.T) {
	buf := workbook(t, map[string][][]interface{}{
		"Statement": {
			{"Product", "Metric", "Value"},
			{"A", "Interest received", 100},
			{"A", "Cost of Funds incl liquids", -40.5},
		},
		"Notes": {
			{"ignored"},
		},
	}, "Statement", "Notes")

	table, err := XLSXReader{}.Read(context.Background(), buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Metric", "Value"}, table.Header)
	assert.Equal(t, [][]string{
		{"A", "Interest received", "100"},
		{"A", "Cost of Funds incl liquids", "-40.5"},
	}, table.Rows)
}

func TestXLSXReader_NamedSheetAndPadding(t *testing.T) {
	buf := workbook(t, map[string][][]interface{}{
		"Cover": {{"Bank plc"}},
		"Data": {
			{"Product", "Metric", "Value", "Comment"},
			{"B", "Credit Premium", -2},
		},
	}, "Cover", "Data")

	table, err := XLSXReader{Sheet: "Data"}.Read(context.Background(), buf)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"B", "Credit Premium", "-2", ""}, table.Rows[0])
}

func TestXLSXReader_Errors(t *testing.T) {
	t.Run("not a workbook", func(t *testing.T) {
		_, err := XLSXReader{}.Read(context.Background(), strings.NewReader("Product,Metric,Value"))
		assert.ErrorIs(t, err, ErrMalformedFile)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		buf := workbook(t, map[string][][]interface{}{"Data": {{"Product"}}}, "Data")
		_, err := XLSXReader{Sheet: "Missing"}.Read(context.Background(), buf)
		assert.ErrorIs(t, err, ErrMalformedFile)
		assert.Contains(t, err.Error(), "Missing")
	})
}
