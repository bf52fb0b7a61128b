package dataprocessing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomestatement/internal/shared/testutil"
	"incomestatement/internal/statement"
)

func TestCSVReader_Read(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "comma separated",
			input:      "Product,Metric,Value\nA,Interest received,100\n",
			wantHeader: []string{"Product", "Metric", "Value"},
			wantRows:   [][]string{{"A", "Interest received", "100"}},
		},
		{
			name:       "semicolon with decimal commas quoted",
			input:      "Product;Metric;Value\nA;Credit Premium;\"1,5\"\n",
			wantHeader: []string{"Product", "Metric", "Value"},
			wantRows:   [][]string{{"A", "Credit Premium", "1,5"}},
		},
		{
			name:       "tab separated",
			input:      "Product\tMetric\tValue\nA\tOverheads related to lending business\t-10\n",
			wantHeader: []string{"Product", "Metric", "Value"},
			wantRows:   [][]string{{"A", "Overheads related to lending business", "-10"}},
		},
		{
			name:       "byte order mark stripped",
			input:      "\ufeffProduct,Metric,Value\nA,Tier 2 Cost of Capital,-1\n",
			wantHeader: []string{"Product", "Metric", "Value"},
			wantRows:   [][]string{{"A", "Tier 2 Cost of Capital", "-1"}},
		},
		{
			name:       "ragged rows and leading spaces",
			input:      "Product, Metric, Value, Note\nA, Interest received, 100\nB, Credit Premium, -2, late, extra\n",
			wantHeader: []string{"Product", "Metric", "Value", "Note"},
			wantRows: [][]string{
				{"A", "Interest received", "100"},
				{"B", "Credit Premium", "-2", "late", "extra"},
			},
		},
		{
			name:       "quoted comma inside header does not fool sniffing",
			input:      "\"Product;Name\",Metric,Value\nA,Interest received,1\n",
			wantHeader: []string{"Product;Name", "Metric", "Value"},
			wantRows:   [][]string{{"A", "Interest received", "1"}},
		},
		{
			name: "empty input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := CSVReader{}.Read(context.Background(), strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, table.Header)
			assert.Equal(t, tt.wantRows, table.Rows)
		})
	}
}

func TestCSVReader_Malformed(t *testing.T) {
	_, err := CSVReader{}.Read(context.Background(), strings.NewReader("Product,Metric,Value\nA,\"unterminated,1\n"))
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestCSVReader_ExplicitComma(t *testing.T) {
	table, err := CSVReader{Comma: '|'}.Read(context.Background(), strings.NewReader("Product|Metric|Value\nA|Credit Premium|-2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Metric", "Value"}, table.Header)
}

func TestCSVReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CSVReader{}.Read(ctx, strings.NewReader(testutil.SampleCSV()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVReader_FeedsIndex(t *testing.T) {
	table, err := CSVReader{}.Read(context.Background(), strings.NewReader(testutil.SampleCSV()))
	require.NoError(t, err)

	idx, err := statement.BuildIndex(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, idx.Products())
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\nx,y,z,w,v")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb")))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
	assert.Equal(t, ',', sniffDelimiter(nil))
}
