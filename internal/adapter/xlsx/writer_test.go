package xlsx

import (
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() port.Report {
	mode := 36.0
	return port.Report{
		Quality: port.QualityReport{
			Rows: 10,
			Types: []port.ColumnTypeInfo{
				{Name: "term", Type: domain.TypeNumeric},
				{Name: "grade", Type: domain.TypeCategorical},
			},
			Stats:    []port.ColumnStats{{Name: "term", Mean: 40.8, Median: 36, Mode: &mode}},
			Distinct: []port.DistinctLabels{{Name: "grade", Labels: []string{"A", "B"}, Cardinality: domain.CardinalityBinary}},
			Nulls:    []port.NullCount{{Name: "term", Count: 1, Percentage: 10}, {Name: "grade"}},
			Zeros:    []port.ZeroShare{{Name: "term"}},
		},
		Stages: []domain.StageReport{
			{Stage: "drop_null_columns", RowsBefore: 10, RowsAfter: 10, Dropped: []string{"mths_since_last_record"},
				Results: []domain.ColumnResult{domain.Applied("mths_since_last_record", "drop", 9)}},
			{Stage: "impute", RowsBefore: 10, RowsAfter: 10},
			{Stage: "skew", RowsBefore: 10, RowsAfter: 10,
				Results: []domain.ColumnResult{domain.Skipped("grade", "not numeric")}},
		},
		Metrics: &port.MetricsReport{
			Recovery:   port.RecoveryReport{Available: true, Loans: 9, Current: port.Recovery{Total: 90, Investor: 89}},
			ChargedOff: port.ChargedOffReport{Count: 1, Percentage: 10, TotalPaid: decimal.NewFromInt(500), ProjectedLoss: decimal.NewFromInt(1300)},
			Segments: []port.SegmentBreakdown{{
				Column:     "grade",
				ChargedOff: []port.LabelCount{{Label: "A", Count: 1}, {Label: "B", Count: 0}},
				AtRisk:     []port.LabelCount{{Label: "A", Count: 0}, {Label: "B", Count: 2}},
			}},
		},
	}
}

func TestWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, NewWriter().Write(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{sheetQuality, sheetStages, sheetMetrics, sheetSegments}, f.GetSheetList())

	rows, err := f.GetRows(sheetQuality)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "column", rows[0][0])
	assert.Equal(t, []string{"term", "numeric", "1", "10", "0", "40.8", "36", "36"}, rows[1])
	assert.Equal(t, "grade", rows[2][0])
	assert.Equal(t, "binary", rows[2][9])

	rows, err = f.GetRows(sheetStages)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"drop_null_columns", "10", "10", "mths_since_last_record", "applied", "drop", "", "9"}, rows[1])
	assert.Equal(t, []string{"impute", "10", "10"}, rows[2])
	assert.Equal(t, "not numeric", rows[3][6])

	v, err := f.GetCellValue(sheetMetrics, "B11")
	require.NoError(t, err)
	assert.Equal(t, "500", v)

	rows, err = f.GetRows(sheetSegments)
	require.NoError(t, err)
	assert.Equal(t, []string{"grade", "B", "0", "2"}, rows[2])
}

func TestWriter_WithoutMetrics(t *testing.T) {
	r := sampleReport()
	r.Metrics = nil
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewWriter().Write(path, r))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{sheetQuality, sheetStages}, f.GetSheetList())
}
