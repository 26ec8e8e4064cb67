package service

import (
	"testing"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeStats(t *testing.T) {
	tbl := mustTable(t,
		domain.NewNumericColumn("repeats", []float64{1, 2, 2, 3}, nil),
		domain.NewNumericColumn("unique", []float64{1, 2, 3, 0}, []bool{false, false, false, true}),
		domain.NewTextColumn("label", []string{"a", "b", "c", "d"}, nil),
	)

	stats := DescribeStats(tbl)
	require.Len(t, stats, 2)

	assert.Equal(t, "repeats", stats[0].Name)
	assert.InDelta(t, 2, stats[0].Mean, 1e-12)
	assert.InDelta(t, 2, stats[0].Median, 1e-12)
	require.NotNil(t, stats[0].Mode)
	assert.Equal(t, 2.0, *stats[0].Mode)

	assert.Equal(t, "unique", stats[1].Name)
	assert.InDelta(t, 2, stats[1].Mean, 1e-12)
	assert.Nil(t, stats[1].Mode)
}

func TestCountNulls(t *testing.T) {
	tbl := mustTable(t,
		domain.NewNumericColumn("a", []float64{1, 0, 0, 4}, []bool{false, true, true, false}),
		domain.NewTextColumn("b", []string{"x", "y", "z", "w"}, nil),
	)

	nulls := CountNulls(tbl)
	require.Len(t, nulls, 2)
	assert.Equal(t, 2, nulls[0].Count)
	assert.InDelta(t, 50, nulls[0].Percentage, 1e-12)
	assert.Zero(t, nulls[1].Count)
}

func TestProfile_EmptyTable(t *testing.T) {
	tbl := mustTable(t,
		domain.NewNumericColumn("a", []float64{}, nil),
		domain.NewCategoricalColumn("b", []string{}, nil),
	)

	q := Profile(tbl)
	assert.Zero(t, q.Rows)
	require.Len(t, q.Nulls, 2)
	assert.Zero(t, q.Nulls[0].Percentage)
	require.Len(t, q.Zeros, 1)
	assert.Zero(t, q.Zeros[0].Percentage)
	require.Len(t, q.Distinct, 1)
	assert.Empty(t, q.Distinct[0].Labels)
}

func TestCountDistinctValues(t *testing.T) {
	tbl := mustTable(t,
		domain.NewCategoricalColumn("term", []string{"b", "a", "b", ""}, []bool{false, false, false, true}),
		domain.NewTextColumn("free", []string{"x", "y", "z", "w"}, nil),
	)

	distinct := CountDistinctValues(tbl)
	require.Len(t, distinct, 1)
	assert.Equal(t, "term", distinct[0].Name)
	assert.Equal(t, []string{"b", "a"}, distinct[0].Labels)
	assert.Equal(t, domain.CardinalityBinary, distinct[0].Cardinality)
}

func TestPercentageOfZeros(t *testing.T) {
	tbl := mustTable(t,
		domain.NewNumericColumn("recoveries", []float64{0, 1, 0, 2}, nil),
		domain.NewTextColumn("label", []string{"0", "0", "0", "0"}, nil),
	)

	zeros := PercentageOfZeros(tbl)
	require.Len(t, zeros, 1)
	assert.InDelta(t, 50, zeros[0].Percentage, 1e-12)
}

func TestDescribeTypes(t *testing.T) {
	tbl := mustTable(t,
		domain.NewNumericColumn("a", []float64{1}, nil),
		domain.NewCategoricalColumn("b", []string{"x"}, nil),
	)

	types := DescribeTypes(tbl)
	require.Len(t, types, 2)
	assert.Equal(t, domain.TypeNumeric, types[0].Type)
	assert.Equal(t, domain.TypeCategorical, types[1].Type)
}
