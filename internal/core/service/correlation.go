package service

import (
	"math"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
)

// CorrelationMatrix computes Pearson correlation between every pair of
// numeric columns over the rows where both are observed.
func CorrelationMatrix(t *domain.Table) port.CorrelationMatrix {
	cols := t.NumericColumns()
	m := port.CorrelationMatrix{
		Columns: make([]string, len(cols)),
		Values:  make([][]float64, len(cols)),
	}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		m.Values[i][i] = 1
		for j := i + 1; j < len(cols); j++ {
			r := pairwisePearson(cols[i], cols[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// pairwisePearson correlates two numeric columns using pairwise complete rows.
func pairwisePearson(a, b *domain.Column) float64 {
	x := make([]float64, 0, a.Len())
	y := make([]float64, 0, b.Len())
	for i := range a.Numbers {
		if a.IsNull(i) || b.IsNull(i) {
			continue
		}
		x = append(x, a.Numbers[i])
		y = append(y, b.Numbers[i])
	}
	return domain.Pearson(x, y)
}

// IdentifyHighlyCorrelated returns every pair of numeric columns whose
// absolute correlation exceeds threshold. Pairs come from the upper triangle
// of the matrix, so First always precedes Second in table order.
func IdentifyHighlyCorrelated(t *domain.Table, threshold float64) []port.CorrelatedPair {
	m := CorrelationMatrix(t)
	var out []port.CorrelatedPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if math.Abs(m.Values[i][j]) > threshold {
				out = append(out, port.CorrelatedPair{First: m.Columns[i], Second: m.Columns[j], Correlation: m.Values[i][j]})
			}
		}
	}
	return out
}

// RemoveHighlyCorrelatedColumns drops the second column of every highly
// correlated pair. The removal set is reported in Dropped.
func RemoveHighlyCorrelatedColumns(t *domain.Table, threshold float64) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("clean.correlation", out)

	seen := make(map[string]bool)
	var drop []string
	for _, p := range IdentifyHighlyCorrelated(out, threshold) {
		if seen[p.Second] {
			continue
		}
		seen[p.Second] = true
		drop = append(drop, p.Second)
		report.Add(domain.ColumnResult{
			Column: p.Second,
			Status: domain.StatusApplied,
			Method: "drop",
			Reason: "correlated with " + p.First,
		})
	}
	if err := out.Drop(drop...); err != nil {
		return nil, report, err
	}
	report.Dropped = drop
	return out, report, nil
}
