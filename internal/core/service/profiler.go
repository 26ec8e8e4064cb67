package service

import (
	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
)

// DescribeTypes returns the type of every column in table order.
func DescribeTypes(t *domain.Table) []port.ColumnTypeInfo {
	out := make([]port.ColumnTypeInfo, 0, t.Width())
	for _, c := range t.Columns() {
		out = append(out, port.ColumnTypeInfo{Name: c.Name, Type: c.Type})
	}
	return out
}

// DescribeStats returns mean, median and mode for each numeric column.
func DescribeStats(t *domain.Table) []port.ColumnStats {
	var out []port.ColumnStats
	for _, c := range t.NumericColumns() {
		x := c.ObservedNumbers()
		s := port.ColumnStats{Name: c.Name, Mean: domain.Mean(x), Median: domain.Median(x)}
		if v, n := domain.NumericMode(x); n > 1 {
			s.Mode = &v
		}
		out = append(out, s)
	}
	return out
}

// CountDistinctValues lists the labels of each categorical column in order of
// first appearance.
func CountDistinctValues(t *domain.Table) []port.DistinctLabels {
	var out []port.DistinctLabels
	for _, c := range t.Columns() {
		if c.Type != domain.TypeCategorical {
			continue
		}
		seen := make(map[string]bool)
		labels := []string{}
		observed := 0
		for i, s := range c.Strings {
			if c.IsNull(i) {
				continue
			}
			observed++
			if !seen[s] {
				seen[s] = true
				labels = append(labels, s)
			}
		}
		out = append(out, port.DistinctLabels{
			Name:        c.Name,
			Labels:      labels,
			Cardinality: domain.ClassifyLabels(len(labels), observed),
		})
	}
	return out
}

// CountNulls returns the null count of every column and its share of the
// row count. An empty table has 0% nulls.
func CountNulls(t *domain.Table) []port.NullCount {
	out := make([]port.NullCount, 0, t.Width())
	for _, c := range t.Columns() {
		n := c.NullCount()
		out = append(out, port.NullCount{Name: c.Name, Count: n, Percentage: percentage(n, t.Rows())})
	}
	return out
}

// PercentageOfZeros returns the share of rows holding 0 in each numeric column.
func PercentageOfZeros(t *domain.Table) []port.ZeroShare {
	var out []port.ZeroShare
	for _, c := range t.NumericColumns() {
		zeros := 0
		for i, v := range c.Numbers {
			if !c.IsNull(i) && v == 0 {
				zeros++
			}
		}
		out = append(out, port.ZeroShare{Name: c.Name, Percentage: percentage(zeros, t.Rows())})
	}
	return out
}

// Profile derives the full quality report of t.
func Profile(t *domain.Table) port.QualityReport {
	return port.QualityReport{
		Rows:     t.Rows(),
		Types:    DescribeTypes(t),
		Stats:    DescribeStats(t),
		Distinct: CountDistinctValues(t),
		Nulls:    CountNulls(t),
		Zeros:    PercentageOfZeros(t),
	}
}

// percentage returns part/whole*100, defining 0/0 as 0.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
