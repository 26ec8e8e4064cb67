package service

import (
	"math"
	"time"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
)

// imputeTolerance is the largest relative mean/median gap for which the mean
// is still used to fill nulls.
const imputeTolerance = 0.1

// DropNullColumns drops every column whose null percentage is strictly above
// threshold.
func DropNullColumns(t *domain.Table, threshold float64) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("clean.drop_null_columns", out)

	var drop []string
	for _, nc := range CountNulls(out) {
		if nc.Percentage > threshold {
			drop = append(drop, nc.Name)
			report.Add(domain.Applied(nc.Name, "drop", nc.Count))
		}
	}
	if err := out.Drop(drop...); err != nil {
		return nil, report, err
	}
	report.Dropped = drop
	return out, report, nil
}

// ImputeMissing fills nulls. Numeric columns use the mean when it lies
// within 10% of the median and the median otherwise; a zero mean always
// falls back to the median. Other columns use their mode, ties going to the
// smallest value.
func ImputeMissing(t *domain.Table) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("clean.impute", out)

	for _, col := range out.Columns() {
		nulls := col.NullCount()
		if nulls == 0 {
			continue
		}
		if nulls == col.Len() {
			report.Add(domain.Skipped(col.Name, "no observed values to impute from"))
			continue
		}

		method := "mode"
		switch col.Type {
		case domain.TypeNumeric:
			var fill float64
			fill, method = numericFill(col.ObservedNumbers())
			for i := range col.Numbers {
				if col.IsNull(i) {
					col.Numbers[i] = fill
				}
			}
		case domain.TypeDatetime:
			fill, _ := domain.TimeMode(observedTimes(col))
			for i := range col.Times {
				if col.IsNull(i) {
					col.Times[i] = fill
				}
			}
		default:
			fill, _ := domain.LabelMode(observedStrings(col))
			for i := range col.Strings {
				if col.IsNull(i) {
					col.Strings[i] = fill
				}
			}
		}
		for i := range col.Nulls {
			col.Nulls[i] = false
		}
		if err := out.Replace(col); err != nil {
			return nil, report, err
		}
		report.Add(domain.Applied(col.Name, method, nulls))
	}

	return out, report, nil
}

func numericFill(x []float64) (float64, string) {
	mean, median := domain.Mean(x), domain.Median(x)
	if mean == 0 {
		return median, "median"
	}
	if math.Abs(mean-median)/math.Abs(mean) < imputeTolerance {
		return mean, "mean"
	}
	return median, "median"
}

func observedStrings(c *domain.Column) []string {
	out := make([]string, 0, len(c.Strings))
	for i, s := range c.Strings {
		if !c.IsNull(i) {
			out = append(out, s)
		}
	}
	return out
}

func observedTimes(c *domain.Column) []time.Time {
	out := make([]time.Time, 0, len(c.Times))
	for i, ts := range c.Times {
		if !c.IsNull(i) {
			out = append(out, ts)
		}
	}
	return out
}

// RemoveOutliers keeps the rows whose value in column lies within
// [Q1-1.5*IQR, Q3+1.5*IQR]. Null values fail the bound and are removed.
// Non-numeric columns leave the table unchanged.
func RemoveOutliers(t *domain.Table, column string) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("clean.outliers", out)

	col, err := out.Column(column)
	if err != nil {
		return nil, report, err
	}
	if !col.IsNumeric() {
		report.Add(domain.Skipped(column, "column is "+string(col.Type)+", not numeric"))
		return out, report, nil
	}
	x := col.ObservedNumbers()
	if len(x) == 0 {
		report.Add(domain.Skipped(column, "no observed values"))
		return out, report, nil
	}

	lower, upper := iqrBounds(x)
	keep := make([]bool, out.Rows())
	for i, v := range col.Numbers {
		keep[i] = !col.IsNull(i) && v >= lower && v <= upper
	}
	if err := out.Filter(keep); err != nil {
		return nil, report, err
	}

	report.RowsAfter = out.Rows()
	report.Add(domain.Applied(column, "iqr", report.RowsRemoved()))
	return out, report, nil
}

// RemoveOutliersAll applies RemoveOutliers column after column, each on the
// already filtered table. An empty list means every numeric column.
func RemoveOutliersAll(t *domain.Table, columns []string) (*domain.Table, domain.StageReport, error) {
	report := domain.NewStageReport("clean.outliers", t)
	if len(columns) == 0 {
		for _, c := range t.NumericColumns() {
			columns = append(columns, c.Name)
		}
	}

	out := t
	for _, name := range columns {
		next, r, err := RemoveOutliers(out, name)
		if err != nil {
			return nil, report, err
		}
		report.Merge(r)
		out = next
	}
	if out == t {
		out = t.Clone()
	}
	return out, report, nil
}

func iqrBounds(x []float64) (float64, float64) {
	q1 := domain.Quantile(x, 0.25)
	q3 := domain.Quantile(x, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}
