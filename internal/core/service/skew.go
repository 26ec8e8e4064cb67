package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
)

var (
	ErrNotNumeric        = errors.New("column is not numeric")
	ErrNoViableTransform = errors.New("no transformation applies to the column")
)

// TransformOutcome is the winning transformation of a column.
type TransformOutcome struct {
	Method   domain.TransformMethod
	Column   *domain.Column
	Skewness float64
}

// IdentifySkewedColumns returns the numeric columns whose absolute skewness
// exceeds threshold, in table order.
func IdentifySkewedColumns(t *domain.Table, threshold float64) []port.SkewedColumn {
	var out []port.SkewedColumn
	for _, c := range t.NumericColumns() {
		s := domain.Skewness(c.ObservedNumbers())
		if math.Abs(s) > threshold {
			out = append(out, port.SkewedColumn{Name: c.Name, Skewness: s})
		}
	}
	return out
}

// TransformColumn applies the named method to the observed values of col.
// An unknown method is an error. A non-numeric column, or values outside the
// method's domain, leave col unchanged with a skipped result.
func TransformColumn(col *domain.Column, method string) (*domain.Column, domain.ColumnResult, error) {
	m, err := domain.ParseTransformMethod(method)
	if err != nil {
		return nil, domain.ColumnResult{}, err
	}
	if !col.IsNumeric() {
		return col, domain.Skipped(col.Name, fmt.Sprintf("cannot apply %s to %s column", m, col.Type)), nil
	}

	out, err := transformValues(col, m)
	if err != nil {
		return col, domain.Skipped(col.Name, err.Error()), nil
	}
	return out, domain.Applied(col.Name, string(m), col.Len()-col.NullCount()), nil
}

func transformValues(col *domain.Column, m domain.TransformMethod) (*domain.Column, error) {
	y, err := m.Apply(col.ObservedNumbers())
	if err != nil {
		return nil, err
	}
	out := col.Clone()
	j := 0
	for i := range out.Numbers {
		if out.IsNull(i) {
			continue
		}
		out.Numbers[i] = y[j]
		j++
	}
	return out, nil
}

// FindBestTransformation tries every method and keeps the one leaving the
// smallest absolute skewness. Methods whose domain excludes the values are
// passed over.
func FindBestTransformation(col *domain.Column) (TransformOutcome, error) {
	if !col.IsNumeric() {
		return TransformOutcome{}, fmt.Errorf("%w: %q is %s", ErrNotNumeric, col.Name, col.Type)
	}

	var candidates []TransformOutcome
	for _, m := range domain.TransformMethods {
		out, err := transformValues(col, m)
		if err != nil {
			continue
		}
		candidates = append(candidates, TransformOutcome{Method: m, Column: out, Skewness: domain.Skewness(out.ObservedNumbers())})
	}
	best, ok := leastSkewed(candidates)
	if !ok {
		return TransformOutcome{}, fmt.Errorf("%w: %q", ErrNoViableTransform, col.Name)
	}
	return best, nil
}

// leastSkewed picks the candidate with the smallest absolute skewness. On a
// tie the earlier candidate wins.
func leastSkewed(candidates []TransformOutcome) (TransformOutcome, bool) {
	if len(candidates) == 0 {
		return TransformOutcome{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if math.Abs(c.Skewness) < math.Abs(best.Skewness) {
			best = c
		}
	}
	return best, true
}

// TransformSkewedColumns replaces every column more skewed than threshold
// with its best transformation.
func TransformSkewedColumns(t *domain.Table, threshold float64) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("clean.skew", out)

	for _, sc := range IdentifySkewedColumns(out, threshold) {
		col, err := out.Column(sc.Name)
		if err != nil {
			return nil, report, err
		}
		best, err := FindBestTransformation(col)
		if err != nil {
			report.Add(domain.Skipped(sc.Name, err.Error()))
			continue
		}
		if err := out.Replace(best.Column); err != nil {
			return nil, report, err
		}
		report.Add(domain.Applied(sc.Name, string(best.Method), col.Len()-col.NullCount()))
	}

	return out, report, nil
}
