package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/plan"
)

var digitRun = regexp.MustCompile(`\d+`)

// MixedToInteger replaces text such as "10+ years" or "36 months" with the
// first run of digits it contains. Values without digits and nulls become 0.
// A column is left unchanged when any digit run overflows.
func MixedToInteger(t *domain.Table, columns []string) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("normalize.mixed_to_int", out)

	for _, name := range columns {
		col, err := out.Column(name)
		if err != nil {
			return nil, report, err
		}

		switch col.Type {
		case domain.TypeNumeric:
			report.Add(domain.Applied(name, "noop", 0))
			continue
		case domain.TypeDatetime:
			report.Add(domain.Skipped(name, "datetime column has no digit runs"))
			continue
		}

		values := make([]float64, col.Len())
		failed := ""
		for i, s := range col.Strings {
			if col.IsNull(i) {
				continue
			}
			run := digitRun.FindString(s)
			if run == "" {
				continue
			}
			n, err := strconv.ParseInt(run, 10, 64)
			if err != nil {
				failed = run
				break
			}
			values[i] = float64(n)
		}
		if failed != "" {
			report.Add(domain.Skipped(name, "digit run "+strconv.Quote(failed)+" does not fit an integer"))
			continue
		}

		if err := out.Replace(domain.NewNumericColumn(name, values, nil)); err != nil {
			return nil, report, err
		}
		report.Add(domain.Applied(name, "mixed_to_int", col.Len()))
	}

	return out, report, nil
}

// ParseDates parses text columns with layout. Unparseable values become null.
// An empty layout means plan.DefaultDateLayout.
func ParseDates(t *domain.Table, columns []string, layout string) (*domain.Table, domain.StageReport, error) {
	if layout == "" {
		layout = plan.DefaultDateLayout
	}
	out := t.Clone()
	report := domain.NewStageReport("normalize.dates", out)

	for _, name := range columns {
		col, err := out.Column(name)
		if err != nil {
			return nil, report, err
		}

		switch col.Type {
		case domain.TypeDatetime:
			report.Add(domain.Applied(name, "noop", 0))
			continue
		case domain.TypeNumeric:
			report.Add(domain.Skipped(name, "numeric column cannot hold "+layout+" dates"))
			continue
		}

		times := make([]time.Time, col.Len())
		nulls := make([]bool, col.Len())
		parsed := 0
		for i, s := range col.Strings {
			if col.IsNull(i) {
				nulls[i] = true
				continue
			}
			ts, err := time.Parse(layout, strings.TrimSpace(s))
			if err != nil {
				nulls[i] = true
				continue
			}
			times[i] = ts
			parsed++
		}

		if err := out.Replace(domain.NewDatetimeColumn(name, times, nulls)); err != nil {
			return nil, report, err
		}
		report.Add(domain.Applied(name, "date:"+layout, parsed))
	}

	return out, report, nil
}

// ToCategorical marks columns as categorical. Text keeps its values; numbers
// and dates are rendered as their canonical text.
func ToCategorical(t *domain.Table, columns []string) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("normalize.categorical", out)

	for _, name := range columns {
		col, err := out.Column(name)
		if err != nil {
			return nil, report, err
		}

		switch col.Type {
		case domain.TypeCategorical:
			report.Add(domain.Applied(name, "noop", 0))
			continue
		case domain.TypeText:
			col.Type = domain.TypeCategorical
			if err := out.Replace(col); err != nil {
				return nil, report, err
			}
		default:
			labels := make([]string, col.Len())
			for i := range labels {
				labels[i] = col.Label(i)
			}
			if err := out.Replace(domain.NewCategoricalColumn(name, labels, col.Nulls)); err != nil {
				return nil, report, err
			}
		}
		report.Add(domain.Applied(name, "categorical", col.Len()))
	}

	return out, report, nil
}

// FloatToInteger truncates numeric columns to whole numbers. Nulls stay null.
func FloatToInteger(t *domain.Table, columns []string) (*domain.Table, domain.StageReport, error) {
	out := t.Clone()
	report := domain.NewStageReport("normalize.float_to_int", out)

	for _, name := range columns {
		col, err := out.Column(name)
		if err != nil {
			return nil, report, err
		}
		if !col.IsNumeric() {
			report.Add(domain.Skipped(name, "column is "+string(col.Type)+", not numeric"))
			continue
		}

		changed := 0
		for i, v := range col.Numbers {
			if col.IsNull(i) {
				continue
			}
			if w := math.Trunc(v); w != v {
				col.Numbers[i] = w
				changed++
			}
		}
		if err := out.Replace(col); err != nil {
			return nil, report, err
		}
		report.Add(domain.Applied(name, "float_to_int", changed))
	}

	return out, report, nil
}

// Normalize runs every coercion named in n, in order: float truncation,
// digit extraction, date parsing, categorical marking.
func Normalize(t *domain.Table, n plan.NormalizeSpec) (*domain.Table, domain.StageReport, error) {
	report := domain.NewStageReport("normalize", t)

	out, r, err := FloatToInteger(t, n.FloatToInt)
	if err != nil {
		return nil, report, err
	}
	report.Merge(r)

	out, r, err = MixedToInteger(out, n.MixedToInt)
	if err != nil {
		return nil, report, err
	}
	report.Merge(r)

	for _, d := range n.Dates {
		out, r, err = ParseDates(out, []string{d.Column}, d.Layout)
		if err != nil {
			return nil, report, err
		}
		report.Merge(r)
	}

	out, r, err = ToCategorical(out, n.Categorical)
	if err != nil {
		return nil, report, err
	}
	report.Merge(r)

	return out, report, nil
}
