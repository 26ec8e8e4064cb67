package service

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/guillermoBallester/loaneda/internal/plan"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// Recovery computes the average share of the funded amounts already paid
// back, and the same share projected months ahead at the portfolio's monthly
// recovery rate. Loans funded at 1 or less are excluded.
func Recovery(t *domain.Table, cols plan.MetricColumns, months int) (port.RecoveryReport, error) {
	report := port.RecoveryReport{ProjectionMonths: months}

	funded, err := numericColumn(t, cols.FundedAmount)
	if err != nil {
		return report, err
	}
	fundedInv, err := numericColumn(t, cols.FundedAmountInv)
	if err != nil {
		return report, err
	}
	paid, err := numericColumn(t, cols.TotalPayment)
	if err != nil {
		return report, err
	}
	term, err := numericColumn(t, cols.Term)
	if err != nil {
		return report, err
	}

	var ratio, ratioInv, fundedKept, paidKept, termKept []float64
	for i := 0; i < t.Rows(); i++ {
		if funded.IsNull(i) || fundedInv.IsNull(i) || funded.Numbers[i] <= 1 || fundedInv.Numbers[i] <= 1 {
			continue
		}
		if paid.IsNull(i) {
			continue
		}
		ratio = append(ratio, paid.Numbers[i]/funded.Numbers[i]*100)
		ratioInv = append(ratioInv, paid.Numbers[i]/fundedInv.Numbers[i]*100)
		fundedKept = append(fundedKept, funded.Numbers[i])
		paidKept = append(paidKept, paid.Numbers[i])
		if !term.IsNull(i) {
			termKept = append(termKept, term.Numbers[i])
		}
	}
	if len(ratio) == 0 {
		return report, nil
	}

	report.Available = true
	report.Loans = len(ratio)
	report.Current = port.Recovery{Total: domain.Mean(ratio), Investor: domain.Mean(ratioInv)}

	// Monthly rate as a percentage of the funded total.
	rate := 0.0
	if denom := floats.Sum(fundedKept) * domain.Mean(termKept); denom != 0 {
		rate = floats.Sum(paidKept) / denom * 100
	}
	ahead := rate * float64(months)
	report.Projected = port.Recovery{Total: report.Current.Total + ahead, Investor: report.Current.Investor + ahead}
	return report, nil
}

// ChargedOff summarises loans whose status is one of statuses: their share
// of all loans, what was paid before write-off, and the revenue lost
// against the full instalment schedule.
func ChargedOff(t *domain.Table, cols plan.MetricColumns, statuses []string) (port.ChargedOffReport, error) {
	var report port.ChargedOffReport

	sub, err := loanSubset(t, cols, statuses)
	if err != nil {
		return report, err
	}
	report.Count = sub.count
	report.Percentage = percentage(sub.count, t.Rows())
	report.TotalPaid = decimal.Sum(decimal.Zero, sub.paid...)
	report.ProjectedLoss = decimal.Sum(decimal.Zero, sub.revenue...).Sub(report.TotalPaid)
	return report, nil
}

// AtRisk summarises late and in-grace loans. LossIfChargedOff is the unpaid
// balance of every loan if all were written off now; LossIfFullTerm is the
// gap between the full schedule and what has been paid so far.
func AtRisk(t *domain.Table, cols plan.MetricColumns, statuses []string) (port.AtRiskReport, error) {
	var report port.AtRiskReport

	sub, err := loanSubset(t, cols, statuses)
	if err != nil {
		return report, err
	}
	report.Count = sub.count
	report.Percentage = percentage(sub.count, t.Rows())
	report.TotalPaid = decimal.Sum(decimal.Zero, sub.paid...)
	report.ProjectedRevenue = decimal.Sum(decimal.Zero, sub.revenue...)
	report.LossIfFullTerm = report.ProjectedRevenue.Sub(report.TotalPaid)

	report.LossIfChargedOff = decimal.Zero
	for i := range sub.revenue {
		if owed := sub.revenue[i].Sub(sub.paid[i]); owed.IsPositive() {
			report.LossIfChargedOff = report.LossIfChargedOff.Add(owed)
		}
	}
	return report, nil
}

type subset struct {
	count   int
	paid    []decimal.Decimal
	revenue []decimal.Decimal
}

// loanSubset collects payments and scheduled revenue (instalment x term) of
// the loans carrying one of statuses. Rows missing a monetary value count
// towards the subset but not towards the sums.
func loanSubset(t *domain.Table, cols plan.MetricColumns, statuses []string) (subset, error) {
	var sub subset

	status, err := t.Column(cols.LoanStatus)
	if err != nil {
		return sub, err
	}
	paid, err := numericColumn(t, cols.TotalPayment)
	if err != nil {
		return sub, err
	}
	instalment, err := numericColumn(t, cols.Instalment)
	if err != nil {
		return sub, err
	}
	term, err := numericColumn(t, cols.Term)
	if err != nil {
		return sub, err
	}

	for i := 0; i < t.Rows(); i++ {
		if status.IsNull(i) || !slices.Contains(statuses, status.Label(i)) {
			continue
		}
		sub.count++
		if paid.IsNull(i) || instalment.IsNull(i) || term.IsNull(i) {
			continue
		}
		sub.paid = append(sub.paid, decimal.NewFromFloat(paid.Numbers[i]))
		sub.revenue = append(sub.revenue, decimal.NewFromFloat(instalment.Numbers[i]).Mul(decimal.NewFromFloat(term.Numbers[i])))
	}
	return sub, nil
}

// Segments counts, for each segment column, how often every label occurs
// among charged-off loans and among at-risk loans. Labels are ordered by
// overall frequency or alphabetically, per segment.
func Segments(t *domain.Table, statusColumn string, segments []plan.SegmentSpec, chargedOff, atRisk []string) ([]port.SegmentBreakdown, error) {
	status, err := t.Column(statusColumn)
	if err != nil {
		return nil, err
	}

	out := make([]port.SegmentBreakdown, 0, len(segments))
	for _, seg := range segments {
		col, err := t.Column(seg.Column)
		if err != nil {
			return nil, err
		}

		overall := make(map[string]int)
		co := make(map[string]int)
		ar := make(map[string]int)
		for i := 0; i < t.Rows(); i++ {
			if col.IsNull(i) {
				continue
			}
			label := col.Label(i)
			overall[label]++
			if status.IsNull(i) {
				continue
			}
			s := status.Label(i)
			if slices.Contains(chargedOff, s) {
				co[label]++
			}
			if slices.Contains(atRisk, s) {
				ar[label]++
			}
		}

		labels := orderLabels(overall, seg.Order)
		b := port.SegmentBreakdown{
			Column:     seg.Column,
			ChargedOff: make([]port.LabelCount, len(labels)),
			AtRisk:     make([]port.LabelCount, len(labels)),
		}
		for i, l := range labels {
			b.ChargedOff[i] = port.LabelCount{Label: l, Count: co[l]}
			b.AtRisk[i] = port.LabelCount{Label: l, Count: ar[l]}
		}
		out = append(out, b)
	}
	return out, nil
}

func orderLabels(counts map[string]int, order plan.SegmentOrder) []string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	slices.SortFunc(labels, func(a, b string) int {
		if order != plan.OrderByLabel {
			if c := cmp.Compare(counts[b], counts[a]); c != 0 {
				return c
			}
		}
		return cmp.Compare(a, b)
	})
	return labels
}

// ComputeMetrics derives every business metric from a cleaned table.
func ComputeMetrics(t *domain.Table, m plan.MetricsSpec) (port.MetricsReport, error) {
	var report port.MetricsReport
	var err error

	if report.Recovery, err = Recovery(t, m.Columns, m.ProjectionMonths); err != nil {
		return report, fmt.Errorf("recovery: %w", err)
	}
	if report.ChargedOff, err = ChargedOff(t, m.Columns, m.ChargedOffStatuses); err != nil {
		return report, fmt.Errorf("charged off: %w", err)
	}
	if report.AtRisk, err = AtRisk(t, m.Columns, m.AtRiskStatuses); err != nil {
		return report, fmt.Errorf("at risk: %w", err)
	}
	if report.Segments, err = Segments(t, m.Columns.LoanStatus, m.Segments, m.ChargedOffStatuses, m.AtRiskStatuses); err != nil {
		return report, fmt.Errorf("segments: %w", err)
	}
	return report, nil
}

func numericColumn(t *domain.Table, name string) (*domain.Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.IsNumeric() {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotNumeric, name, c.Type)
	}
	return c, nil
}
