package port

import "github.com/shopspring/decimal"

// Recovery is a pair of recovery percentages against the total funded amount
// and the investor-funded amount.
type Recovery struct {
	Total    float64 `json:"total"`
	Investor float64 `json:"investor"`
}

// RecoveryReport holds current and projected recovery. Available is false
// when no loan passes the funded-amount filter.
type RecoveryReport struct {
	Available        bool     `json:"available"`
	Loans            int      `json:"loans"`
	Current          Recovery `json:"current"`
	Projected        Recovery `json:"projected"`
	ProjectionMonths int      `json:"projection_months"`
}

// ChargedOffReport summarises loans written off by the lender.
type ChargedOffReport struct {
	Count         int             `json:"count"`
	Percentage    float64         `json:"percentage"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	ProjectedLoss decimal.Decimal `json:"projected_loss"`
}

// AtRiskReport summarises late and in-grace loans under two scenarios.
type AtRiskReport struct {
	Count            int             `json:"count"`
	Percentage       float64         `json:"percentage"`
	LossIfChargedOff decimal.Decimal `json:"loss_if_charged_off"`
	LossIfFullTerm   decimal.Decimal `json:"loss_if_full_term"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
}

// LabelCount is the number of loans carrying a label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SegmentBreakdown compares label frequencies of one column between the
// charged-off subset and the at-risk subset.
type SegmentBreakdown struct {
	Column     string       `json:"column"`
	ChargedOff []LabelCount `json:"charged_off"`
	AtRisk     []LabelCount `json:"at_risk"`
}

// MetricsReport bundles every business metric computed from a cleaned table.
type MetricsReport struct {
	Recovery   RecoveryReport     `json:"recovery"`
	ChargedOff ChargedOffReport   `json:"charged_off"`
	AtRisk     AtRiskReport       `json:"at_risk"`
	Segments   []SegmentBreakdown `json:"segments,omitempty"`
}
