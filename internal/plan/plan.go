package plan

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultDateLayout matches values such as "Jan-2021".
const DefaultDateLayout = "Jan-2006"

// Plan holds the dataset-specific column lists and thresholds that drive the
// pipeline. It is loaded from YAML; anything the file omits keeps the
// loan_payments defaults.
type Plan struct {
	Normalize NormalizeSpec `yaml:"normalize"`
	Cleaning  CleaningSpec  `yaml:"cleaning"`
	Metrics   MetricsSpec   `yaml:"metrics"`
}

// NormalizeSpec lists the columns rewritten by each type coercion.
type NormalizeSpec struct {
	FloatToInt  []string   `yaml:"float_to_int"`
	MixedToInt  []string   `yaml:"mixed_to_int"`
	Dates       []DateSpec `yaml:"dates"`
	Categorical []string   `yaml:"categorical"`
}

// DateSpec names a date column and the layout its text values follow.
type DateSpec struct {
	Column string `yaml:"column"`
	Layout string `yaml:"layout,omitempty"`
}

// UnmarshalYAML accepts either a bare column name or a mapping.
//
//	dates:
//	  - issue_date                  # layout defaults to Jan-2006
//	  - column: last_payment_date
//	    layout: "2006-01-02"
func (d *DateSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Column = value.Value
		return nil
	}
	type alias DateSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding date column: %w", err)
	}
	*d = DateSpec(a)
	return nil
}

// CleaningSpec holds the cleaning thresholds.
type CleaningSpec struct {
	// NullThreshold is a percentage; columns strictly above it are dropped.
	NullThreshold        float64 `yaml:"null_threshold"`
	SkewThreshold        float64 `yaml:"skew_threshold"`
	CorrelationThreshold float64 `yaml:"correlation_threshold"`
	// OutlierColumns restricts IQR filtering; empty means every numeric column.
	OutlierColumns []string `yaml:"outlier_columns"`
}

// MetricsSpec configures the business metrics.
type MetricsSpec struct {
	Columns            MetricColumns `yaml:"columns"`
	ChargedOffStatuses []string      `yaml:"charged_off_statuses"`
	AtRiskStatuses     []string      `yaml:"at_risk_statuses"`
	Segments           []SegmentSpec `yaml:"segments"`
	ProjectionMonths   int           `yaml:"projection_months"`
}

// MetricColumns maps metric inputs to dataset column names.
type MetricColumns struct {
	FundedAmount    string `yaml:"funded_amount"`
	FundedAmountInv string `yaml:"funded_amount_inv"`
	TotalPayment    string `yaml:"total_payment"`
	Instalment      string `yaml:"instalment"`
	Term            string `yaml:"term"`
	LoanStatus      string `yaml:"loan_status"`
}

// SegmentOrder controls how segment labels are ordered in breakdowns.
type SegmentOrder string

const (
	OrderByFrequency SegmentOrder = "frequency"
	OrderByLabel     SegmentOrder = "label"
)

// SegmentSpec names a column whose labels are compared across risk subsets.
type SegmentSpec struct {
	Column string       `yaml:"column"`
	Order  SegmentOrder `yaml:"order,omitempty"`
}

// UnmarshalYAML accepts either a bare column name or a mapping.
func (s *SegmentSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Column = value.Value
		return nil
	}
	type alias SegmentSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding segment: %w", err)
	}
	*s = SegmentSpec(a)
	return nil
}

// Default returns the plan for the loan_payments relation.
func Default() *Plan {
	return &Plan{
		Normalize: NormalizeSpec{
			FloatToInt: []string{"mths_since_last_record", "mths_since_last_delinq", "collections_12_mths_ex_med", "mths_since_last_major_derog"},
			MixedToInt: []string{"term", "employment_length"},
			Dates: []DateSpec{
				{Column: "issue_date"},
				{Column: "earliest_credit_line"},
				{Column: "last_payment_date"},
				{Column: "next_payment_date"},
				{Column: "last_credit_pull_date"},
			},
			Categorical: []string{"grade", "sub_grade", "home_ownership", "verification_status", "loan_status", "payment_plan", "purpose", "policy_code", "application_type"},
		},
		Cleaning: CleaningSpec{
			NullThreshold:        50,
			SkewThreshold:        1,
			CorrelationThreshold: 0.9,
		},
		Metrics: MetricsSpec{
			Columns: MetricColumns{
				FundedAmount:    "funded_amount",
				FundedAmountInv: "funded_amount_inv",
				TotalPayment:    "total_payment",
				Instalment:      "instalment",
				Term:            "term",
				LoanStatus:      "loan_status",
			},
			ChargedOffStatuses: []string{"Charged Off"},
			AtRiskStatuses:     []string{"Late (16-30 days)", "Late (31-120 days)", "In Grace Period"},
			Segments: []SegmentSpec{
				{Column: "grade", Order: OrderByLabel},
				{Column: "purpose", Order: OrderByFrequency},
				{Column: "home_ownership", Order: OrderByFrequency},
			},
			ProjectionMonths: 6,
		},
	}
}
