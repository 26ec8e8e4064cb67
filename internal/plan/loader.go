package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML plan over the defaults and validates the result.
func LoadFromFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing plan YAML: %w", err)
	}

	if err := validate(p); err != nil {
		return nil, fmt.Errorf("validating plan: %w", err)
	}

	return p, nil
}

func validate(p *Plan) error {
	for i := range p.Normalize.Dates {
		d := &p.Normalize.Dates[i]
		if d.Column == "" {
			return fmt.Errorf("normalize.dates[%d] has an empty column", i)
		}
		if d.Layout == "" {
			d.Layout = DefaultDateLayout
		}
	}

	// A column may only be coerced by one normalization.
	seen := make(map[string]string)
	claim := func(list string, cols []string) error {
		for _, c := range cols {
			if c == "" {
				return fmt.Errorf("normalize.%s contains an empty column name", list)
			}
			if prev, ok := seen[c]; ok && prev != list {
				return fmt.Errorf("column %q listed in both normalize.%s and normalize.%s", c, prev, list)
			}
			seen[c] = list
		}
		return nil
	}
	dateCols := make([]string, len(p.Normalize.Dates))
	for i, d := range p.Normalize.Dates {
		dateCols[i] = d.Column
	}
	if err := claim("float_to_int", p.Normalize.FloatToInt); err != nil {
		return err
	}
	if err := claim("mixed_to_int", p.Normalize.MixedToInt); err != nil {
		return err
	}
	if err := claim("dates", dateCols); err != nil {
		return err
	}
	if err := claim("categorical", p.Normalize.Categorical); err != nil {
		return err
	}

	c := p.Cleaning
	if c.NullThreshold < 0 || c.NullThreshold > 100 {
		return fmt.Errorf("cleaning.null_threshold %v must be between 0 and 100", c.NullThreshold)
	}
	if c.SkewThreshold <= 0 {
		return fmt.Errorf("cleaning.skew_threshold %v must be positive", c.SkewThreshold)
	}
	if c.CorrelationThreshold <= 0 || c.CorrelationThreshold > 1 {
		return fmt.Errorf("cleaning.correlation_threshold %v must be in (0, 1]", c.CorrelationThreshold)
	}

	m := p.Metrics
	cols := map[string]string{
		"funded_amount":     m.Columns.FundedAmount,
		"funded_amount_inv": m.Columns.FundedAmountInv,
		"total_payment":     m.Columns.TotalPayment,
		"instalment":        m.Columns.Instalment,
		"term":              m.Columns.Term,
		"loan_status":       m.Columns.LoanStatus,
	}
	for key, v := range cols {
		if v == "" {
			return fmt.Errorf("metrics.columns.%s is empty", key)
		}
	}
	if m.ProjectionMonths < 0 {
		return fmt.Errorf("metrics.projection_months %d must not be negative", m.ProjectionMonths)
	}
	for i := range p.Metrics.Segments {
		s := &p.Metrics.Segments[i]
		if s.Column == "" {
			return fmt.Errorf("metrics.segments[%d] has an empty column", i)
		}
		switch s.Order {
		case "":
			s.Order = OrderByFrequency
		case OrderByFrequency, OrderByLabel:
		default:
			return fmt.Errorf("metrics.segments[%d] order %q must be %q or %q", i, s.Order, OrderByFrequency, OrderByLabel)
		}
	}

	return nil
}

// Resolve fills defaults on an in-memory plan and validates it.
func Resolve(p *Plan) error {
	return validate(p)
}
