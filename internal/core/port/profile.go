package port

import "github.com/guillermoBallester/loaneda/internal/core/domain"

// ColumnTypeInfo is the declared type of one column.
type ColumnTypeInfo struct {
	Name string            `json:"name"`
	Type domain.ColumnType `json:"type"`
}

// ColumnStats holds central-tendency statistics for a numeric column.
// Mode is nil when no value repeats.
type ColumnStats struct {
	Name   string   `json:"name"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Mode   *float64 `json:"mode,omitempty"`
}

// NullCount holds the absolute and relative null count of a column.
type NullCount struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ZeroShare is the percentage of zero values in a numeric column.
type ZeroShare struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// DistinctLabels lists the labels of a categorical column in order of first
// appearance.
type DistinctLabels struct {
	Name        string                  `json:"name"`
	Labels      []string                `json:"labels"`
	Cardinality domain.CardinalityClass `json:"cardinality"`
}

// QualityReport is the full diagnostic profile of a table. It is derived on
// demand and goes stale as soon as the table changes.
type QualityReport struct {
	Rows     int              `json:"rows"`
	Types    []ColumnTypeInfo `json:"types"`
	Stats    []ColumnStats    `json:"stats"`
	Distinct []DistinctLabels `json:"distinct"`
	Nulls    []NullCount      `json:"nulls"`
	Zeros    []ZeroShare      `json:"zeros"`
}

// SkewedColumn is one entry of a skew report.
type SkewedColumn struct {
	Name     string  `json:"name"`
	Skewness float64 `json:"skewness"`
}

// CorrelatedPair is an unordered pair of numeric columns whose absolute
// correlation exceeds a threshold. First precedes Second in table order.
type CorrelatedPair struct {
	First       string  `json:"first"`
	Second      string  `json:"second"`
	Correlation float64 `json:"correlation"`
}

// CorrelationMatrix is a symmetric Pearson matrix over numeric columns.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}
