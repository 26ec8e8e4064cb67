package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		name     string
		distinct int
		observed int
		want     CardinalityClass
	}{
		{"empty column", 0, 0, CardinalityConstant},
		{"single label", 1, 500, CardinalityConstant},
		{"two labels", 2, 500, CardinalityBinary},
		{"two labels two rows", 2, 2, CardinalityBinary},
		{"grades", 7, 50000, CardinalityEnumLike},
		{"enum boundary", 20, 50000, CardinalityEnumLike},
		{"sub grades", 35, 50000, CardinalityLow},
		{"low boundary", 200, 50000, CardinalityLow},
		{"many labels", 5000, 50000, CardinalityHigh},
		{"near unique", 950, 1000, CardinalityNearUnique},
		{"all unique", 1000, 1000, CardinalityUnique},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyLabels(tt.distinct, tt.observed))
		})
	}
}
