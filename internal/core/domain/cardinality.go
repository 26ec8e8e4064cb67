package domain

// CardinalityClass describes how many distinct labels a categorical column
// carries relative to its row count.
type CardinalityClass string

const (
	CardinalityConstant   CardinalityClass = "constant"
	CardinalityBinary     CardinalityClass = "binary"
	CardinalityEnumLike   CardinalityClass = "enum_like"
	CardinalityLow        CardinalityClass = "low_cardinality"
	CardinalityHigh       CardinalityClass = "high_cardinality"
	CardinalityNearUnique CardinalityClass = "near_unique"
	CardinalityUnique     CardinalityClass = "unique"
)

// ClassifyLabels determines the cardinality class of a categorical column
// from its distinct label count and its non-null row count.
func ClassifyLabels(distinct, observed int) CardinalityClass {
	switch {
	case distinct <= 1:
		return CardinalityConstant
	case distinct == 2:
		return CardinalityBinary
	case distinct == observed:
		return CardinalityUnique
	case float64(distinct)/float64(observed) >= 0.9:
		return CardinalityNearUnique
	case distinct <= 20:
		return CardinalityEnumLike
	case distinct <= 200:
		return CardinalityLow
	default:
		return CardinalityHigh
	}
}
