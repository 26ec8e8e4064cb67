package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var ErrBoxCoxDomain = errors.New("box-cox requires strictly positive input")

// Mean returns the arithmetic mean, 0 for an empty sample.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Median returns the 50th percentile.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Quantile returns the p-th quantile using linear interpolation between the
// closest ranks, h = (n-1)p. An empty sample yields 0.
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := slices.Clone(x)
	slices.Sort(sorted)
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Skewness returns the adjusted Fisher-Pearson sample skewness. Samples that
// are too small or have no spread have a defined skewness of 0.
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return 0
	}
	if stat.Variance(x, nil) == 0 {
		return 0
	}
	s := stat.Skew(x, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// Pearson returns the correlation of two equally long samples, 0 when it is
// undefined (fewer than two points or a constant sample).
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// NumericMode returns the most frequent value and its count. Ties resolve to
// the smallest value. An empty sample returns count 0.
func NumericMode(x []float64) (float64, int) {
	counts := make(map[float64]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	return modeOf(counts, func(a, b float64) bool { return a < b })
}

// LabelMode returns the most frequent label and its count. Ties resolve to
// the lexicographically smallest label.
func LabelMode(labels []string) (string, int) {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}
	return modeOf(counts, func(a, b string) bool { return a < b })
}

// TimeMode returns the most frequent instant and its count. Ties resolve to
// the earliest instant.
func TimeMode(ts []time.Time) (time.Time, int) {
	counts := make(map[time.Time]int, len(ts))
	for _, v := range ts {
		counts[v.UTC()]++
	}
	return modeOf(counts, func(a, b time.Time) bool { return a.Before(b) })
}

func modeOf[K comparable](counts map[K]int, less func(a, b K) bool) (K, int) {
	var best K
	bestCount := 0
	for k, n := range counts {
		if n > bestCount || (n == bestCount && less(k, best)) {
			best, bestCount = k, n
		}
	}
	return best, bestCount
}

// BoxCoxLambda estimates the Box-Cox exponent by maximising the profile
// log-likelihood. Input must be strictly positive.
func BoxCoxLambda(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 values", ErrBoxCoxDomain)
	}
	if floats.Min(x) <= 0 {
		return 0, ErrBoxCoxDomain
	}
	logSum := 0.0
	for _, v := range x {
		logSum += math.Log(v)
	}
	problem := optimize.Problem{
		Func: func(l []float64) float64 {
			return -boxCoxLogLikelihood(x, logSum, l[0])
		},
	}
	result, err := optimize.Minimize(problem, []float64{0}, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, fmt.Errorf("estimating box-cox lambda: %w", err)
	}
	return result.X[0], nil
}

func boxCoxLogLikelihood(x []float64, logSum, lambda float64) float64 {
	y := BoxCox(x, lambda)
	n := float64(len(y))
	variance := stat.Variance(y, nil) * (n - 1) / n
	if variance <= 0 || math.IsNaN(variance) {
		return -math.MaxFloat64
	}
	return (lambda-1)*logSum - n/2*math.Log(variance)
}

// BoxCox applies the Box-Cox power transform with exponent lambda.
func BoxCox(x []float64, lambda float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if math.Abs(lambda) < 1e-12 {
			out[i] = math.Log(v)
		} else {
			out[i] = (math.Pow(v, lambda) - 1) / lambda
		}
	}
	return out
}
