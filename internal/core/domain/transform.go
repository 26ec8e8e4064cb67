package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	ErrInvalidMethod   = errors.New("invalid transformation method")
	ErrTransformDomain = errors.New("values outside the transformation domain")
)

// TransformMethod names a skew-reducing transformation.
type TransformMethod string

const (
	MethodLog    TransformMethod = "log"
	MethodSqrt   TransformMethod = "sqrt"
	MethodBoxCox TransformMethod = "boxcox"
)

// TransformMethods lists the candidates in evaluation order. Earlier methods
// win ties.
var TransformMethods = []TransformMethod{MethodLog, MethodSqrt, MethodBoxCox}

// ParseTransformMethod validates a method name.
func ParseTransformMethod(name string) (TransformMethod, error) {
	m := TransformMethod(name)
	if !slices.Contains(TransformMethods, m) {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrInvalidMethod, name, TransformMethods)
	}
	return m, nil
}

// Apply transforms x. log is log(1+x), boxcox is Box-Cox of x+1 with a
// maximum-likelihood exponent. Values outside a method's domain yield
// ErrTransformDomain.
func (m TransformMethod) Apply(x []float64) ([]float64, error) {
	switch m {
	case MethodLog:
		out := make([]float64, len(x))
		for i, v := range x {
			if v <= -1 {
				return nil, fmt.Errorf("%w: log1p of %v", ErrTransformDomain, v)
			}
			out[i] = math.Log1p(v)
		}
		return out, nil
	case MethodSqrt:
		out := make([]float64, len(x))
		for i, v := range x {
			if v < 0 {
				return nil, fmt.Errorf("%w: sqrt of %v", ErrTransformDomain, v)
			}
			out[i] = math.Sqrt(v)
		}
		return out, nil
	case MethodBoxCox:
		shifted := make([]float64, len(x))
		for i, v := range x {
			shifted[i] = v + 1
		}
		lambda, err := BoxCoxLambda(shifted)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransformDomain, err)
		}
		return BoxCox(shifted, lambda), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, string(m))
	}
}
