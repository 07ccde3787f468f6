// Package prox provides proximity operators for non-smooth penalty terms.
//
// A proximity operator maps a point to the minimizer of the penalty plus a
// quadratic distance term. For the L1 norm this is component-wise soft
// thresholding, the workhorse of sparse recovery.
package prox

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Errors returned by proximity operators.
var (
	ErrNegativeWeight = errors.New("prox: regularization weight must be >= 0")
	ErrWeightShape    = errors.New("prox: weight vector length mismatch")
	ErrShapeMismatch  = errors.New("prox: slice length mismatch")
)

// L1Norm is the proximity operator of λ‖x‖₁: component-wise soft thresholding
// at λ·step. A zero λ yields the identity. An optional per-element weight
// vector scales the threshold component-wise.
type L1Norm struct {
	lambda  float64
	weights []float64
}

// NewL1Norm creates the L1 proximity operator with regularization weight
// lambda >= 0.
func NewL1Norm(lambda float64) (*L1Norm, error) {
	if lambda < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrNegativeWeight, lambda)
	}
	return &L1Norm{lambda: lambda}, nil
}

// NewWeightedL1Norm creates the L1 proximity operator with per-element
// threshold scaling. A nil weight slice behaves like NewL1Norm.
func NewWeightedL1Norm(lambda float64, weights []float64) (*L1Norm, error) {
	p, err := NewL1Norm(lambda)
	if err != nil {
		return nil, err
	}
	if weights != nil {
		p.weights = make([]float64, len(weights))
		copy(p.weights, weights)
	}
	return p, nil
}

// Lambda returns the regularization weight.
func (p *L1Norm) Lambda() float64 { return p.lambda }

// Apply writes the soft threshold of x at lambda·step into dst:
// dst[i] = sign(x[i]) · max(|x[i]| − lambda·step, 0).
func (p *L1Norm) Apply(dst, x []float64, step float64) error {
	if len(dst) != len(x) {
		return fmt.Errorf("%w: dst %d, x %d", ErrShapeMismatch, len(dst), len(x))
	}
	if p.weights != nil && len(p.weights) != len(x) {
		return fmt.Errorf("%w: weights %d, x %d", ErrWeightShape, len(p.weights), len(x))
	}

	th := p.lambda * step
	for i, v := range x {
		t := th
		if p.weights != nil {
			t *= p.weights[i]
		}
		dst[i] = softThreshold(v, t)
	}
	return nil
}

// Penalty returns lambda·‖x‖₁ (weighted when a weight vector is set), the
// non-smooth term the operator is the proximity of.
func (p *L1Norm) Penalty(x []float64) float64 {
	if p.weights == nil {
		s := 0.0
		for _, v := range x {
			s += math.Abs(v)
		}
		return p.lambda * s
	}
	s := 0.0
	for i, v := range x {
		s += p.weights[i] * math.Abs(v)
	}
	return p.lambda * s
}

// SumAbs returns ‖x‖₁.
func SumAbs(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += math.Abs(v)
	}
	return s
}

// MaxAbs returns ‖x‖∞.
func MaxAbs(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return vecmath.MaxAbs(x)
}

func softThreshold(v, th float64) float64 {
	switch {
	case v > th:
		return v - th
	case v < -th:
		return v + th
	default:
		return 0
	}
}
