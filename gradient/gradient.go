// Package gradient provides differentiable residual objectives over linear
// operators. An objective binds an operator H and a fixed observation y and
// evaluates the squared residual ‖Hx − y‖² and its gradient Hᵀ(Hx − y) at a
// point. Objectives are immutable once constructed.
package gradient

import (
	"errors"
	"fmt"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-deconv/linop"
)

// Errors returned by objective construction.
var (
	ErrNilOperator = errors.New("gradient: nil operator")
	ErrTargetShape = errors.New("gradient: target length does not match operator output")
)

// Objective evaluates a smooth residual term and its gradient. Lipschitz
// returns an upper bound on the gradient's Lipschitz constant, used by the
// solvers to derive a safe fixed step size.
type Objective interface {
	Residual(x []float64) (float64, error)
	Gradient(dst, x []float64) error
	Lipschitz() float64
	Dim() int
}

// L2Residual is the plain squared-residual objective:
//
//	Residual(x) = Σ(Hx − y)²
//	Gradient(x) = Hᵀ(Hx − y)
type L2Residual struct {
	op       linop.Operator
	target   []float64
	lipsch   float64
	residBuf []float64
}

// NewL2Residual creates the objective for operator op and observation target.
// The Lipschitz constant is estimated once by power iteration; when the
// iteration does not converge within its budget the best available estimate
// is used.
func NewL2Residual(op linop.Operator, target []float64) (*L2Residual, error) {
	if op == nil {
		return nil, ErrNilOperator
	}
	if len(target) != op.OutputLen() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTargetShape, len(target), op.OutputLen())
	}

	lipsch, err := linop.EstimateSpectralRadius(op)
	if err != nil {
		return nil, fmt.Errorf("gradient: lipschitz estimation failed: %w", err)
	}

	o := &L2Residual{
		op:       op,
		target:   make([]float64, len(target)),
		lipsch:   lipsch,
		residBuf: make([]float64, op.OutputLen()),
	}
	copy(o.target, target)
	return o, nil
}

// Dim returns the length of the objective's input vectors.
func (o *L2Residual) Dim() int { return o.op.InputLen() }

// Lipschitz returns the cached spectral-radius estimate of HᵀH.
func (o *L2Residual) Lipschitz() float64 { return o.lipsch }

// Operator returns the wrapped linear operator.
func (o *L2Residual) Operator() linop.Operator { return o.op }

// Residual returns Σ(Hx − y)².
func (o *L2Residual) Residual(x []float64) (float64, error) {
	if err := o.op.Apply(o.residBuf, x); err != nil {
		return 0, err
	}
	subtractInPlace(o.residBuf, o.target)
	return vecmath.DotProduct(o.residBuf, o.residBuf), nil
}

// Gradient writes Hᵀ(Hx − y) into dst.
func (o *L2Residual) Gradient(dst, x []float64) error {
	if err := o.op.Apply(o.residBuf, x); err != nil {
		return err
	}
	subtractInPlace(o.residBuf, o.target)
	return o.op.Adjoint(dst, o.residBuf)
}

// SquaredL2Residual is the Lipschitz-normalized variant: the residual is
// halved and the gradient scaled by 1/L, so a unit step is always stable.
// It converges to the same optimum as L2Residual.
type SquaredL2Residual struct {
	L2Residual
}

// NewSquaredL2Residual creates the normalized objective for operator op and
// observation target.
func NewSquaredL2Residual(op linop.Operator, target []float64) (*SquaredL2Residual, error) {
	inner, err := NewL2Residual(op, target)
	if err != nil {
		return nil, err
	}
	return &SquaredL2Residual{L2Residual: *inner}, nil
}

// Residual returns 0.5·Σ(Hx − y)².
func (o *SquaredL2Residual) Residual(x []float64) (float64, error) {
	r, err := o.L2Residual.Residual(x)
	return 0.5 * r, err
}

// Gradient writes Hᵀ(Hx − y)/L into dst.
func (o *SquaredL2Residual) Gradient(dst, x []float64) error {
	if err := o.L2Residual.Gradient(dst, x); err != nil {
		return err
	}
	if o.lipsch > 0 {
		vecmath.ScaleBlockInPlace(dst, 1/o.lipsch)
	}
	return nil
}

// Lipschitz returns 1 for the normalized variant.
func (o *SquaredL2Residual) Lipschitz() float64 { return 1 }

func subtractInPlace(dst, src []float64) {
	for i := range dst {
		dst[i] -= src[i]
	}
}
