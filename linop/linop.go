package linop

import (
	"errors"
	"fmt"
)

// Errors returned by operator construction and application.
var (
	ErrDimensionMismatch = errors.New("linop: dimension mismatch")
	ErrEmptyKernel       = errors.New("linop: empty kernel")
	ErrInvalidLength     = errors.New("linop: length must be > 0")
)

// Operator is a linear mapping between two fixed-length real vector spaces.
// Apply computes the forward map, Adjoint its transpose. Both write into a
// caller-provided destination and fail with ErrDimensionMismatch when either
// slice length does not match the operator's domain or codomain.
type Operator interface {
	Apply(dst, x []float64) error
	Adjoint(dst, y []float64) error
	InputLen() int
	OutputLen() int
}

// checkShape validates a (dst, src) pair against expected lengths.
func checkShape(lenDst, wantDst, lenSrc, wantSrc int) error {
	if lenSrc != wantSrc {
		return fmt.Errorf("%w: input length %d, want %d", ErrDimensionMismatch, lenSrc, wantSrc)
	}
	if lenDst != wantDst {
		return fmt.Errorf("%w: output length %d, want %d", ErrDimensionMismatch, lenDst, wantDst)
	}
	return nil
}

// Apply runs the forward map of op into a freshly allocated slice.
func Apply(op Operator, x []float64) ([]float64, error) {
	dst := make([]float64, op.OutputLen())
	if err := op.Apply(dst, x); err != nil {
		return nil, err
	}
	return dst, nil
}

// Adjoint runs the adjoint map of op into a freshly allocated slice.
func Adjoint(op Operator, y []float64) ([]float64, error) {
	dst := make([]float64, op.InputLen())
	if err := op.Adjoint(dst, y); err != nil {
		return nil, err
	}
	return dst, nil
}
