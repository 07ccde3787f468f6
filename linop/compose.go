package linop

import "fmt"

// Composition chains two operators: forward is outer(inner(x)), adjoint is
// innerᵀ(outerᵀ(y)). A Composition keeps a scratch buffer for the
// intermediate vector, so a single instance must not be used concurrently.
type Composition struct {
	outer   Operator
	inner   Operator
	scratch []float64
}

// Compose creates the operator outer ∘ inner. The inner codomain must match
// the outer domain.
func Compose(outer, inner Operator) (*Composition, error) {
	if inner.OutputLen() != outer.InputLen() {
		return nil, fmt.Errorf("%w: inner output %d, outer input %d",
			ErrDimensionMismatch, inner.OutputLen(), outer.InputLen())
	}
	return &Composition{
		outer:   outer,
		inner:   inner,
		scratch: make([]float64, inner.OutputLen()),
	}, nil
}

// InputLen returns the inner operator's domain length.
func (c *Composition) InputLen() int { return c.inner.InputLen() }

// OutputLen returns the outer operator's codomain length.
func (c *Composition) OutputLen() int { return c.outer.OutputLen() }

// Apply writes outer(inner(x)) into dst.
func (c *Composition) Apply(dst, x []float64) error {
	if err := c.inner.Apply(c.scratch, x); err != nil {
		return err
	}
	return c.outer.Apply(dst, c.scratch)
}

// Adjoint writes innerᵀ(outerᵀ(y)) into dst.
func (c *Composition) Adjoint(dst, y []float64) error {
	if err := c.outer.Adjoint(c.scratch, y); err != nil {
		return err
	}
	return c.inner.Adjoint(dst, c.scratch)
}
