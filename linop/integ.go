package linop

// Integrator computes the inclusive running sum of a signal. It maps an
// innovation (spike) signal to its block form. The adjoint is the reverse
// running suffix sum.
type Integrator struct {
	n int
}

// NewIntegrator creates an integrator over signals of length n.
func NewIntegrator(n int) (*Integrator, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	return &Integrator{n: n}, nil
}

// InputLen returns the domain length.
func (g *Integrator) InputLen() int { return g.n }

// OutputLen returns the codomain length.
func (g *Integrator) OutputLen() int { return g.n }

// Apply writes the inclusive prefix sum of x into dst.
func (g *Integrator) Apply(dst, x []float64) error {
	if err := checkShape(len(dst), g.n, len(x), g.n); err != nil {
		return err
	}
	acc := 0.0
	for i, v := range x {
		acc += v
		dst[i] = acc
	}
	return nil
}

// Adjoint writes the reverse (suffix) sum of y into dst.
func (g *Integrator) Adjoint(dst, y []float64) error {
	if err := checkShape(len(dst), g.n, len(y), g.n); err != nil {
		return err
	}
	acc := 0.0
	for i := g.n - 1; i >= 0; i-- {
		acc += y[i]
		dst[i] = acc
	}
	return nil
}

// Differencer computes the first difference of a signal, with the first
// sample passed through unchanged. It is the exact inverse of Integrator and
// converts a block signal back to its innovation form.
type Differencer struct {
	n int
}

// NewDifferencer creates a differencer over signals of length n.
func NewDifferencer(n int) (*Differencer, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	return &Differencer{n: n}, nil
}

// InputLen returns the domain length.
func (d *Differencer) InputLen() int { return d.n }

// OutputLen returns the codomain length.
func (d *Differencer) OutputLen() int { return d.n }

// Apply writes the first difference of x into dst: dst[0] = x[0],
// dst[i] = x[i] - x[i-1].
func (d *Differencer) Apply(dst, x []float64) error {
	if err := checkShape(len(dst), d.n, len(x), d.n); err != nil {
		return err
	}
	prev := 0.0
	for i, v := range x {
		dst[i] = v - prev
		prev = v
	}
	return nil
}

// Adjoint writes the adjoint of the difference map into dst:
// dst[i] = y[i] - y[i+1], with the last sample passed through.
func (d *Differencer) Adjoint(dst, y []float64) error {
	if err := checkShape(len(dst), d.n, len(y), d.n); err != nil {
		return err
	}
	for i := 0; i < d.n-1; i++ {
		dst[i] = y[i] - y[i+1]
	}
	dst[d.n-1] = y[d.n-1]
	return nil
}
