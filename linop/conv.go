package linop

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// fftThreshold is the kernel length above which the convolver switches from
// direct time-domain evaluation to a single-block FFT.
const fftThreshold = 64

// Convolver convolves its input with a fixed kernel, truncating (or
// zero-padding) the result to the output length. This is multiplication by
// the kernel's truncated Toeplitz matrix H with H[i,j] = kernel[i-j]. The
// adjoint correlates with the time-reversed kernel on the same support.
//
// Kernels shorter than fftThreshold are evaluated directly; longer kernels go
// through a zero-padded FFT of size nextPowerOf2(max(in, out) + len(kernel) - 1).
type Convolver struct {
	kernel []float64
	dimIn  int
	dimOut int

	// FFT state, nil when the direct path is used.
	plan      *algofft.Plan[complex128]
	kernelFFT []complex128
	revFFT    []complex128
	scratch   []complex128
}

// NewConvolver creates a convolution operator for the given kernel over
// signals of length n, producing outputs of the same length.
func NewConvolver(kernel []float64, n int) (*Convolver, error) {
	return NewConvolverShaped(kernel, n, n)
}

// NewConvolverShaped creates a convolution operator mapping inputs of length
// dimIn to the first dimOut samples of the linear convolution with the
// kernel. The rectangular form lets a short coefficient vector drive a
// full-length signal, as in dictionary-based kernel estimation.
func NewConvolverShaped(kernel []float64, dimIn, dimOut int) (*Convolver, error) {
	if dimIn <= 0 || dimOut <= 0 {
		return nil, ErrInvalidLength
	}
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	c := &Convolver{dimIn: dimIn, dimOut: dimOut}
	c.kernel = make([]float64, len(kernel))
	copy(c.kernel, kernel)

	if len(kernel) < fftThreshold {
		return c, nil
	}

	longest := dimIn
	if dimOut > longest {
		longest = dimOut
	}
	fftSize := nextPowerOf2(longest + len(kernel) - 1)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("linop: failed to create FFT plan: %w", err)
	}

	c.plan = plan
	c.scratch = make([]complex128, fftSize)

	c.kernelFFT = make([]complex128, fftSize)
	padded := make([]complex128, fftSize)
	for i, v := range c.kernel {
		padded[i] = complex(v, 0)
	}
	if err := plan.Forward(c.kernelFFT, padded); err != nil {
		return nil, fmt.Errorf("linop: failed to transform kernel: %w", err)
	}

	c.revFFT = make([]complex128, fftSize)
	for i := range padded {
		padded[i] = 0
	}
	for i, v := range c.kernel {
		padded[len(c.kernel)-1-i] = complex(v, 0)
	}
	if err := plan.Forward(c.revFFT, padded); err != nil {
		return nil, fmt.Errorf("linop: failed to transform reversed kernel: %w", err)
	}

	return c, nil
}

// Kernel returns a copy of the convolution kernel.
func (c *Convolver) Kernel() []float64 {
	out := make([]float64, len(c.kernel))
	copy(out, c.kernel)
	return out
}

// InputLen returns the domain length.
func (c *Convolver) InputLen() int { return c.dimIn }

// OutputLen returns the codomain length.
func (c *Convolver) OutputLen() int { return c.dimOut }

// Apply writes the linear convolution of x with the kernel into dst,
// truncated to the first OutputLen samples.
func (c *Convolver) Apply(dst, x []float64) error {
	if err := checkShape(len(dst), c.dimOut, len(x), c.dimIn); err != nil {
		return err
	}
	if c.plan != nil {
		return c.fftApply(dst, x, c.kernelFFT, 0)
	}

	for i := range dst {
		dst[i] = 0
	}
	temp := make([]float64, len(c.kernel))
	for i := 0; i < c.dimIn && i < c.dimOut; i++ {
		if x[i] == 0 {
			continue
		}
		m := len(c.kernel)
		if c.dimOut-i < m {
			m = c.dimOut - i
		}
		vecmath.ScaleBlock(temp[:m], c.kernel[:m], x[i])
		vecmath.AddBlockInPlace(dst[i:i+m], temp[:m])
	}
	return nil
}

// Adjoint writes the correlation of y with the kernel into dst, restricted
// to the truncated support: dst[i] = sum_j kernel[j] * y[i+j].
func (c *Convolver) Adjoint(dst, y []float64) error {
	if err := checkShape(len(dst), c.dimIn, len(y), c.dimOut); err != nil {
		return err
	}
	if c.plan != nil {
		return c.fftApply(dst, y, c.revFFT, len(c.kernel)-1)
	}

	m := len(c.kernel)
	for i := 0; i < c.dimIn; i++ {
		span := m
		if c.dimOut-i < span {
			span = c.dimOut - i
		}
		if span <= 0 {
			dst[i] = 0
			continue
		}
		dst[i] = vecmath.DotProduct(c.kernel[:span], y[i:i+span])
	}
	return nil
}

// fftApply multiplies the transform of in with the precomputed kernel
// spectrum and writes len(dst) samples of the inverse transform starting at
// offset.
func (c *Convolver) fftApply(dst, in []float64, kfft []complex128, offset int) error {
	for i := range c.scratch {
		c.scratch[i] = 0
	}
	for i, v := range in {
		c.scratch[i] = complex(v, 0)
	}
	if err := c.plan.Forward(c.scratch, c.scratch); err != nil {
		return fmt.Errorf("linop: forward FFT failed: %w", err)
	}
	for i := range c.scratch {
		c.scratch[i] *= kfft[i]
	}
	if err := c.plan.Inverse(c.scratch, c.scratch); err != nil {
		return fmt.Errorf("linop: inverse FFT failed: %w", err)
	}
	for i := range dst {
		dst[i] = real(c.scratch[offset+i])
	}
	return nil
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
