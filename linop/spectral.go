package linop

import (
	"math"
	"math/rand"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Defaults for SpectralRadius.
const (
	DefaultSpectralIter = 30
	DefaultSpectralTol  = 1e-6
)

// SpectralRadius estimates the spectral radius of AᵀA by power iteration,
// starting from a random vector drawn from rng. It returns the best estimate
// and whether the iteration converged within the budget; a non-converged
// estimate is still usable as a step-size bound.
func SpectralRadius(op Operator, nIter int, tol float64, rng *rand.Rand) (float64, bool, error) {
	n := op.InputLen()
	xOld := make([]float64, n)
	for i := range xOld {
		xOld[i] = rng.NormFloat64()
	}

	xNew := make([]float64, n)
	fwd := make([]float64, op.OutputLen())

	converged := false
	for i := 0; i < nIter; i++ {
		if err := op.Apply(fwd, xOld); err != nil {
			return 0, false, err
		}
		if err := op.Adjoint(xNew, fwd); err != nil {
			return 0, false, err
		}
		normOld := norm2(xOld)
		vecmath.ScaleBlockInPlace(xNew, 1/normOld)
		if math.Abs(norm2(xNew)-normOld) < tol {
			converged = true
			break
		}
		copy(xOld, xNew)
	}
	return norm2(xNew), converged, nil
}

// EstimateSpectralRadius runs SpectralRadius with default budget and
// tolerance and a fixed seed, discarding the convergence flag.
func EstimateSpectralRadius(op Operator) (float64, error) {
	r, _, err := SpectralRadius(op, DefaultSpectralIter, DefaultSpectralTol, rand.New(rand.NewSource(1)))
	return r, err
}

func norm2(x []float64) float64 {
	return math.Sqrt(vecmath.DotProduct(x, x))
}
