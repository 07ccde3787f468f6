package blind

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

// DefaultSupportThreshold is the relative magnitude below which an
// innovation sample is not counted as a spike.
const DefaultSupportThreshold = 1e-2

// ErrSVDFailed signals that the amplitude-correction least-squares system
// could not be factorized.
var ErrSVDFailed = errors.New("blind: SVD factorization failed")

// AmplitudeCorrect re-estimates the spike amplitudes of a recovered
// innovation signal on its detected support. The l1 penalty biases
// amplitudes toward zero; this step removes that bias by solving the
// unpenalized least-squares problem restricted to the support,
//
//	min_a ‖A·a − observed‖²,  A[:,j] = conv(kernel, Σ e_{s_j}),
//
// via the SVD pseudo-inverse. The support is the set of samples with
// |x_i| > relThreshold·max|x|; a non-positive relThreshold uses
// DefaultSupportThreshold. The result is a copy of the innovation signal
// with corrected amplitudes; an empty support returns the copy untouched.
func AmplitudeCorrect(innovation, observed, kernel []float64, relThreshold float64) ([]float64, error) {
	n := len(observed)
	if n == 0 || len(innovation) != n {
		return nil, fmt.Errorf("%w: innovation %d, observed %d", ErrBadInput, len(innovation), n)
	}
	if relThreshold <= 0 {
		relThreshold = DefaultSupportThreshold
	}

	out := make([]float64, n)
	copy(out, innovation)

	peak := vecmath.MaxAbs(innovation)
	if peak == 0 {
		return out, nil
	}
	th := relThreshold * peak
	var support []int
	for i, v := range innovation {
		if math.Abs(v) > th {
			support = append(support, i)
		}
	}
	if len(support) == 0 {
		return out, nil
	}

	h, err := composeOperator(kernel, n)
	if err != nil {
		return nil, err
	}

	// Column j is the model response to a unit spike at support[j].
	a := mat.NewDense(n, len(support), nil)
	unit := make([]float64, n)
	col := make([]float64, n)
	for j, idx := range support {
		unit[idx] = 1
		if err := h.Apply(col, unit); err != nil {
			return nil, err
		}
		unit[idx] = 0
		a.SetCol(j, col)
	}

	amps, err := pinvSolve(a, observed)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = 0
	}
	for j, idx := range support {
		out[idx] = amps[j]
	}
	return out, nil
}

// pinvSolve computes pinv(A)·y through the thin SVD, zeroing singular values
// below the numerical rank threshold.
func pinvSolve(a *mat.Dense, y []float64) ([]float64, error) {
	rows, cols := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, ErrSVDFailed
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	maxS := 0.0
	for _, si := range s {
		if si > maxS {
			maxS = si
		}
	}
	eps := 1e-12 * math.Max(float64(rows), float64(cols)) * maxS

	// uᵀy, scaled by the inverted spectrum, mapped back through V.
	uty := make([]float64, len(s))
	for k := range s {
		if s[k] <= eps {
			continue
		}
		dot := 0.0
		for i := 0; i < rows; i++ {
			dot += u.At(i, k) * y[i]
		}
		uty[k] = dot / s[k]
	}

	out := make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for k := range s {
			sum += v.At(j, k) * uty[k]
		}
		out[j] = sum
	}
	return out, nil
}
