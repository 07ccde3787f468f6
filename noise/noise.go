// Package noise provides robust noise-level estimation and small signal
// utilities shared by the deconvolution driver: a median-absolute-deviation
// estimator over Daubechies wavelet detail coefficients, max-abs
// normalization helpers for display, and a cost tracker callback.
package noise

import (
	"math"
	"sort"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// GaussianConsistency is the normal-distribution consistency constant used
// to turn a median absolute deviation into a standard-deviation estimate.
const GaussianConsistency = 0.6744

// db3 orthonormal scaling filter (Daubechies-3, 6 taps). The published
// coefficients satisfy the vanishing-moment conditions only to about 3e-12,
// so the derived high-pass sum is small but not exactly zero.
var db3Lo = []float64{
	0.3326705529509569,
	0.8068915093133388,
	0.4598775021193313,
	-0.13501102001039084,
	-0.08544127388224149,
	0.035226291882100656,
}

// db3Hi is the quadrature-mirror high-pass filter: g[k] = (-1)^k h[L-1-k].
var db3Hi = func() []float64 {
	l := len(db3Lo)
	g := make([]float64, l)
	for k := 0; k < l; k++ {
		g[k] = db3Lo[l-1-k]
		if k%2 == 1 {
			g[k] = -g[k]
		}
	}
	return g
}()

// MAD returns the median absolute deviation of x around its median, scaled
// by 1/c. With the default consistency constant it estimates the standard
// deviation of Gaussian data.
func MAD(x []float64, c float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - m)
	}
	return median(dev) / c
}

// DaubNoiseEst estimates the noise standard deviation of x as the MAD of the
// first-level Daubechies-3 detail coefficients. Signals too short for one
// decomposition level fall back to the MAD of the raw samples.
func DaubNoiseEst(x []float64) float64 {
	if len(x) < len(db3Hi) {
		return MAD(x, GaussianConsistency)
	}
	return MAD(detailCoeffs(x), GaussianConsistency)
}

// detailCoeffs runs one analysis level: periodic extension, high-pass
// filtering, and dyadic downsampling.
func detailCoeffs(x []float64) []float64 {
	ext := len(db3Hi) - 1
	extended := periodicExtend(x, ext)

	full := len(extended) - len(db3Hi) + 1
	out := make([]float64, 0, (full+1)/2)
	for i := 1; i < full; i += 2 {
		s := 0.0
		for j, g := range db3Hi {
			s += extended[i+j] * g
		}
		out = append(out, s)
	}
	return out
}

func periodicExtend(x []float64, ext int) []float64 {
	n := len(x)
	extended := make([]float64, n+2*ext)
	for i := range extended {
		idx := (i - ext) % n
		if idx < 0 {
			idx += n
		}
		extended[i] = x[idx]
	}
	return extended
}

func median(x []float64) float64 {
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	n := len(cp)
	if n%2 == 1 {
		return cp[n/2]
	}
	return 0.5 * (cp[n/2-1] + cp[n/2])
}

// infNormEps keeps the normalization total when the array is all zero.
const infNormEps = 1e-12

// InfNorm returns x scaled by its own maximum absolute value. For display
// and comparison only; never used inside the optimization itself.
func InfNorm(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	scale := 1 / (vecmath.MaxAbs(x) + infNormEps)
	vecmath.ScaleBlock(out, x, scale)
	return out
}

// InfNormAll normalizes each array of a list independently.
func InfNormAll(arrays ...[]float64) [][]float64 {
	out := make([][]float64, len(arrays))
	for i, a := range arrays {
		out[i] = InfNorm(a)
	}
	return out
}

// InfNormRows normalizes each row of a 2-D array independently.
func InfNormRows(rows [][]float64) [][]float64 {
	return InfNormAll(rows...)
}

// Tracker accumulates one scalar cost value per call. It is handed to
// iterative fitters as a progress callback.
type Tracker struct {
	f     func(x []float64) float64
	Costs []float64
}

// NewTracker creates a tracker evaluating f at every tracked point.
func NewTracker(f func(x []float64) float64) *Tracker {
	return &Tracker{f: f}
}

// Track evaluates the tracked function at x and appends the value.
func (t *Tracker) Track(x []float64) {
	t.Costs = append(t.Costs, t.f(x))
}
