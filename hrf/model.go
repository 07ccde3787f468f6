// Package hrf models the haemodynamic response function as a difference of
// two gamma densities with a single time-dilation parameter, and provides
// dictionary-based kernel estimation plus shape diagnostics (FWHM, time to
// peak).
package hrf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/algo-deconv/gradient"
	"github.com/cwbudde/algo-deconv/linop"
	"github.com/cwbudde/algo-deconv/prox"
	"github.com/cwbudde/algo-deconv/solver"
)

// Errors returned by the response model.
var (
	ErrDeltaRange = errors.New("hrf: delta out of valid range")
	ErrBadParams  = errors.New("hrf: invalid model parameters")
)

// Valid range of the time-dilation parameter, and the slightly tightened
// bounds handed to the numeric fitter so finite-difference probes stay
// inside the valid range.
const (
	DeltaMin = 0.2
	DeltaMax = 2.0

	FitDeltaMin = 0.21
	FitDeltaMax = 1.99
)

// DefaultDur is the default kernel duration in seconds.
const DefaultDur = 60.0

// Model generation constants (from the physiological literature).
const (
	modelDt       = 1e-3 // continuous-time grid step, seconds
	peakDelay     = 6.0
	undershoot    = 16.0
	peakDisp      = 1.0
	underDisp     = 1.0
	peakUndRatio  = 0.167
	normAmplitude = 10.0
)

// ScaledModel evaluates the difference-of-gammas response for time dilation
// delta, sampled every tr seconds over dur seconds. The kernel is
// l2-normalized and scaled so a unit block convolves to roughly unit
// amplitude. It returns the kernel and its time stamps.
func ScaledModel(delta, tr, dur float64) (kernel, t []float64, err error) {
	if delta < DeltaMin || delta > DeltaMax {
		return nil, nil, fmt.Errorf("%w: delta %v not in [%v, %v]", ErrDeltaRange, delta, DeltaMin, DeltaMax)
	}
	if tr <= 0 || dur <= 0 || tr < modelDt {
		return nil, nil, fmt.Errorf("%w: tr %v, dur %v", ErrBadParams, tr, dur)
	}

	peak := distuv.Gamma{Alpha: peakDelay / peakDisp, Beta: 1 / peakDisp}
	under := distuv.Gamma{Alpha: undershoot / underDisp, Beta: 1 / underDisp}

	// Round to the grid: plain truncation turns 0.3/0.001 into 299.
	n := int(math.Round(dur / modelDt))
	dense := make([]float64, n)
	norm := 0.0
	for i := range dense {
		ts := delta * float64(i) * modelDt
		v := peak.Prob(ts-modelDt) - peakUndRatio*under.Prob(ts-modelDt)
		dense[i] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		scale := normAmplitude / norm
		for i := range dense {
			dense[i] *= scale
		}
	}

	stride := int(math.Round(tr / modelDt))
	kernel = make([]float64, 0, n/stride+1)
	t = make([]float64, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		kernel = append(kernel, dense[i])
		t = append(t, float64(i)*modelDt)
	}
	return kernel, t, nil
}

// Len returns the kernel length ScaledModel produces for the given sampling
// interval and duration.
func Len(tr, dur float64) int {
	n := int(math.Round(dur / modelDt))
	stride := int(math.Round(tr / modelDt))
	return (n + stride - 1) / stride
}

// Dict builds a normalized response dictionary: columns are ScaledModel
// kernels for nAtoms dilations evenly spaced in [minDelta, maxDelta],
// each scaled to unit l2 norm. It also returns the dilation of each atom.
func Dict(tr, dur float64, nAtoms int, minDelta, maxDelta float64) (*mat.Dense, []float64, error) {
	if nAtoms < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 atoms, got %d", ErrBadParams, nAtoms)
	}
	if minDelta >= maxDelta {
		return nil, nil, fmt.Errorf("%w: empty delta range [%v, %v]", ErrBadParams, minDelta, maxDelta)
	}

	deltas := make([]float64, nAtoms)
	stepDelta := (maxDelta - minDelta) / float64(nAtoms-1)
	for i := range deltas {
		deltas[i] = minDelta + float64(i)*stepDelta
	}

	var dict *mat.Dense
	for j, delta := range deltas {
		atom, _, err := ScaledModel(delta, tr, dur)
		if err != nil {
			return nil, nil, err
		}
		norm := 0.0
		for _, v := range atom {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if dict == nil {
			dict = mat.NewDense(len(atom), nAtoms, nil)
		}
		for i, v := range atom {
			dict.Set(i, j, v/norm)
		}
	}
	return dict, deltas, nil
}

// SparseEncode estimates a response kernel as a sparse combination of
// dictionary atoms: it solves for coefficients minimizing
// 0.5‖conv(block, D·c) − observed‖² + λ‖c‖₁ and returns the assembled
// kernel, the coefficients, and the solver's cost trace.
func SparseEncode(block, observed []float64, dict *mat.Dense, lambda float64, opts ...solver.Option) (kernel, coef []float64, trace []float64, err error) {
	kernelLen, nAtoms := dict.Dims()

	conv, err := linop.NewConvolverShaped(block, kernelLen, len(observed))
	if err != nil {
		return nil, nil, nil, err
	}
	dictMap, err := linop.NewMatrixMap(dict)
	if err != nil {
		return nil, nil, nil, err
	}
	h, err := linop.Compose(conv, dictMap)
	if err != nil {
		return nil, nil, nil, err
	}

	obj, err := gradient.NewL2Residual(h, observed)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := prox.NewL1Norm(lambda)
	if err != nil {
		return nil, nil, nil, err
	}

	res, err := solver.ForwardBackward(obj, p, make([]float64, nAtoms), opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	kernel, err = linop.Apply(dictMap, res.X)
	if err != nil {
		return nil, nil, nil, err
	}
	return kernel, res.X, res.Cost, nil
}
