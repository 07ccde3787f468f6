package blind

import (
	"fmt"
	"math"

	"github.com/curioloop/optimizer/lbfgsb"
	"github.com/curioloop/optimizer/numdiff"

	"github.com/cwbudde/algo-deconv/hrf"
)

// Bounds on the kernel-fit sub-problem. The correction number follows the
// L-BFGS-B default for small dense problems; the fit dimension is 1-3.
const (
	fitMaxIter     = 200
	fitCorrections = 5
	fitProjGradTol = 1e-10
	fitEpsFactor   = 1e7
)

// defaultModel wraps the scaled difference-of-gammas response with the time
// dilation as the single fitted parameter.
func defaultModel(tr, dur float64) *KernelModel {
	return &KernelModel{
		Func: func(theta []float64) ([]float64, error) {
			k, _, err := hrf.ScaledModel(theta[0], tr, dur)
			return k, err
		},
		Init:   []float64{1.0},
		Bounds: [][2]float64{{hrf.FitDeltaMin, hrf.FitDeltaMax}},
	}
}

// validateModel enforces the all-or-nothing kernel model contract and fills
// in the default model when none is given.
func validateModel(m *KernelModel, tr, dur float64) (*KernelModel, error) {
	if m == nil {
		return defaultModel(tr, dur), nil
	}
	if m.Func == nil || len(m.Init) == 0 || len(m.Bounds) == 0 {
		return nil, fmt.Errorf("%w: func, init and bounds must all be set", ErrConfiguration)
	}
	if len(m.Bounds) != len(m.Init) {
		return nil, fmt.Errorf("%w: %d bounds for %d parameters", ErrConfiguration, len(m.Bounds), len(m.Init))
	}
	for i, b := range m.Bounds {
		if !(b[0] < b[1]) {
			return nil, fmt.Errorf("%w: empty bound interval for parameter %d", ErrConfiguration, i)
		}
		if m.Init[i] < b[0] || m.Init[i] > b[1] {
			return nil, fmt.Errorf("%w: initial parameter %d out of bounds", ErrConfiguration, i)
		}
	}
	return m, nil
}

// fitCost is the black-box kernel-fit objective: the squared residual of
// convolving the fixed block signal with the model kernel at θ.
type fitCost struct {
	model    *KernelModel
	block    []float64
	observed []float64
	evalErr  error
}

// value evaluates the fit cost at theta. A model failure is held as a sticky
// error and reported after the optimizer returns.
func (c *fitCost) value(theta []float64) float64 {
	kernel, err := c.model.Func(theta)
	if err != nil {
		if c.evalErr == nil {
			c.evalErr = err
		}
		return math.MaxFloat64
	}
	n := len(c.observed)
	cost := 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		jMax := len(kernel)
		if i+1 < jMax {
			jMax = i + 1
		}
		for j := 0; j < jMax; j++ {
			pred += kernel[j] * c.block[i-j]
		}
		d := pred - c.observed[i]
		cost += d * d
	}
	return cost
}

// gradient fills g with the cost gradient at theta: the analytic chain rule
// through the kernel Jacobian when the model supplies one, a bounded central
// difference otherwise.
func (c *fitCost) gradient(theta, g []float64) error {
	if c.model.Jac != nil {
		return c.analyticGradient(theta, g)
	}

	bounds := make([]numdiff.Bound, len(c.model.Bounds))
	for i, b := range c.model.Bounds {
		bounds[i] = numdiff.Bound{b[0], b[1]}
	}
	spec := &numdiff.ApproxSpec{
		N:      len(theta),
		M:      1,
		Method: numdiff.Central,
		Bounds: bounds,
		Object: func(x, y []float64) { y[0] = c.value(x) },
	}
	return spec.Diff(theta, g)
}

// analyticGradient applies ∂cost/∂θp = 2·Σ_i res_i · conv(block, ∂k/∂θp)_i.
func (c *fitCost) analyticGradient(theta, g []float64) error {
	kernel, err := c.model.Func(theta)
	if err != nil {
		return err
	}
	rows, err := c.model.Jac(theta)
	if err != nil {
		return err
	}
	n := len(c.observed)
	res := make([]float64, n)
	for i := 0; i < n; i++ {
		pred := 0.0
		jMax := len(kernel)
		if i+1 < jMax {
			jMax = i + 1
		}
		for j := 0; j < jMax; j++ {
			pred += kernel[j] * c.block[i-j]
		}
		res[i] = pred - c.observed[i]
	}
	for p, row := range rows {
		sum := 0.0
		for i := 0; i < n; i++ {
			dPred := 0.0
			jMax := len(row)
			if i+1 < jMax {
				jMax = i + 1
			}
			for j := 0; j < jMax; j++ {
				dPred += row[j] * c.block[i-j]
			}
			sum += res[i] * dPred
		}
		g[p] = 2 * sum
	}
	return nil
}

// fitKernel re-estimates the kernel parameters from the current block signal
// by bounded L-BFGS-B over the fit cost. Budget exhaustion without formal
// convergence is a normal outcome; the best point found is returned.
func fitKernel(model *KernelModel, theta0, block, observed []float64) (theta, kernel []float64, err error) {
	cost := &fitCost{model: model, block: block, observed: observed}

	bounds := make([]lbfgsb.Bound, len(model.Bounds))
	for i, b := range model.Bounds {
		bounds[i] = lbfgsb.Bound{Lower: b[0], Upper: b[1]}
	}

	var gradErr error
	problem := lbfgsb.Problem{
		N: len(theta0),
		M: fitCorrections,
		Eval: func(x, g []float64) float64 {
			f := cost.value(x)
			if err := cost.gradient(x, g); err != nil && gradErr == nil {
				gradErr = err
			}
			return f
		},
		Stop: lbfgsb.Termination{
			MaxIterations:     fitMaxIter,
			EpsAccuracyFactor: fitEpsFactor,
			ProjGradTolerance: fitProjGradTol,
		},
		Bounds: bounds,
	}

	opt, err := problem.New(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("blind: kernel fit setup failed: %w", err)
	}
	result := opt.Fit(theta0, opt.Init())
	if cost.evalErr != nil {
		return nil, nil, fmt.Errorf("blind: kernel model evaluation failed: %w", cost.evalErr)
	}
	if gradErr != nil {
		return nil, nil, fmt.Errorf("blind: kernel fit gradient failed: %w", gradErr)
	}

	theta = result.X
	kernel, err = model.Func(theta)
	if err != nil {
		return nil, nil, fmt.Errorf("blind: kernel model evaluation failed: %w", err)
	}
	return theta, kernel, nil
}
