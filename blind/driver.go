package blind

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-deconv/gradient"
	"github.com/cwbudde/algo-deconv/linop"
	"github.com/cwbudde/algo-deconv/noise"
	"github.com/cwbudde/algo-deconv/prox"
	"github.com/cwbudde/algo-deconv/solver"
)

// alphaFloor keeps λ = 1/(2α) finite when an auto-λ update overshoots
// through zero; the next residual mismatch pulls α back up.
const alphaFloor = 1e-12

// Result is the outcome of a blind-deconvolution run. On
// ErrNumericalDivergence it holds the last valid state and partial traces.
type Result struct {
	// Innovation, Block and Predicted are the recovered sparse signal, its
	// running sum, and the convolution of Block with the final kernel.
	Innovation []float64
	Block      []float64
	Predicted  []float64
	// Kernel is the final response kernel, Params its parameter vector.
	Kernel []float64
	Params []float64
	// Lambda and Alpha are the final regularization state. Alpha is zero in
	// fixed-λ mode.
	Lambda float64
	Alpha  float64
	// Cost is the joint objective per outer iteration; Residual and Penalty
	// are its two terms separately.
	Cost     []float64
	Residual []float64
	Penalty  []float64
	// ErrInnovation and ErrKernel trace normalized distances to the ground
	// truth per outer iteration. Nil when no truth was supplied.
	ErrInnovation []float64
	ErrKernel     []float64
	// Records holds every observer record, inner and outer.
	Records []IterationRecord
	// Iterations is the number of completed outer iterations.
	Iterations int
	// EarlyStopped reports whether the joint-cost plateau test ended the
	// alternation before the budget.
	EarlyStopped bool
}

// BlindDeconvolve jointly estimates a sparse innovation signal and a
// response kernel from an observed signal sampled every tr seconds. It
// alternates sparse recovery (proximal gradient) with a bounded
// quasi-Newton kernel re-fit until the joint cost plateaus or the iteration
// budget runs out; exhausting the budget is a normal outcome, not an error.
func BlindDeconvolve(observed []float64, tr float64, opts ...Option) (*Result, error) {
	cfg := DefaultConfig()
	cfg.apply(opts)
	return blindDeconvolve(observed, tr, cfg)
}

func blindDeconvolve(observed []float64, tr float64, cfg Config) (*Result, error) {
	n := len(observed)
	if n == 0 {
		return nil, ErrBadInput
	}
	model, err := validateModel(cfg.Model, tr, cfg.KernelDur)
	if err != nil {
		return nil, err
	}
	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	st := &driverState{
		cfg:      cfg,
		observed: observed,
		model:    model,
		observer: observer,
		res: &Result{
			Innovation: make([]float64, n),
			Lambda:     cfg.Lambda,
			Params:     append([]float64(nil), model.Init...),
		},
	}

	st.res.Kernel, err = model.Func(st.res.Params)
	if err != nil {
		return nil, fmt.Errorf("blind: kernel model evaluation failed: %w", err)
	}
	if !allFinite(st.res.Kernel) {
		return nil, fmt.Errorf("%w: initial kernel", ErrNumericalDivergence)
	}

	if cfg.AutoLambda {
		st.res.Alpha = cfg.Alpha0
		if st.res.Alpha <= 0 {
			return nil, fmt.Errorf("%w: alpha0 must be > 0 in auto mode", ErrConfiguration)
		}
		st.sigma = cfg.Sigma
		if st.sigma <= 0 {
			st.sigma = noise.DaubNoiseEst(observed)
		}
		st.res.Lambda = 1 / (2 * st.res.Alpha)
	}

	if err := st.alternate(); err != nil {
		return st.res, err
	}
	if err := st.refine(); err != nil {
		return st.res, err
	}
	return st.res, nil
}

// driverState carries the alternation's working state. res always holds the
// last valid state, so a divergence abort can surface it as-is.
type driverState struct {
	cfg      Config
	observed []float64
	model    *KernelModel
	observer Observer
	sigma    float64

	res *Result
}

// alternate runs the outer loop: sparse recovery with the current kernel,
// then a kernel re-fit against the new block signal.
func (st *driverState) alternate() error {
	for k := 0; k < st.cfg.MaxIter; k++ {
		_, obj, err := composeObjective(st.res.Kernel, st.observed)
		if err != nil {
			return err
		}

		// State A: sparse recovery, warm-started from the last iterate.
		if st.cfg.AutoLambda {
			if err := st.autoLambdaSweep(obj, k); err != nil {
				return err
			}
		} else {
			x, err := st.solveSparse(obj, st.res.Innovation, st.cfg.SolverIter)
			if err != nil {
				return err
			}
			st.res.Innovation = x
		}
		if !allFinite(st.res.Innovation) {
			return fmt.Errorf("%w: iterate at outer iteration %d", ErrNumericalDivergence, k)
		}
		st.res.Block = prefixSum(st.res.Innovation)

		// State B: kernel re-fit against the new block signal.
		theta, kernel, err := fitKernel(st.model, st.res.Params, st.res.Block, st.observed)
		if err != nil {
			return err
		}
		if !allFinite(theta) || !allFinite(kernel) {
			return fmt.Errorf("%w: kernel at outer iteration %d", ErrNumericalDivergence, k)
		}
		st.res.Params, st.res.Kernel = theta, kernel

		if err := st.recordOuter(k); err != nil {
			return err
		}
		st.res.Iterations = k + 1

		if st.cfg.EarlyStopping && solver.Plateau(st.res.Cost, st.cfg.Window, st.cfg.Tol) {
			st.res.EarlyStopped = true
			return nil
		}
	}
	return nil
}

// autoLambdaSweep runs the discrepancy-principle sub-loop: short solves
// alternating with the fixed-step α update
//
//	α ← α + μ·(residual − N·σ²), λ = 1/(2α)
//
// until the α trace plateaus or the sub-loop budget runs out.
func (st *driverState) autoLambdaSweep(obj gradient.Objective, outer int) error {
	target := float64(len(st.observed)) * st.sigma * st.sigma
	alphaTrace := make([]float64, 0, st.cfg.SubIter)

	for j := 0; j < st.cfg.SubIter; j++ {
		st.res.Lambda = 1 / (2 * st.res.Alpha)
		if !isFinite(st.res.Lambda) {
			return fmt.Errorf("%w: lambda in auto sub-loop %d/%d", ErrNumericalDivergence, outer, j)
		}

		x, err := st.solveSparse(obj, st.res.Innovation, st.cfg.SubSolverIter)
		if err != nil {
			return err
		}
		st.res.Innovation = x

		r, err := obj.Residual(st.res.Innovation)
		if err != nil {
			return err
		}
		st.res.Alpha += st.cfg.Mu * (r - target)
		if !isFinite(st.res.Alpha) {
			return fmt.Errorf("%w: alpha in auto sub-loop %d/%d", ErrNumericalDivergence, outer, j)
		}
		if st.res.Alpha < alphaFloor {
			st.res.Alpha = alphaFloor
		}
		alphaTrace = append(alphaTrace, st.res.Alpha)

		penalty := st.res.Lambda * prox.SumAbs(st.res.Innovation)
		st.emit(IterationRecord{
			Iteration: j,
			Inner:     true,
			Lambda:    st.res.Lambda,
			Alpha:     st.res.Alpha,
			Cost:      0.5*r + penalty,
			Residual:  r,
			Penalty:   penalty,
		})

		if st.cfg.EarlyStopping && solver.Plateau(alphaTrace, st.cfg.SubWindow, st.cfg.SubTol) {
			break
		}
	}
	st.res.Lambda = 1 / (2 * st.res.Alpha)
	return nil
}

// solveSparse runs one accelerated forward-backward solve at the current λ.
func (st *driverState) solveSparse(obj gradient.Objective, x0 []float64, maxIter int) ([]float64, error) {
	p, err := prox.NewL1Norm(st.res.Lambda)
	if err != nil {
		return nil, err
	}
	res, err := solver.Nesterov(obj, p, x0,
		solver.WithMaxIter(maxIter),
		solver.WithEarlyStopping(st.cfg.EarlyStopping),
		solver.WithWindow(st.cfg.Window),
		solver.WithTol(st.cfg.Tol),
	)
	if err != nil {
		return nil, err
	}
	return res.X, nil
}

// recordOuter computes the joint cost with the freshly fitted kernel and
// appends all per-iteration traces.
func (st *driverState) recordOuter(k int) error {
	h, err := composeOperator(st.res.Kernel, len(st.observed))
	if err != nil {
		return err
	}
	predicted, err := linop.Apply(h, st.res.Innovation)
	if err != nil {
		return err
	}
	st.res.Predicted = predicted

	residual := 0.0
	for i, v := range predicted {
		d := v - st.observed[i]
		residual += d * d
	}
	penalty := st.res.Lambda * prox.SumAbs(st.res.Innovation)
	cost := 0.5*residual + penalty
	if !isFinite(cost) {
		return fmt.Errorf("%w: joint cost at outer iteration %d", ErrNumericalDivergence, k)
	}

	st.res.Cost = append(st.res.Cost, cost)
	st.res.Residual = append(st.res.Residual, residual)
	st.res.Penalty = append(st.res.Penalty, penalty)

	rec := IterationRecord{
		Iteration:     k,
		Lambda:        st.res.Lambda,
		Alpha:         st.res.Alpha,
		Cost:          cost,
		Residual:      residual,
		Penalty:       penalty,
		ErrInnovation: -1,
		ErrKernel:     -1,
	}
	if st.cfg.TruthInnovation != nil {
		rec.ErrInnovation = normalizedErr(st.res.Innovation, st.cfg.TruthInnovation)
		st.res.ErrInnovation = append(st.res.ErrInnovation, rec.ErrInnovation)
	}
	if st.cfg.TruthKernel != nil {
		rec.ErrKernel = normalizedErr(st.res.Kernel, st.cfg.TruthKernel)
		st.res.ErrKernel = append(st.res.ErrKernel, rec.ErrKernel)
	}
	st.emit(rec)
	return nil
}

// refine runs a final high-budget solve with the converged kernel and λ to
// remove the bias left by early termination of the alternation's short
// solves.
func (st *driverState) refine() error {
	h, obj, err := composeObjective(st.res.Kernel, st.observed)
	if err != nil {
		return err
	}
	x, err := st.solveSparse(obj, st.res.Innovation, st.cfg.FinalIter)
	if err != nil {
		return err
	}
	if !allFinite(x) {
		return fmt.Errorf("%w: refinement iterate", ErrNumericalDivergence)
	}
	st.res.Innovation = x
	st.res.Block = prefixSum(x)
	st.res.Predicted, err = linop.Apply(h, x)
	return err
}

func (st *driverState) emit(rec IterationRecord) {
	st.res.Records = append(st.res.Records, rec)
	st.observer.OnIteration(rec)
}

// normalizedErr is the l2 distance between the max-abs-normalized forms of
// got and want, relative to the normalized truth. Returns -1 when the
// shapes do not admit a comparison.
func normalizedErr(got, want []float64) float64 {
	if len(want) == 0 || len(got) != len(want) {
		return -1
	}
	a := noise.InfNorm(got)
	b := noise.InfNorm(want)
	num, den := 0.0, 0.0
	for i := range a {
		d := a[i] - b[i]
		num += d * d
		den += b[i] * b[i]
	}
	if den == 0 {
		return -1
	}
	return math.Sqrt(num / den)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
