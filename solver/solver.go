package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-deconv/gradient"
	"github.com/cwbudde/algo-deconv/prox"
)

// Errors returned by the solvers.
var (
	// ErrStepSize signals a persistent cost increase under the fixed-step
	// rule. The recommended caller action is to halve the step and retry;
	// the solver does not retry on its own. The returned result still holds
	// the last iterate and the partial cost trace.
	ErrStepSize = errors.New("solver: persistent cost increase, step size too large")

	ErrShapeMismatch = errors.New("solver: initial point length does not match objective")
)

// Result is the outcome of a solver run.
type Result struct {
	// X is the final iterate.
	X []float64
	// Cost is the per-iteration trace of 0.5·residual + λ‖x‖₁.
	Cost []float64
	// Iterations is the number of iterations performed.
	Iterations int
	// EarlyStopped reports whether the plateau test ended the run before
	// the budget.
	EarlyStopped bool
}

// ForwardBackward runs the fixed-step proximal-gradient iteration (ISTA, or
// FISTA when momentum is enabled). The step defaults to the inverse of the
// objective's Lipschitz bound. With momentum off the cost is non-increasing
// at a valid step, so a run of MaxCostGrowth consecutive increases fails
// with ErrStepSize alongside the partial result. The accelerated iteration
// ripples by nature and is exempt from the guard.
func ForwardBackward(obj gradient.Objective, p *prox.L1Norm, x0 []float64, opts ...Option) (*Result, error) {
	cfg := ApplyOptions(opts...)

	st, err := newState(obj, p, x0, cfg)
	if err != nil {
		return nil, err
	}

	step := cfg.Step
	if step <= 0 {
		if l := obj.Lipschitz(); l > 0 {
			step = 1 / l
		} else {
			step = 1
		}
	}

	growth := 0
	prev := math.Inf(1)
	for k := 0; k < cfg.MaxIter; k++ {
		if err := st.iterate(step); err != nil {
			return st.result(k), err
		}

		cost, err := st.recordCost()
		if err != nil {
			return st.result(k), err
		}

		if !cfg.Momentum {
			if cost > prev {
				growth++
				if growth > cfg.MaxCostGrowth {
					return st.result(k + 1), fmt.Errorf("%w: %d consecutive increases", ErrStepSize, growth)
				}
			} else {
				growth = 0
			}
			prev = cost
		}

		if cfg.EarlyStopping && Plateau(st.trace, cfg.Window, cfg.Tol) {
			st.stopped = true
			return st.result(k + 1), nil
		}
	}
	return st.result(cfg.MaxIter), nil
}

// Nesterov runs the accelerated forward-backward iteration with a
// backtracking-free adaptive step: the first step comes from the Lipschitz
// bound, later steps from a local secant (Barzilai-Borwein) estimate over
// successive extrapolation points. The secant estimate tracks the curvature
// of the active subspace, which on badly conditioned operators is far
// flatter than the global Lipschitz bound, so it is floored at the
// Lipschitz-derived step but not capped. Whenever the cost rises the
// momentum sequence restarts, which tames the overshoot the large steps
// would otherwise feed.
func Nesterov(obj gradient.Objective, p *prox.L1Norm, x0 []float64, opts ...Option) (*Result, error) {
	cfg := ApplyOptions(opts...)
	cfg.Momentum = true

	st, err := newState(obj, p, x0, cfg)
	if err != nil {
		return nil, err
	}

	step := cfg.Step
	if step <= 0 {
		if l := obj.Lipschitz(); l > 0 {
			step = 1 / l
		} else {
			step = 1
		}
	}
	// Floor for the secant estimate. For a linear forward operator the
	// secant quotient never falls below the inverse Lipschitz bound, so
	// the floor only catches degenerate difference pairs.
	stepMin := step

	n := obj.Dim()
	prevV := make([]float64, n)
	prevG := make([]float64, n)
	havePrev := false

	for k := 0; k < cfg.MaxIter; k++ {
		if err := obj.Gradient(st.grad, st.v); err != nil {
			return st.result(k), err
		}

		if havePrev {
			if s, ok := secantStep(st.v, prevV, st.grad, prevG); ok {
				step = math.Max(s, stepMin)
			}
		}
		copy(prevV, st.v)
		copy(prevG, st.grad)
		havePrev = true

		if err := st.proximalStep(step); err != nil {
			return st.result(k), err
		}
		st.extrapolate()

		cost, err := st.recordCost()
		if err != nil {
			return st.result(k), err
		}
		if m := len(st.trace); m > 1 && cost > st.trace[m-2] {
			st.restart()
		}

		if cfg.EarlyStopping && Plateau(st.trace, cfg.Window, cfg.Tol) {
			st.stopped = true
			return st.result(k + 1), nil
		}
	}
	return st.result(cfg.MaxIter), nil
}

// secantStep returns the Barzilai-Borwein step <Δx,Δx>/<Δx,Δg> for the last
// two evaluation points, and whether the estimate is usable.
func secantStep(x, xOld, g, gOld []float64) (float64, bool) {
	var num, den float64
	for i := range x {
		dx := x[i] - xOld[i]
		dg := g[i] - gOld[i]
		num += dx * dx
		den += dx * dg
	}
	if den <= 0 || num == 0 {
		return 0, false
	}
	s := num / den
	if math.IsInf(s, 0) || math.IsNaN(s) {
		return 0, false
	}
	return s, true
}

// state holds the shared iteration buffers of both solvers.
type state struct {
	obj gradient.Objective
	prx *prox.L1Norm

	x    []float64 // current iterate
	xOld []float64 // previous iterate, for extrapolation
	v    []float64 // extrapolation (gradient evaluation) point
	grad []float64
	tmp  []float64
	t    float64

	momentum bool
	trace    []float64
	stopped  bool
}

func newState(obj gradient.Objective, p *prox.L1Norm, x0 []float64, cfg Config) (*state, error) {
	n := obj.Dim()
	if len(x0) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(x0), n)
	}

	prx := p
	if cfg.Weights != nil {
		if len(cfg.Weights) != n {
			return nil, fmt.Errorf("%w: weights %d, want %d", ErrShapeMismatch, len(cfg.Weights), n)
		}
		wp, err := prox.NewWeightedL1Norm(p.Lambda(), cfg.Weights)
		if err != nil {
			return nil, err
		}
		prx = wp
	}

	st := &state{
		obj:      obj,
		prx:      prx,
		x:        make([]float64, n),
		xOld:     make([]float64, n),
		v:        make([]float64, n),
		grad:     make([]float64, n),
		tmp:      make([]float64, n),
		t:        1,
		momentum: cfg.Momentum,
	}
	copy(st.x, x0)
	copy(st.xOld, x0)
	copy(st.v, x0)
	return st, nil
}

// iterate performs one gradient evaluation at the extrapolation point
// followed by a proximal step and the momentum update.
func (s *state) iterate(step float64) error {
	if err := s.obj.Gradient(s.grad, s.v); err != nil {
		return err
	}
	if err := s.proximalStep(step); err != nil {
		return err
	}
	s.extrapolate()
	return nil
}

// proximalStep computes x = prox(v − step·grad, step), keeping the previous
// iterate in xOld.
func (s *state) proximalStep(step float64) error {
	s.xOld, s.x = s.x, s.xOld
	for i := range s.tmp {
		s.tmp[i] = s.v[i] - step*s.grad[i]
	}
	return s.prx.Apply(s.x, s.tmp, step)
}

// extrapolate updates the evaluation point with the Nesterov momentum
// sequence t_{k+1} = (1 + sqrt(1 + 4t_k²))/2.
func (s *state) extrapolate() {
	if !s.momentum {
		copy(s.v, s.x)
		return
	}
	tNext := 0.5 * (1 + math.Sqrt(1+4*s.t*s.t))
	beta := (s.t - 1) / tNext
	for i := range s.v {
		s.v[i] = s.x[i] + beta*(s.x[i]-s.xOld[i])
	}
	s.t = tNext
}

// restart resets the momentum sequence and pulls the evaluation point back
// to the current iterate, so the next step is plain spectral proximal
// descent from x.
func (s *state) restart() {
	s.t = 1
	copy(s.v, s.x)
}

// recordCost appends 0.5·residual(x) + penalty(x) to the trace.
func (s *state) recordCost() (float64, error) {
	r, err := s.obj.Residual(s.x)
	if err != nil {
		return 0, err
	}
	cost := 0.5*r + s.prx.Penalty(s.x)
	s.trace = append(s.trace, cost)
	return cost, nil
}

func (s *state) result(iters int) *Result {
	x := make([]float64, len(s.x))
	copy(x, s.x)
	return &Result{
		X:            x,
		Cost:         s.trace,
		Iterations:   iters,
		EarlyStopped: s.stopped,
	}
}
