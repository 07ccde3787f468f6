package blind

import (
	"github.com/cwbudde/algo-deconv/gradient"
	"github.com/cwbudde/algo-deconv/linop"
	"github.com/cwbudde/algo-deconv/prox"
	"github.com/cwbudde/algo-deconv/solver"
)

// DeconvResult is the outcome of a single sparse recovery with a known
// kernel.
type DeconvResult struct {
	// Innovation is the recovered sparse spike signal.
	Innovation []float64
	// Block is its running sum.
	Block []float64
	// Predicted is the convolution of Block with the kernel.
	Predicted []float64
	// Cost is the solver's per-iteration trace of 0.5·residual + λ‖x‖₁.
	Cost []float64
}

// Deconvolve recovers a sparse innovation signal from an observed signal and
// a known kernel by solving
//
//	min_x 0.5·‖conv(kernel, Σx) − observed‖² + λ‖x‖₁
//
// with the accelerated forward-backward solver. A solver.ErrStepSize from a
// forced step size is returned alongside the partial result.
func Deconvolve(observed, kernel []float64, lambda float64, opts ...solver.Option) (*DeconvResult, error) {
	n := len(observed)
	if n == 0 {
		return nil, ErrBadInput
	}

	h, obj, err := composeObjective(kernel, observed)
	if err != nil {
		return nil, err
	}
	p, err := prox.NewL1Norm(lambda)
	if err != nil {
		return nil, err
	}

	res, err := solver.Nesterov(obj, p, make([]float64, n), opts...)
	if res == nil {
		return nil, err
	}
	out, derr := deconvResult(h, res.X, res.Cost)
	if derr != nil {
		return nil, derr
	}
	return out, err
}

// composeOperator builds the forward operator conv(kernel) ∘ integrator over
// signals of length n.
func composeOperator(kernel []float64, n int) (linop.Operator, error) {
	integ, err := linop.NewIntegrator(n)
	if err != nil {
		return nil, err
	}
	conv, err := linop.NewConvolver(kernel, n)
	if err != nil {
		return nil, err
	}
	return linop.Compose(conv, integ)
}

// composeObjective pairs the composed operator with the residual objective
// against observed.
func composeObjective(kernel, observed []float64) (linop.Operator, gradient.Objective, error) {
	h, err := composeOperator(kernel, len(observed))
	if err != nil {
		return nil, nil, err
	}
	obj, err := gradient.NewL2Residual(h, observed)
	if err != nil {
		return nil, nil, err
	}
	return h, obj, nil
}

// deconvResult derives block and predicted signals from an innovation
// iterate.
func deconvResult(h linop.Operator, innovation, trace []float64) (*DeconvResult, error) {
	block := prefixSum(innovation)
	predicted, err := linop.Apply(h, innovation)
	if err != nil {
		return nil, err
	}
	return &DeconvResult{
		Innovation: innovation,
		Block:      block,
		Predicted:  predicted,
		Cost:       trace,
	}, nil
}

func prefixSum(x []float64) []float64 {
	out := make([]float64, len(x))
	acc := 0.0
	for i, v := range x {
		acc += v
		out[i] = acc
	}
	return out
}
