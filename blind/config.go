package blind

import (
	"github.com/cwbudde/algo-deconv/hrf"
)

// KernelModel describes a parametric response-kernel family for the
// alternating driver's kernel re-fit step. Func, Init and Bounds must all be
// set together; a partially filled model is a configuration error.
type KernelModel struct {
	// Func evaluates the kernel at a parameter vector.
	Func func(theta []float64) ([]float64, error)
	// Init is the starting parameter vector.
	Init []float64
	// Bounds holds box constraints per parameter, lower then upper.
	Bounds [][2]float64
	// Jac optionally evaluates the kernel Jacobian rows ∂k/∂θ_p. When nil
	// the fit gradient is approximated by central differences.
	Jac func(theta []float64) ([][]float64, error)
}

// Config controls the alternating blind-deconvolution driver.
type Config struct {
	// Lambda is the sparsity weight. Ignored in auto mode.
	Lambda float64
	// AutoLambda enables the discrepancy-principle λ search.
	AutoLambda bool
	// Alpha0 seeds the auto-λ search; λ = 1/(2α).
	Alpha0 float64
	// Mu is the auto-λ gradient step on α.
	Mu float64
	// Sigma overrides the noise level for the auto-λ target. When zero the
	// driver estimates it from the observed signal.
	Sigma float64

	// MaxIter bounds the outer alternation.
	MaxIter int
	// SolverIter bounds each sparse-recovery solve inside the alternation.
	SolverIter int
	// FinalIter bounds the refinement solve after the alternation stops.
	FinalIter int
	// SubIter and SubSolverIter bound the auto-λ sub-loop and the short
	// solves it runs per α update.
	SubIter       int
	SubSolverIter int

	// EarlyStopping stops the alternation once the joint cost plateaus
	// over Window values within Tol relative change. The auto-λ sub-loop
	// applies the same test to the α trace with SubWindow and SubTol.
	EarlyStopping bool
	Window        int
	Tol           float64
	SubWindow     int
	SubTol        float64

	// Model selects the kernel family. Nil means the scaled difference of
	// gammas with the time-dilation parameter as the single unknown.
	Model *KernelModel
	// KernelDur is the kernel duration in seconds for the default model.
	KernelDur float64

	// Observer receives per-iteration records. Nil disables reporting.
	Observer Observer

	// TruthInnovation and TruthKernel, when set, add normalized error
	// traces against the known ground truth to each record.
	TruthInnovation []float64
	TruthKernel     []float64
}

// DefaultConfig returns the driver defaults.
func DefaultConfig() Config {
	return Config{
		Lambda:        1.0,
		Alpha0:        1.0,
		Mu:            1e-3,
		MaxIter:       10,
		SolverIter:    2000,
		FinalIter:     9999,
		SubIter:       50,
		SubSolverIter: 50,
		EarlyStopping: true,
		Window:        4,
		Tol:           1e-6,
		SubWindow:     4,
		SubTol:        1e-4,
		KernelDur:     hrf.DefaultDur,
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithLambda fixes the sparsity weight and disables the auto search.
func WithLambda(lambda float64) Option {
	return func(c *Config) {
		c.Lambda = lambda
		c.AutoLambda = false
	}
}

// WithAutoLambda enables the discrepancy-principle λ search with the given
// α step size.
func WithAutoLambda(mu float64) Option {
	return func(c *Config) {
		c.AutoLambda = true
		if mu > 0 {
			c.Mu = mu
		}
	}
}

// WithSigma overrides the estimated noise level.
func WithSigma(sigma float64) Option {
	return func(c *Config) { c.Sigma = sigma }
}

// WithMaxIter bounds the outer alternation.
func WithMaxIter(n int) Option {
	return func(c *Config) { c.MaxIter = n }
}

// WithSolverIter bounds each inner sparse-recovery solve.
func WithSolverIter(n int) Option {
	return func(c *Config) { c.SolverIter = n }
}

// WithModel selects a custom kernel family.
func WithModel(m *KernelModel) Option {
	return func(c *Config) { c.Model = m }
}

// WithObserver installs a per-iteration observer.
func WithObserver(obs Observer) Option {
	return func(c *Config) { c.Observer = obs }
}

// WithTruth attaches ground-truth signals for error tracing.
func WithTruth(innovation, kernel []float64) Option {
	return func(c *Config) {
		c.TruthInnovation = innovation
		c.TruthKernel = kernel
	}
}

func (c *Config) apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}
