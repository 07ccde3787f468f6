package solver

// Default solver settings.
const (
	DefaultMaxIter       = 1000
	DefaultWindow        = 8
	DefaultTol           = 1e-8
	DefaultMaxCostGrowth = 5
)

// Config holds the settings shared by both solvers.
type Config struct {
	// MaxIter is the iteration budget. Default 1000.
	MaxIter int
	// Step overrides the gradient step size. Zero derives it from the
	// objective's Lipschitz bound. Ignored by Nesterov after the first
	// iteration.
	Step float64
	// Momentum enables FISTA extrapolation in ForwardBackward. Default true.
	Momentum bool
	// EarlyStopping enables the windowed plateau test. Default true.
	EarlyStopping bool
	// Window is the sliding-window length of the plateau test. Default 8.
	Window int
	// Tol is the relative-change tolerance of the plateau test. Default 1e-8.
	Tol float64
	// Weights optionally scales the proximal threshold element-wise.
	Weights []float64
	// MaxCostGrowth is the number of consecutive cost increases tolerated by
	// ForwardBackward before it fails with ErrStepSize. Default 5.
	MaxCostGrowth int
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the default solver settings.
func DefaultConfig() Config {
	return Config{
		MaxIter:       DefaultMaxIter,
		Momentum:      true,
		EarlyStopping: true,
		Window:        DefaultWindow,
		Tol:           DefaultTol,
		MaxCostGrowth: DefaultMaxCostGrowth,
	}
}

// WithMaxIter sets the iteration budget.
func WithMaxIter(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxIter = n
		}
	}
}

// WithStep sets a fixed gradient step size.
func WithStep(step float64) Option {
	return func(cfg *Config) {
		if step > 0 {
			cfg.Step = step
		}
	}
}

// WithMomentum toggles FISTA extrapolation.
func WithMomentum(enabled bool) Option {
	return func(cfg *Config) {
		cfg.Momentum = enabled
	}
}

// WithEarlyStopping toggles the windowed plateau test.
func WithEarlyStopping(enabled bool) Option {
	return func(cfg *Config) {
		cfg.EarlyStopping = enabled
	}
}

// WithWindow sets the plateau-test window length.
func WithWindow(wind int) Option {
	return func(cfg *Config) {
		if wind > 1 {
			cfg.Window = wind
		}
	}
}

// WithTol sets the plateau-test relative tolerance.
func WithTol(tol float64) Option {
	return func(cfg *Config) {
		if tol > 0 {
			cfg.Tol = tol
		}
	}
}

// WithWeights sets an element-wise proximal weight vector.
func WithWeights(w []float64) Option {
	return func(cfg *Config) {
		cfg.Weights = w
	}
}

// WithMaxCostGrowth sets the consecutive-increase budget of the fixed-step
// divergence guard.
func WithMaxCostGrowth(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxCostGrowth = n
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Plateau reports whether the tail of values has flattened: it takes the
// last wind entries, splits them into an older and a newer half, and
// compares the halves' means. The test is eligible only once more than wind
// values exist, so the earliest possible trigger is entry wind+1.
func Plateau(values []float64, wind int, tol float64) bool {
	if len(values) <= wind {
		return false
	}
	half := wind / 2
	tail := values[len(values)-wind:]
	oldMean := mean(tail[:wind-half])
	newMean := mean(tail[wind-half:])

	num := newMean - oldMean
	if num < 0 {
		num = -num
	}
	den := newMean
	if den < 0 {
		den = -den
	}
	if den == 0 {
		return num == 0
	}
	return num/den < tol
}

func mean(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}
