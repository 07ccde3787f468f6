package blind

import "errors"

// Errors returned by the driver.
var (
	// ErrConfiguration signals a partially specified kernel model: Func,
	// Init and Bounds must be supplied together or not at all.
	ErrConfiguration = errors.New("blind: incomplete kernel model configuration")

	// ErrNumericalDivergence signals a non-finite λ, α, kernel parameter or
	// iterate. The driver aborts and returns the last valid state together
	// with the partial trace.
	ErrNumericalDivergence = errors.New("blind: non-finite value during alternation")

	// ErrBadInput signals an empty or too-short observed signal.
	ErrBadInput = errors.New("blind: invalid input signal")
)
