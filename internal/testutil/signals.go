package testutil

import "math/rand"

// SpikeTrain generates a sparse innovation signal with the given amplitudes
// at the given positions. Positions outside the signal are ignored.
func SpikeTrain(length int, spikes map[int]float64) []float64 {
	out := make([]float64, length)
	for pos, amp := range spikes {
		if pos >= 0 && pos < length {
			out[pos] = amp
		}
	}
	return out
}

// GaussianNoise generates zero-mean Gaussian noise with a fixed seed for
// reproducibility.
func GaussianNoise(seed int64, sigma float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	return SpikeTrain(length, map[int]float64{pos: 1})
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
