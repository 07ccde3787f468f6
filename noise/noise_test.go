package noise

import (
	"math"
	"math/rand"
	"testing"
)

func TestMAD(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		c        float64
		expected float64
	}{
		{
			name:     "symmetric around median",
			x:        []float64{1, 2, 3, 4, 5},
			c:        1.0,
			expected: 1.0,
		},
		{
			name:     "constant signal",
			x:        []float64{3, 3, 3, 3},
			c:        1.0,
			expected: 0.0,
		},
		{
			name:     "consistency scaling",
			x:        []float64{1, 2, 3, 4, 5},
			c:        0.5,
			expected: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MAD(tt.x, tt.c)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("MAD = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDaubNoiseEstRecoversGaussianSigma(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	const n = 4096
	const sigma = 0.25

	// Smooth signal plus Gaussian noise: the detail coefficients see mostly
	// the noise.
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2*math.Pi*float64(i)/512) + sigma*rng.NormFloat64()
	}

	est := DaubNoiseEst(x)
	if math.Abs(est-sigma)/sigma > 0.15 {
		t.Errorf("noise estimate = %v, want ~%v", est, sigma)
	}
}

func TestDaubNoiseEstScaleEquivariance(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	x := make([]float64, 512)
	for i := range x {
		x[i] = rng.NormFloat64()
	}

	base := DaubNoiseEst(x)
	for _, c := range []float64{0.5, 2, 100} {
		scaled := make([]float64, len(x))
		for i := range x {
			scaled[i] = c * x[i]
		}
		got := DaubNoiseEst(scaled)
		if math.Abs(got-c*base) > 1e-9*c*base {
			t.Errorf("est(%v·x) = %v, want %v", c, got, c*base)
		}
	}
}

func TestDaubNoiseEstShortSignalFallback(t *testing.T) {
	x := []float64{1, 2, 3}
	got := DaubNoiseEst(x)
	want := MAD(x, GaussianConsistency)
	if got != want {
		t.Errorf("short-signal estimate = %v, want raw MAD %v", got, want)
	}
}

func TestHighPassKillsConstants(t *testing.T) {
	// An orthonormal QMF high-pass filter has zero sum, so a constant
	// signal produces vanishing detail coefficients. The published db3
	// coefficients carry a residual of a few 1e-12, which scales with the
	// signal amplitude.
	const amplitude = 7.5
	x := make([]float64, 64)
	for i := range x {
		x[i] = amplitude
	}
	for _, c := range detailCoeffs(x) {
		if math.Abs(c) > 1e-10*amplitude {
			t.Fatalf("constant signal produced detail coefficient %v", c)
		}
	}
}

func TestInfNorm(t *testing.T) {
	x := []float64{2, -4, 1}
	got := InfNorm(x)
	if math.Abs(got[1]) > 1.0 || math.Abs(got[1]+1) > 1e-9 {
		t.Errorf("peak not normalized to -1: %v", got[1])
	}
	if math.Abs(got[0]-0.5) > 1e-9 {
		t.Errorf("got[0] = %v, want 0.5", got[0])
	}

	all := InfNormAll([]float64{1, 2}, []float64{-8, 4})
	if math.Abs(all[0][1]-1) > 1e-9 || math.Abs(all[1][0]+1) > 1e-9 {
		t.Errorf("per-array normalization wrong: %v", all)
	}

	zeros := InfNorm(make([]float64, 4))
	for _, v := range zeros {
		if v != 0 {
			t.Fatalf("all-zero input produced %v", v)
		}
	}
}

func TestTracker(t *testing.T) {
	tr := NewTracker(func(x []float64) float64 { return x[0] * x[0] })
	tr.Track([]float64{2})
	tr.Track([]float64{3})
	if len(tr.Costs) != 2 || tr.Costs[0] != 4 || tr.Costs[1] != 9 {
		t.Errorf("tracker costs = %v, want [4 9]", tr.Costs)
	}
}
