package linop

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func randVec(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

// checkAdjointIdentity verifies <Au, v> == <u, Aᵀv> on random vectors.
func checkAdjointIdentity(t *testing.T, op Operator, rng *rand.Rand) {
	t.Helper()

	u := randVec(rng, op.InputLen())
	v := randVec(rng, op.OutputLen())

	au, err := Apply(op, u)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	atv, err := Adjoint(op, v)
	if err != nil {
		t.Fatalf("adjoint failed: %v", err)
	}

	lhs := dot(au, v)
	rhs := dot(u, atv)
	scale := math.Max(math.Abs(lhs), 1.0)
	if math.Abs(lhs-rhs)/scale > 1e-10 {
		t.Errorf("adjoint identity violated: <Au,v>=%v, <u,Atv>=%v", lhs, rhs)
	}
}

func TestAdjointIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 128

	shortKernel := randVec(rng, 12)
	longKernel := randVec(rng, 100)

	integ, _ := NewIntegrator(n)
	diff, _ := NewDifferencer(n)
	convShort, err := NewConvolver(shortKernel, n)
	if err != nil {
		t.Fatalf("NewConvolver: %v", err)
	}
	convLong, err := NewConvolver(longKernel, n)
	if err != nil {
		t.Fatalf("NewConvolver: %v", err)
	}
	convRect, err := NewConvolverShaped(randVec(rng, 60), 24, n)
	if err != nil {
		t.Fatalf("NewConvolverShaped: %v", err)
	}
	convRectFFT, err := NewConvolverShaped(randVec(rng, 90), 24, n)
	if err != nil {
		t.Fatalf("NewConvolverShaped: %v", err)
	}

	d := mat.NewDense(n, 20, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 20; j++ {
			d.Set(i, j, rng.NormFloat64())
		}
	}
	matMap, err := NewMatrixMap(d)
	if err != nil {
		t.Fatalf("NewMatrixMap: %v", err)
	}

	convInteg, err := Compose(convShort, integ)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	convDict, err := Compose(convShort, matMap)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	ops := []struct {
		name string
		op   Operator
	}{
		{"integrator", integ},
		{"differencer", diff},
		{"convolver direct", convShort},
		{"convolver fft", convLong},
		{"convolver rectangular", convRect},
		{"convolver rectangular fft", convRectFFT},
		{"matrix map", matMap},
		{"conv over integrator", convInteg},
		{"conv over dictionary", convDict},
	}

	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			for trial := 0; trial < 5; trial++ {
				checkAdjointIdentity(t, tt.op, rng)
			}
		})
	}
}

func TestIntegratorDifferencerRoundTrip(t *testing.T) {
	const n = 64
	rng := rand.New(rand.NewSource(3))

	integ, _ := NewIntegrator(n)
	diff, _ := NewDifferencer(n)

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(rng.Intn(21) - 10) // integer-exact round trip
	}

	blocks, err := Apply(integ, x)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	back, err := Apply(diff, blocks)
	if err != nil {
		t.Fatalf("difference: %v", err)
	}

	for i := range x {
		if back[i] != x[i] {
			t.Fatalf("round trip not exact at %d: got %v, want %v", i, back[i], x[i])
		}
	}
}

func TestConvolverMatchesToeplitz(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n = 40

	kernel := randVec(rng, 9)
	conv, err := NewConvolver(kernel, n)
	if err != nil {
		t.Fatalf("NewConvolver: %v", err)
	}

	// Build the truncated Toeplitz matrix explicitly.
	h := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if k := i - j; k < len(kernel) {
				h.Set(i, j, kernel[k])
			}
		}
	}
	ref, err := NewMatrixMap(h)
	if err != nil {
		t.Fatalf("NewMatrixMap: %v", err)
	}

	x := randVec(rng, n)

	got, err := Apply(conv, x)
	if err != nil {
		t.Fatalf("conv apply: %v", err)
	}
	want, err := Apply(ref, x)
	if err != nil {
		t.Fatalf("toeplitz apply: %v", err)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-10 {
			t.Fatalf("forward mismatch at %d: got %v, want %v", i, got[i], want[i])
		}
	}

	y := randVec(rng, n)
	gotAdj, err := Adjoint(conv, y)
	if err != nil {
		t.Fatalf("conv adjoint: %v", err)
	}
	wantAdj, err := Adjoint(ref, y)
	if err != nil {
		t.Fatalf("toeplitz adjoint: %v", err)
	}
	for i := range gotAdj {
		if math.Abs(gotAdj[i]-wantAdj[i]) > 1e-10 {
			t.Fatalf("adjoint mismatch at %d: got %v, want %v", i, gotAdj[i], wantAdj[i])
		}
	}
}

func TestConvolverFFTAgreesWithDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const n = 256

	kernel := randVec(rng, fftThreshold+8)
	fftConv, err := NewConvolver(kernel, n)
	if err != nil {
		t.Fatalf("NewConvolver: %v", err)
	}
	if fftConv.plan == nil {
		t.Fatal("expected FFT path for long kernel")
	}

	// Force the direct path with the same kernel.
	direct := &Convolver{kernel: fftConv.Kernel(), dimIn: n, dimOut: n}

	x := randVec(rng, n)

	a, err := Apply(fftConv, x)
	if err != nil {
		t.Fatalf("fft apply: %v", err)
	}
	b, err := Apply(direct, x)
	if err != nil {
		t.Fatalf("direct apply: %v", err)
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-8 {
			t.Fatalf("forward paths disagree at %d: fft %v, direct %v", i, a[i], b[i])
		}
	}

	a, err = Adjoint(fftConv, x)
	if err != nil {
		t.Fatalf("fft adjoint: %v", err)
	}
	b, err = Adjoint(direct, x)
	if err != nil {
		t.Fatalf("direct adjoint: %v", err)
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-8 {
			t.Fatalf("adjoint paths disagree at %d: fft %v, direct %v", i, a[i], b[i])
		}
	}
}

func TestShapeErrors(t *testing.T) {
	integ, _ := NewIntegrator(8)

	if err := integ.Apply(make([]float64, 8), make([]float64, 7)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short input: expected ErrDimensionMismatch, got %v", err)
	}
	if err := integ.Apply(make([]float64, 9), make([]float64, 8)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("long output: expected ErrDimensionMismatch, got %v", err)
	}

	conv, _ := NewConvolver([]float64{1, 2}, 8)
	if _, err := Compose(conv, conv); err != nil {
		t.Errorf("compatible compose failed: %v", err)
	}
	integ16, _ := NewIntegrator(16)
	if _, err := Compose(conv, integ16); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("incompatible compose: expected ErrDimensionMismatch, got %v", err)
	}

	if _, err := NewConvolver(nil, 8); !errors.Is(err, ErrEmptyKernel) {
		t.Errorf("empty kernel: expected ErrEmptyKernel, got %v", err)
	}
	if _, err := NewIntegrator(0); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("zero length: expected ErrInvalidLength, got %v", err)
	}
}

func TestSpectralRadius(t *testing.T) {
	// For the identity-like map D = I, the spectral radius of DᵀD is 1.
	const n = 32
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	op, _ := NewMatrixMap(d)

	r, converged, err := SpectralRadius(op, 100, 1e-10, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("SpectralRadius: %v", err)
	}
	if !converged {
		t.Error("power iteration did not converge on identity")
	}
	if math.Abs(r-1) > 1e-6 {
		t.Errorf("spectral radius = %v, want 1", r)
	}

	// Scaling the operator by c scales the radius of AᵀA by c².
	d2 := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d2.Set(i, i, 3)
	}
	op2, _ := NewMatrixMap(d2)
	r2, _, err := SpectralRadius(op2, 100, 1e-10, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("SpectralRadius: %v", err)
	}
	if math.Abs(r2-9) > 1e-5 {
		t.Errorf("spectral radius = %v, want 9", r2)
	}
}
