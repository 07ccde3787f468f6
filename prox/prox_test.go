package prox

import (
	"errors"
	"math"
	"testing"
)

func TestSoftThreshold(t *testing.T) {
	tests := []struct {
		name     string
		lambda   float64
		step     float64
		x        []float64
		expected []float64
	}{
		{
			name:     "shrinks towards zero",
			lambda:   1.0,
			step:     1.0,
			x:        []float64{3, -3, 0.5, -0.5, 0},
			expected: []float64{2, -2, 0, 0, 0},
		},
		{
			name:     "zero lambda is identity",
			lambda:   0,
			step:     1.0,
			x:        []float64{1.5, -2.5, 0},
			expected: []float64{1.5, -2.5, 0},
		},
		{
			name:     "threshold scales with step",
			lambda:   2.0,
			step:     0.25,
			x:        []float64{1, -1, 0.4},
			expected: []float64{0.5, -0.5, 0},
		},
		{
			name:     "exact threshold maps to zero",
			lambda:   1.0,
			step:     1.0,
			x:        []float64{1, -1},
			expected: []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewL1Norm(tt.lambda)
			if err != nil {
				t.Fatalf("NewL1Norm: %v", err)
			}
			dst := make([]float64, len(tt.x))
			if err := p.Apply(dst, tt.x, tt.step); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			for i := range dst {
				if math.Abs(dst[i]-tt.expected[i]) > 1e-15 {
					t.Errorf("dst[%d] = %v, want %v", i, dst[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSoftThresholdIdempotent(t *testing.T) {
	p, _ := NewL1Norm(0.7)
	x := []float64{2, -1.3, 0.4, -0.7, 5}

	once := make([]float64, len(x))
	if err := p.Apply(once, x, 1.0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Re-thresholding with a zero-weight operator must leave the result
	// unchanged; thresholding an already-thresholded zero stays zero.
	identity, _ := NewL1Norm(0)
	twice := make([]float64, len(x))
	if err := identity.Apply(twice, once, 1.0); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i := range once {
		if twice[i] != once[i] {
			t.Errorf("identity pass changed value at %d: %v -> %v", i, once[i], twice[i])
		}
	}

	// Components with |x| <= lambda are exactly zero after one pass.
	for i, v := range x {
		if math.Abs(v) <= 0.7 && once[i] != 0 {
			t.Errorf("component %d inside threshold not zeroed: %v", i, once[i])
		}
	}
}

func TestWeightedL1Norm(t *testing.T) {
	p, err := NewWeightedL1Norm(1.0, []float64{1, 0, 2})
	if err != nil {
		t.Fatalf("NewWeightedL1Norm: %v", err)
	}

	x := []float64{2, 2, 2}
	dst := make([]float64, 3)
	if err := p.Apply(dst, x, 1.0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []float64{1, 2, 0}
	for i := range dst {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}

	if got := p.Penalty([]float64{1, 1, 1}); got != 3 {
		t.Errorf("weighted penalty = %v, want 3", got)
	}

	if err := p.Apply(make([]float64, 2), []float64{1, 1}, 1.0); !errors.Is(err, ErrWeightShape) {
		t.Errorf("expected ErrWeightShape, got %v", err)
	}
}

func TestL1NormErrors(t *testing.T) {
	if _, err := NewL1Norm(-0.1); !errors.Is(err, ErrNegativeWeight) {
		t.Errorf("expected ErrNegativeWeight, got %v", err)
	}

	p, _ := NewL1Norm(0.1)
	if err := p.Apply(make([]float64, 2), []float64{1, 1, 1}, 1.0); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for dst/x mismatch, got %v", err)
	}
}
