package linop

import (
	"gonum.org/v1/gonum/mat"
)

// MatrixMap multiplies by a fixed dictionary matrix D. Forward is D·x,
// mapping coefficient vectors (length = columns of D) to signals (length =
// rows of D); the adjoint is Dᵀ·y.
type MatrixMap struct {
	d    mat.Matrix
	rows int
	cols int
}

// NewMatrixMap creates a linear-map operator from the given matrix. The
// matrix is referenced, not copied; it must not be mutated afterwards.
func NewMatrixMap(d mat.Matrix) (*MatrixMap, error) {
	rows, cols := d.Dims()
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidLength
	}
	return &MatrixMap{d: d, rows: rows, cols: cols}, nil
}

// Matrix returns the underlying dictionary matrix.
func (m *MatrixMap) Matrix() mat.Matrix { return m.d }

// InputLen returns the number of matrix columns.
func (m *MatrixMap) InputLen() int { return m.cols }

// OutputLen returns the number of matrix rows.
func (m *MatrixMap) OutputLen() int { return m.rows }

// Apply writes D·x into dst.
func (m *MatrixMap) Apply(dst, x []float64) error {
	if err := checkShape(len(dst), m.rows, len(x), m.cols); err != nil {
		return err
	}
	out := mat.NewVecDense(m.rows, dst)
	out.MulVec(m.d, mat.NewVecDense(m.cols, x))
	return nil
}

// Adjoint writes Dᵀ·y into dst.
func (m *MatrixMap) Adjoint(dst, y []float64) error {
	if err := checkShape(len(dst), m.cols, len(y), m.rows); err != nil {
		return err
	}
	out := mat.NewVecDense(m.cols, dst)
	out.MulVec(m.d.T(), mat.NewVecDense(m.rows, y))
	return nil
}
