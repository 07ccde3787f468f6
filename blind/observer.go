package blind

import (
	"fmt"
	"io"
)

// IterationRecord is an immutable snapshot of one driver iteration, handed
// to the observer and appended to the result's record trace.
type IterationRecord struct {
	// Iteration is the outer iteration index, starting at 0.
	Iteration int
	// Inner marks records emitted by the auto-λ sub-loop.
	Inner bool
	// Lambda and Alpha are the regularization state at the time of the
	// record. Alpha is zero in fixed-λ mode.
	Lambda float64
	Alpha  float64
	// Cost is the joint objective 0.5·Σ(pred−obs)² + λ‖innovation‖₁.
	Cost float64
	// Residual and Penalty are the two cost terms separately.
	Residual float64
	Penalty  float64
	// ErrInnovation and ErrKernel are normalized l2 distances to supplied
	// ground truth, or -1 when no truth was given.
	ErrInnovation float64
	ErrKernel     float64
}

// Observer receives one record per driver iteration, synchronously. It must
// not retain the record's backing state beyond the call.
type Observer interface {
	OnIteration(rec IterationRecord)
}

// noopObserver ignores every record.
type noopObserver struct{}

func (noopObserver) OnIteration(IterationRecord) {}

// writerObserver prints one progress line per record.
type writerObserver struct {
	w     io.Writer
	level int
}

// NewWriterObserver returns an observer printing progress lines to w. Level
// 1 reports outer iterations, level 2 and above also the auto-λ sub-loop.
func NewWriterObserver(w io.Writer, level int) Observer {
	return &writerObserver{w: w, level: level}
}

func (o *writerObserver) OnIteration(rec IterationRecord) {
	if o.level < 1 || (rec.Inner && o.level < 2) {
		return
	}
	kind := "iter"
	if rec.Inner {
		kind = " sub"
	}
	fmt.Fprintf(o.w, "%s %3d: cost=%.6e residual=%.6e penalty=%.6e lambda=%.4e\n",
		kind, rec.Iteration, rec.Cost, rec.Residual, rec.Penalty, rec.Lambda)
}
