// Package linop provides composable linear operators over fixed-length
// real-valued signals.
//
// Every operator exposes a forward application and its adjoint, both writing
// into caller-provided destination slices:
//
//	op := linop.NewIntegrator(n)
//	err := op.Apply(dst, x)    // forward
//	err := op.Adjoint(dst, y)  // adjoint
//
// The adjoint satisfies the inner-product identity <Ax, y> == <x, Aᵀy> for
// every operator in the package, which is what the iterative solvers built on
// top of them rely on.
//
// Available primitives:
//
//   - Integrator: inclusive running sum and its adjoint (reverse suffix sum)
//   - Convolver: linear convolution by a fixed kernel, truncated to the
//     signal length, with an FFT fast path for long kernels
//   - MatrixMap: multiplication by a fixed dictionary matrix
//   - Differencer: first difference, the exact inverse of Integrator
//   - Compose: sequencing of two operators
//
// SpectralRadius estimates the largest eigenvalue of AᵀA by power iteration,
// used to derive Lipschitz constants for gradient steps.
package linop
