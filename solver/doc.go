// Package solver implements proximal forward-backward splitting for
// objectives of the form f(x) + λ‖x‖₁, with f a smooth residual term.
//
// Two interchangeable solvers iterate
//
//	x_{k+1} = prox(x_k − step·∇f(x_k), step)
//
// and differ only in their step-size and momentum policy:
//
//   - ForwardBackward: constant step derived from the objective's Lipschitz
//     bound (or supplied), with optional FISTA momentum extrapolation. A
//     persistent cost increase trips ErrStepSize so the caller can halve the
//     step and retry.
//   - Nesterov: backtracking-free adaptive step from a local secant
//     (Barzilai-Borwein) estimate plus the Nesterov momentum sequence.
//
// Both record one cost value per iteration, 0.5·residual + λ‖x‖₁, and
// support windowed early stopping: once more than wind costs exist, the
// means of the older and newer halves of the window are compared and the
// iteration stops when their relative change falls below tol.
package solver
