// Package blind implements alternating blind deconvolution of noisy
// physiological response signals.
//
// An observed signal is modeled as the convolution of an unknown block
// signal (the running sum of a sparse innovation signal) with an unknown
// response kernel drawn from a small parametric family. The driver
// alternates two sub-problems until the joint cost plateaus:
//
//   - sparse recovery: with the kernel fixed, the innovation signal is
//     recovered by proximal-gradient descent over the composed operator
//     convolution ∘ integration with an l1 sparsity penalty;
//   - kernel re-fit: with the block signal fixed, the kernel's shape
//     parameters are re-estimated by bounded quasi-Newton minimization of
//     the residual.
//
// The sparsity weight λ can be supplied directly or searched automatically
// by the discrepancy principle: an inner loop tunes λ until the residual
// energy matches the noise energy N·σ², with σ estimated robustly from the
// observed signal.
package blind
