// Package stats implements the statistical core of the detector: the
// Mahalanobis scorer, regularised covariance inversion, exponentially
// weighted online updates, the dual-timescale Gaussian baseline model,
// the risk accumulator, and the CUSUM drift detector.
package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mahalanobis computes D = sqrt((x-mu)^T Σ⁻¹ (x-mu)).
//
// Floating-point error can push the quadratic form slightly negative
// when x ≈ mu; it is clamped to zero before the square root.
func Mahalanobis(x, mu mat.Vector, covInv mat.Matrix) float64 {
	d := x.Len()
	delta := mat.NewVecDense(d, nil)
	delta.SubVec(x, mu)

	q := mat.Inner(delta, covInv, delta)
	return math.Sqrt(math.Max(0, q))
}

// Severity normalises the Mahalanobis distance of x by the training
// threshold: S = D / T. A non-positive threshold means the model has
// no usable calibration, so the severity is defined as 0.
func Severity(x, mu mat.Vector, covInv mat.Matrix, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return Mahalanobis(x, mu, covInv) / threshold
}

// Divergence is the L2 distance between the short- and long-term
// baseline means, ‖mu_short − mu_long‖₂.
func Divergence(muShort, muLong mat.Vector) float64 {
	d := muShort.Len()
	diff := mat.NewVecDense(d, nil)
	diff.SubVec(muShort, muLong)
	return mat.Norm(diff, 2)
}
