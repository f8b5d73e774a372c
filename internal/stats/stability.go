package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// invertRetries bounds the ε escalation ladder in SafeInvert.
const invertRetries = 5

// Regularize returns cov + ε·I.
func Regularize(cov mat.Matrix, eps float64) *mat.Dense {
	d, _ := cov.Dims()
	out := mat.DenseCopyOf(cov)
	for i := 0; i < d; i++ {
		out.Set(i, i, out.At(i, i)+eps)
	}
	return out
}

// ConditionNumber computes the 2-norm condition number σ_max/σ_min.
// A failed decomposition or a zero singular value reports +Inf rather
// than an error: the caller treats both as "do not invert".
func ConditionNumber(a mat.Matrix) float64 {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return math.Inf(1)
	}
	values := svd.Values(nil)
	smin := values[len(values)-1]
	if smin <= 0 {
		return math.Inf(1)
	}
	return values[0] / smin
}

// SafeInvert attempts to invert the covariance matrix, escalating the
// diagonal regularisation until the matrix is well conditioned.
//
// Starting at ε = baseEps, up to invertRetries attempts are made; each
// failure multiplies ε by 10. If every attempt fails, the
// pseudo-inverse of the base-regularised matrix is returned together
// with frozen = true: scoring stays possible, but the caller must
// treat further updates as unsafe.
//
// Returns (inverse, frozen, appliedEpsilon).
func SafeInvert(cov mat.Matrix, baseEps, maxCond float64) (*mat.Dense, bool, float64) {
	eps := baseEps

	for i := 0; i < invertRetries; i++ {
		reg := Regularize(cov, eps)

		if ConditionNumber(reg) < maxCond {
			var inv mat.Dense
			err := inv.Inverse(reg)
			// A mat.Condition value is a warning attached to a valid
			// result; the condition number was already checked above.
			var cond mat.Condition
			if err == nil || errors.As(err, &cond) {
				return &inv, false, eps
			}
		}

		eps *= 10.0
	}

	return PseudoInverse(Regularize(cov, baseEps)), true, baseEps
}

// PseudoInverse computes the Moore-Penrose pseudo-inverse via SVD,
// discarding singular values below the usual numerical tolerance.
func PseudoInverse(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		// SVD of a finite matrix essentially always converges; if it
		// does not, a zero matrix keeps downstream scoring finite.
		return mat.NewDense(c, r, nil)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	n := r
	if c > n {
		n = c
	}
	tol := float64(n) * values[0] * 2.220446049250313e-16

	sinv := mat.NewDense(len(values), len(values), nil)
	for i, s := range values {
		if s > tol {
			sinv.Set(i, i, 1.0/s)
		}
	}

	var tmp, pinv mat.Dense
	tmp.Mul(&v, sinv)
	pinv.Mul(&tmp, u.T())
	return &pinv
}
