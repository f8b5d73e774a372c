package stats

import "gonum.org/v1/gonum/mat"

// UpdateMean computes the exponentially weighted mean update:
//
//	mu_{t+1} = (1-λ)·mu_t + λ·x_t
func UpdateMean(mu, x mat.Vector, lambda float64) *mat.VecDense {
	out := mat.NewVecDense(mu.Len(), nil)
	out.ScaleVec(1.0-lambda, mu)
	out.AddScaledVec(out, lambda, x)
	return out
}

// UpdateCovariance computes the exponentially weighted rank-one
// covariance update:
//
//	Σ_{t+1} = (1-λ)·Σ_t + λ·(x_t-mu_t)(x_t-mu_t)^T
//
// mu must be the pre-update mean: mean and covariance for step t+1 are
// both computed from mu_t, and callers must not reorder that.
func UpdateCovariance(cov mat.Matrix, mu, x mat.Vector, lambda float64) *mat.Dense {
	d := mu.Len()

	delta := mat.NewVecDense(d, nil)
	delta.SubVec(x, mu)

	rankOne := mat.NewDense(d, d, nil)
	rankOne.Outer(lambda, delta, delta)

	var out mat.Dense
	out.Scale(1.0-lambda, cov)
	out.Add(&out, rankOne)
	return &out
}
