package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minThreshold floors the calibrated threshold so a degenerate
// (near-constant) training batch cannot produce divide-by-zero
// severities.
const minThreshold = 1e-9

// thresholdPercentile calibrates T from the training-batch distances.
const thresholdPercentile = 0.99

// Model is one exponentially weighted Gaussian baseline. The detector
// runs two of them, differing only in the forgetting factor λ: a short
// timescale that tracks quickly and a long timescale that anchors the
// severity calculation.
//
// A Model is not safe for concurrent use; the engine goroutine is its
// single owner.
type Model struct {
	lambda  float64
	baseEps float64
	maxCond float64

	mu     *mat.VecDense
	cov    *mat.Dense
	covInv *mat.Dense

	threshold   float64
	initialized bool
	frozen      bool
}

// NewModel returns an uninitialised model with forgetting factor
// lambda, base regularisation epsilon, and condition number limit.
func NewModel(lambda, baseEps, maxCond float64) *Model {
	return &Model{
		lambda:  lambda,
		baseEps: baseEps,
		maxCond: maxCond,
	}
}

// InitFromBatch promotes the model to initialised from an N×d batch of
// training vectors: μ is the column mean, Σ the unbiased sample
// covariance, and T the 99th percentile of the batch's Mahalanobis
// distances (floored at a tiny positive value).
func (m *Model) InitFromBatch(batch *mat.Dense) error {
	n, d := batch.Dims()
	if n < 2 {
		return fmt.Errorf("stats: batch of %d samples is too small to estimate covariance", n)
	}

	mu := mat.NewVecDense(d, nil)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, batch)
		mu.SetVec(j, stat.Mean(col, nil))
	}

	var sym mat.SymDense
	stat.CovarianceMatrix(&sym, batch, nil)
	cov := mat.DenseCopyOf(&sym)

	covInv, frozen, epsUsed := SafeInvert(cov, m.baseEps, m.maxCond)
	// The stored covariance is the regularised matrix that produced
	// covInv, keeping the tuple internally consistent.
	cov = Regularize(cov, epsUsed)

	distances := make([]float64, n)
	for i := 0; i < n; i++ {
		distances[i] = Mahalanobis(batch.RowView(i), mu, covInv)
	}
	sort.Float64s(distances)

	threshold := stat.Quantile(thresholdPercentile, stat.LinInterp, distances, nil)
	if threshold < minThreshold {
		threshold = minThreshold
	}

	m.mu = mu
	m.cov = cov
	m.covInv = covInv
	m.threshold = threshold
	m.frozen = frozen
	m.initialized = true
	return nil
}

// Update performs the gated online update. It is a no-op when the
// model is uninitialised, frozen, or the sample is contaminated
// (severity ≥ limit — the engine applies the same gate globally; the
// model re-checks it so a stray call cannot poison the baseline).
//
// The new covariance is computed against the pre-update mean, then the
// mean moves. If the updated covariance cannot be inverted safely the
// model freezes and the update is discarded; otherwise (μ, Σ, Σ⁻¹)
// commit together. T is never re-estimated online.
func (m *Model) Update(x mat.Vector, severity, limit float64) {
	if !m.initialized || m.frozen {
		return
	}
	if severity >= limit {
		return
	}

	newCov := UpdateCovariance(m.cov, m.mu, x, m.lambda)
	newMu := UpdateMean(m.mu, x, m.lambda)

	newInv, frozen, epsUsed := SafeInvert(newCov, m.baseEps, m.maxCond)
	if frozen {
		m.frozen = true
		return
	}

	m.cov = Regularize(newCov, epsUsed)
	m.mu = newMu
	m.covInv = newInv
}

// SnapTo replaces this model's (μ, Σ, Σ⁻¹) with deep value copies of
// src's. The threshold is deliberately left untouched: T comes from
// the last batch calibration, not from the donor model.
func (m *Model) SnapTo(src *Model) {
	m.mu = mat.VecDenseCopyOf(src.mu)
	m.cov = mat.DenseCopyOf(src.cov)
	m.covInv = mat.DenseCopyOf(src.covInv)
}

// Reset marks the model uninitialised ahead of a retrain. The frozen
// flag clears as well: an explicit retrain is the one sanctioned exit
// from the frozen state.
func (m *Model) Reset() {
	m.initialized = false
	m.frozen = false
}

// Restore rebuilds the model from persisted row-major matrices.
func (m *Model) Restore(dim int, mu, cov, covInv []float64, threshold float64) error {
	if dim < 1 {
		return fmt.Errorf("stats: restore with invalid dimension %d", dim)
	}
	if len(mu) != dim || len(cov) != dim*dim || len(covInv) != dim*dim {
		return fmt.Errorf("stats: restore with mismatched array lengths for dimension %d", dim)
	}

	m.mu = mat.NewVecDense(dim, append([]float64(nil), mu...))
	m.cov = mat.NewDense(dim, dim, append([]float64(nil), cov...))
	m.covInv = mat.NewDense(dim, dim, append([]float64(nil), covInv...))
	m.threshold = threshold
	m.frozen = false
	m.initialized = true
	return nil
}

// Export returns copies of the model matrices in row-major layout for
// persistence. It must only be called on an initialised model.
func (m *Model) Export() (dim int, mu, cov, covInv []float64) {
	dim = m.mu.Len()
	mu = append([]float64(nil), m.mu.RawVector().Data...)
	cov = append([]float64(nil), m.cov.RawMatrix().Data...)
	covInv = append([]float64(nil), m.covInv.RawMatrix().Data...)
	return dim, mu, cov, covInv
}

// Mu returns the current mean. Callers must treat it as read-only.
func (m *Model) Mu() mat.Vector { return m.mu }

// Cov returns the current regularised covariance, read-only.
func (m *Model) Cov() mat.Matrix { return m.cov }

// CovInv returns the current inverse covariance, read-only.
func (m *Model) CovInv() mat.Matrix { return m.covInv }

// Threshold returns the calibrated severity denominator T.
func (m *Model) Threshold() float64 { return m.threshold }

// SetThreshold overrides T. Restore sets T from its own argument and
// does not go through this setter.
func (m *Model) SetThreshold(t float64) { m.threshold = t }

// Initialized reports whether the model has a usable baseline.
func (m *Model) Initialized() bool { return m.initialized }

// Frozen reports whether updates are blocked by numerical instability.
func (m *Model) Frozen() bool { return m.frozen }
