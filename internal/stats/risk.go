package stats

// =============================================================================
// RISK ACCUMULATOR — Mathematical Foundation
// =============================================================================
//
// The accumulator integrates severity into a single risk score:
//
//   S > 1:  R ← R + 4·(S − 1)²     nonlinear growth — compounding severe
//                                  states escalate quadratically
//   S ≤ 1:  R ← 0.95·R             geometric decay — benign ticks bleed
//                                  risk off with half-life ≈ 13.5 ticks
//
// ALERT EDGE:
//   alert = R > R★ evaluated on the post-increment, pre-hysteresis value.
//
// HYSTERESIS:
//   On alert the pool is halved, not zeroed: R ← 0.5·R. A single severe
//   episode therefore raises one alert per crossing instead of flapping
//   on every tick, while the remaining pool keeps the system "warm" if
//   the episode continues.
//
// =============================================================================

// RiskAccumulator is the leaky nonlinear integrator over severity.
// Single-writer: owned by the engine goroutine.
type RiskAccumulator struct {
	risk           float64
	alertThreshold float64
}

// NewRiskAccumulator returns an accumulator with zero risk and the
// given alert threshold R★.
func NewRiskAccumulator(alertThreshold float64) *RiskAccumulator {
	return &RiskAccumulator{alertThreshold: alertThreshold}
}

// Update folds one severity sample into the risk pool and returns the
// resulting risk together with the alert edge.
func (r *RiskAccumulator) Update(severity float64) (float64, bool) {
	if severity > 1.0 {
		excess := severity - 1.0
		r.risk += 4.0 * excess * excess
	} else {
		r.risk *= 0.95
	}

	alert := r.risk > r.alertThreshold
	if alert {
		r.risk *= 0.5
	}

	return r.risk, alert
}

// Risk returns the current accumulated risk.
func (r *RiskAccumulator) Risk() float64 { return r.risk }

// SetRisk overrides the pool; used when restoring persisted state and
// when a retrain zeroes the accumulator.
func (r *RiskAccumulator) SetRisk(v float64) { r.risk = v }
