package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskGrowsQuadraticallyAboveOne(t *testing.T) {
	r := NewRiskAccumulator(20.0)

	risk, alert := r.Update(3.0)
	assert.InDelta(t, 16.0, risk, 1e-12) // 4·(3−1)²
	assert.False(t, alert)
}

func TestRiskDecaysGeometrically(t *testing.T) {
	r := NewRiskAccumulator(20.0)
	r.SetRisk(10.0)

	for i := 1; i <= 50; i++ {
		risk, alert := r.Update(0.5)
		assert.InDelta(t, 10.0*math.Pow(0.95, float64(i)), risk, 1e-9)
		assert.False(t, alert)
	}
}

func TestRiskSeverityOneDecays(t *testing.T) {
	// Severity exactly 1 is not "above 1": it decays.
	r := NewRiskAccumulator(20.0)
	r.SetRisk(10.0)

	risk, _ := r.Update(1.0)
	assert.InDelta(t, 9.5, risk, 1e-12)
}

func TestRiskAlertEdgeAndHysteresis(t *testing.T) {
	// Severity 3 each tick: 0 → 16 → 32, alert fires on the crossing
	// and the pool halves to 16.
	r := NewRiskAccumulator(20.0)

	risk, alert := r.Update(3.0)
	require.False(t, alert)
	require.InDelta(t, 16.0, risk, 1e-12)

	risk, alert = r.Update(3.0)
	assert.True(t, alert)
	assert.InDelta(t, 16.0, risk, 1e-12) // 32 halved

	// The pool was penalised, not reset.
	assert.Greater(t, r.Risk(), 0.0)
}

func TestRiskNoImmediateRetrigger(t *testing.T) {
	// After an alert at a marginal crossing, a benign tick cannot
	// re-trigger: the halved pool decays further under the threshold.
	r := NewRiskAccumulator(20.0)
	r.SetRisk(19.0)

	risk, alert := r.Update(2.0) // 19 + 4 = 23 → alert → 11.5
	require.True(t, alert)
	require.InDelta(t, 11.5, risk, 1e-12)

	risk, alert = r.Update(0.9)
	assert.False(t, alert)
	assert.InDelta(t, 11.5*0.95, risk, 1e-12)
}
