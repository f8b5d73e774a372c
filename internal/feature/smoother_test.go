package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSmoother(t *testing.T, window int) *Smoother {
	t.Helper()
	b, err := NewBuilder([]string{"x", "y"})
	require.NoError(t, err)
	return NewSmoother(b, window)
}

func TestSmootherWarmsUpBeforeEmitting(t *testing.T) {
	s := newTestSmoother(t, 3)

	for i := 0; i < 2; i++ {
		x, ok := s.Process(map[string]float64{"x": 1, "y": 2})
		assert.False(t, ok)
		assert.Nil(t, x)
	}

	x, ok := s.Process(map[string]float64{"x": 1, "y": 2})
	require.True(t, ok)
	assert.InDelta(t, 1, x.AtVec(0), 1e-12)
	assert.InDelta(t, 2, x.AtVec(1), 1e-12)
}

func TestSmootherRollingMean(t *testing.T) {
	s := newTestSmoother(t, 3)

	s.Process(map[string]float64{"x": 1, "y": 10})
	s.Process(map[string]float64{"x": 2, "y": 20})
	x, ok := s.Process(map[string]float64{"x": 3, "y": 30})
	require.True(t, ok)
	assert.InDelta(t, 2, x.AtVec(0), 1e-12)
	assert.InDelta(t, 20, x.AtVec(1), 1e-12)

	// Window slides: oldest sample (1, 10) falls out.
	x, ok = s.Process(map[string]float64{"x": 6, "y": 40})
	require.True(t, ok)
	assert.InDelta(t, (2.0+3+6)/3, x.AtVec(0), 1e-12)
	assert.InDelta(t, 30, x.AtVec(1), 1e-12)
}

func TestSmootherWindowOfOnePassesThrough(t *testing.T) {
	s := newTestSmoother(t, 1)

	x, ok := s.Process(map[string]float64{"x": 7, "y": -7})
	require.True(t, ok)
	assert.InDelta(t, 7, x.AtVec(0), 1e-12)
	assert.InDelta(t, -7, x.AtVec(1), 1e-12)
}
