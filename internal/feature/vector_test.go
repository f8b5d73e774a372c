package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadow30812/sentinel/internal/config"
)

func TestBuilderPreservesDeclaredOrder(t *testing.T) {
	b, err := NewBuilder([]string{"b", "a", "c"})
	require.NoError(t, err)

	x := b.Vector(map[string]float64{"a": 1, "b": 2, "c": 3})
	assert.Equal(t, 2.0, x.AtVec(0))
	assert.Equal(t, 1.0, x.AtVec(1))
	assert.Equal(t, 3.0, x.AtVec(2))
}

func TestBuilderMissingMetricsDefaultToZero(t *testing.T) {
	b, err := NewBuilder(config.DefaultFeatureKeys)
	require.NoError(t, err)

	x := b.Vector(map[string]float64{"cpu_percent": 42})
	assert.Equal(t, 42.0, x.AtVec(0))
	for i := 1; i < b.Dim(); i++ {
		assert.Zero(t, x.AtVec(i))
	}
}

func TestBuilderRejectsDimensionOverflow(t *testing.T) {
	keys := make([]string, config.MaxFeatureDim+1)
	for i := range keys {
		keys[i] = string(rune('a' + i))
	}
	_, err := NewBuilder(keys)
	assert.Error(t, err)
}

func TestBuilderRejectsEmptyKeys(t *testing.T) {
	_, err := NewBuilder(nil)
	assert.Error(t, err)
}

func TestBuilderKeysIsACopy(t *testing.T) {
	b, err := NewBuilder([]string{"a", "b"})
	require.NoError(t, err)

	keys := b.Keys()
	keys[0] = "mutated"
	assert.Equal(t, "a", b.Keys()[0])
}
