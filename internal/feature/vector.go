// Package feature turns raw metric maps into fixed-order vectors and
// smooths them over a short rolling window before scoring.
package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/shadow30812/sentinel/internal/config"
)

// Builder converts a metrics map into a strict d-dimensional vector
// following the feature order declared at startup. The order is
// immutable for the lifetime of the process; metrics missing from a
// sample default to 0.
type Builder struct {
	keys []string
}

// NewBuilder validates the declared feature order and returns a
// Builder. Dimension overflow is a misconfiguration and surfaces here,
// at startup, never at runtime.
func NewBuilder(keys []string) (*Builder, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("feature: no feature keys declared")
	}
	if len(keys) > config.MaxFeatureDim {
		return nil, fmt.Errorf("feature: vector dimension %d exceeds maximum of %d",
			len(keys), config.MaxFeatureDim)
	}
	return &Builder{keys: append([]string(nil), keys...)}, nil
}

// Vector builds x_t from a raw metrics map.
func (b *Builder) Vector(metrics map[string]float64) *mat.VecDense {
	data := make([]float64, len(b.keys))
	for i, k := range b.keys {
		data[i] = metrics[k]
	}
	return mat.NewVecDense(len(data), data)
}

// Dim returns the feature vector dimension d.
func (b *Builder) Dim() int { return len(b.keys) }

// Keys returns a copy of the declared feature order.
func (b *Builder) Keys() []string { return append([]string(nil), b.keys...) }
