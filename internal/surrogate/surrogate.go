// Package surrogate provides the model-based search oracle behind the
// optimization loop. The loop only depends on the ask/tell contract; the
// model internals are swappable.
package surrogate

import (
	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/pkg/utils"
)

// Optimizer is the search oracle contract. Ask proposes a fresh point in the
// declared space; Tell registers an observed minimization score for a
// previously proposed point. Implementations are seeded deterministically.
type Optimizer interface {
	Ask() []float64
	Tell(x []float64, y float64)
}

// sampleUniform draws one point uniformly from the declared space, honoring
// integer dimensions.
func sampleUniform(dims []space.Dimension, rng *utils.RandSource) []float64 {
	x := make([]float64, len(dims))
	for i, d := range dims {
		if d.Integer {
			x[i] = float64(rng.UniformInt(int(d.Low), int(d.High)))
		} else {
			x[i] = rng.UniformFloat64(d.Low, d.High)
		}
	}
	return x
}

// RandomSearch is a model-free oracle: every ask is an independent uniform
// sample. It ignores feedback. Useful as a baseline and in tests.
type RandomSearch struct {
	dims []space.Dimension
	rng  *utils.RandSource
}

// NewRandomSearch creates a seeded random-search oracle.
func NewRandomSearch(dims []space.Dimension, seed int64) *RandomSearch {
	return &RandomSearch{
		dims: dims,
		rng:  utils.NewRandSource(seed),
	}
}

func (r *RandomSearch) Ask() []float64 {
	return sampleUniform(r.dims, r.rng)
}

func (r *RandomSearch) Tell(x []float64, y float64) {}
