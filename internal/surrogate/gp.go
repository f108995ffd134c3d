package surrogate

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/pkg/utils"
)

// GP defaults. The length scale applies in the normalized unit cube; noise
// regularizes the kernel matrix against near-duplicate observations.
const (
	defaultCandidates  = 512
	defaultLengthScale = 0.2
	defaultNoise       = 1e-4
	defaultXi          = 0.01
)

// GPOptimizer is a Gaussian-Process-guided oracle. The first nInitial asks
// are uniform space-filling samples; after that, proposals maximize Expected
// Improvement over candidates sampled from the space, scored against a GP
// regression of the observations (RBF kernel on normalized inputs).
type GPOptimizer struct {
	mu sync.Mutex

	dims        []space.Dimension
	rng         *utils.RandSource
	nInitial    int
	nCandidates int
	lengthScale float64
	noise       float64
	xi          float64

	xs [][]float64 // observed points, raw coordinates
	ys []float64   // observed minimization scores
}

// NewGP creates a seeded GP oracle over the given dimensions. The first
// nInitial asks are random before the model takes over.
func NewGP(dims []space.Dimension, seed int64, nInitial int) *GPOptimizer {
	if nInitial <= 0 {
		nInitial = 1
	}
	return &GPOptimizer{
		dims:        dims,
		rng:         utils.NewRandSource(seed),
		nInitial:    nInitial,
		nCandidates: defaultCandidates,
		lengthScale: defaultLengthScale,
		noise:       defaultNoise,
		xi:          defaultXi,
	}
}

// Ask proposes the next point to evaluate.
func (g *GPOptimizer) Ask() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.xs) < g.nInitial {
		return sampleUniform(g.dims, g.rng)
	}
	return g.askModel()
}

// Tell registers an observed minimization score.
func (g *GPOptimizer) Tell(x []float64, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	point := make([]float64, len(x))
	copy(point, x)
	g.xs = append(g.xs, point)
	g.ys = append(g.ys, y)
}

// askModel fits the GP to all observations and returns the sampled candidate
// with the highest Expected Improvement.
func (g *GPOptimizer) askModel() []float64 {
	n := len(g.xs)

	normed := make([][]float64, n)
	for i, x := range g.xs {
		normed[i] = g.normalize(x)
	}

	yMean := utils.Mean(g.ys)
	centered := make([]float64, n)
	bestY := math.Inf(1)
	for i, y := range g.ys {
		centered[i] = y - yMean
		if y < bestY {
			bestY = y
		}
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := g.rbf(normed[i], normed[j])
			if i == j {
				v += g.noise
			}
			k.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		// Degenerate kernel matrix; fall back to exploration.
		return sampleUniform(g.dims, g.rng)
	}

	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, centered)); err != nil {
		return sampleUniform(g.dims, g.rng)
	}

	var best []float64
	bestEI := math.Inf(-1)
	kstar := mat.NewVecDense(n, nil)
	tmp := mat.NewVecDense(n, nil)

	for c := 0; c < g.nCandidates; c++ {
		candidate := sampleUniform(g.dims, g.rng)
		cn := g.normalize(candidate)

		for i := 0; i < n; i++ {
			kstar.SetVec(i, g.rbf(cn, normed[i]))
		}

		mu := mat.Dot(kstar, alpha) + yMean
		variance := 1.0 + g.noise
		if err := chol.SolveVecTo(tmp, kstar); err == nil {
			variance -= mat.Dot(kstar, tmp)
		}
		if variance < 1e-12 {
			variance = 1e-12
		}
		sigma := math.Sqrt(variance)

		ei := expectedImprovement(mu, sigma, bestY, g.xi)
		if ei > bestEI {
			bestEI = ei
			best = candidate
		}
	}

	if best == nil {
		return sampleUniform(g.dims, g.rng)
	}
	return best
}

// normalize maps a raw point into the unit cube defined by the dimensions.
func (g *GPOptimizer) normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, d := range g.dims {
		span := d.High - d.Low
		if span <= 0 {
			out[i] = 0
			continue
		}
		out[i] = (x[i] - d.Low) / span
	}
	return out
}

// rbf is the squared-exponential kernel on normalized inputs.
func (g *GPOptimizer) rbf(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Exp(-sum / (2 * g.lengthScale * g.lengthScale))
}

// expectedImprovement scores a predicted (mu, sigma) against the best
// observed minimization value.
func expectedImprovement(mu, sigma, bestY, xi float64) float64 {
	if sigma <= 0 {
		return 0
	}
	improvement := bestY - mu - xi
	z := improvement / sigma
	return improvement*utils.NormCDF(z) + sigma*utils.NormPDF(z)
}
