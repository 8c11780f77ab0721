package mes

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

//////
// Surrogate model interface.
//////

// SurrogateModel is the probabilistic model the acquisition function is
// built on. It exposes a posterior predictive distribution over one or more
// outcomes, conditioned on previously observed (X, Y) pairs.
//
// The generation pipeline only ever reads from a model: subsetting and
// fantasy conditioning construct new views, the original is never mutated.
//
// Implementations must be safe for concurrent reads. The package ships GP,
// an exact Gaussian-process regressor; callers with their own surrogate
// (random forest, deep ensemble, ...) implement this interface instead.
type SurrogateModel interface {
	// NumOutcomes returns the number of modeled outcomes.
	NumOutcomes() int

	// Posterior returns the marginal posterior mean and variance of the
	// given outcome at each of the supplied points. Both returned slices
	// have len(points) entries. Variances are strictly positive.
	Posterior(points [][]float64, outcome int) (mean, variance []float64)

	// ConditionedOn returns a new model view additionally conditioned on
	// the given (point, value) observations of one outcome, used to build
	// fantasy models over pending points. The receiver is unchanged.
	ConditionedOn(points [][]float64, values []float64, outcome int) SurrogateModel
}

//////
// Gaussian process implementation.
//////

// GP is a thread-safe exact Gaussian-process regressor with an RBF kernel,
// supporting multiple outcomes over a shared set of training inputs. The
// train covariance is Cholesky-factorized once per training-set version and
// reused across posterior queries.
//
// The zero value is not usable; construct with NewGP.
type GP struct {
	// mu protects all fields below.
	mu sync.RWMutex

	// x holds the training inputs, shared by all outcomes.
	x [][]float64

	// y holds one observation row per outcome, each parallel to x.
	y [][]float64

	// lengthscale is the RBF kernel width. Larger values give smoother
	// interpolation.
	lengthscale float64

	// noise is the observation noise variance added to the kernel diagonal.
	// It doubles as numerical jitter for the factorization.
	noise float64

	// chol caches the factorization of the train covariance; nil when the
	// training set changed since the last factorization.
	chol *mat.Cholesky
}

// NewGP creates a Gaussian process with the given number of outcomes,
// lengthscale 1.0 (suitable for roughly unit-scaled inputs) and noise
// variance 1e-6.
func NewGP(numOutcomes int) *GP {
	if numOutcomes < 1 {
		numOutcomes = 1
	}

	return &GP{
		y:           make([][]float64, numOutcomes),
		lengthscale: 1.0,
		noise:       1e-6,
	}
}

// NumOutcomes returns the number of modeled outcomes.
func (gp *GP) NumOutcomes() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return len(gp.y)
}

// SetLengthscale updates the RBF kernel width and invalidates the cached
// factorization. The value must be positive.
func (gp *GP) SetLengthscale(l float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.lengthscale = l
	gp.chol = nil
}

// SetNoise updates the observation noise variance and invalidates the
// cached factorization. The value must be positive.
func (gp *GP) SetNoise(v float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.noise = v
	gp.chol = nil
}

// Observe adds a training observation: one value per outcome at point x.
// The input is copied, so the caller may reuse the slice.
func (gp *GP) Observe(x []float64, values ...float64) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if len(values) != len(gp.y) {
		return fmt.Errorf("%w: got %d observation values for %d outcomes",
			ErrShapeMismatch, len(values), len(gp.y))
	}

	gp.x = append(gp.x, copyPoint(x))

	for o := range gp.y {
		gp.y[o] = append(gp.y[o], values[o])
	}

	gp.chol = nil

	return nil
}

// kernel is the RBF (Gaussian) covariance between two points:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * lengthscale^2))
//
// Caller must hold at least a read lock.
func (gp *GP) kernel(x1, x2 []float64) float64 {
	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * gp.lengthscale * gp.lengthscale))
}

// factorize builds and caches the Cholesky factorization of the train
// covariance K + noise*I. Caller must hold the write lock. If the matrix is
// not positive definite at the current noise level, jitter is increased
// until the factorization succeeds.
func (gp *GP) factorize() *mat.Cholesky {
	if gp.chol != nil {
		return gp.chol
	}

	n := len(gp.x)
	k := mat.NewSymDense(n, nil)

	jitter := gp.noise
	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := gp.kernel(gp.x[i], gp.x[j])
				if i == j {
					v += jitter
				}

				k.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(k) {
			gp.chol = &chol

			return gp.chol
		}

		jitter *= 10
	}

	// Unreachable for any realistic jitter; keep the last attempt anyway.
	var chol mat.Cholesky
	chol.Factorize(k)
	gp.chol = &chol

	return gp.chol
}

// Posterior returns the marginal posterior mean and variance of one outcome
// at each point. With no observations it returns the prior: mean 0,
// variance 1 (unit signal variance).
//
// Complexity: one O(n^3) factorization per training-set version, then
// O(n^2) per queried point, where n is the number of observations.
func (gp *GP) Posterior(points [][]float64, outcome int) (mean, variance []float64) {
	mean = make([]float64, len(points))
	variance = make([]float64, len(points))

	gp.mu.Lock()
	defer gp.mu.Unlock()

	n := len(gp.x)
	if n == 0 {
		for i := range points {
			variance[i] = 1.0
		}

		return mean, variance
	}

	chol := gp.factorize()

	// alpha = K^{-1} y for the requested outcome.
	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, mat.NewVecDense(n, gp.y[outcome])); err != nil {
		// Factorization succeeded, so the solve cannot fail; fall back to
		// the prior rather than panic.
		for i := range points {
			variance[i] = 1.0
		}

		return mean, variance
	}

	kvec := make([]float64, n)

	for i, p := range points {
		for j := range gp.x {
			kvec[j] = gp.kernel(p, gp.x[j])
		}

		kv := mat.NewVecDense(n, kvec)
		mean[i] = mat.Dot(kv, &alpha)

		var v mat.VecDense
		if err := chol.SolveVecTo(&v, kv); err == nil {
			variance[i] = 1.0 + gp.noise - mat.Dot(kv, &v)
		} else {
			variance[i] = 1.0
		}

		// Guard against round-off driving the variance non-positive.
		if variance[i] < 1e-12 {
			variance[i] = 1e-12
		}
	}

	return mean, variance
}

// ConditionedOn returns a new GP additionally conditioned on the given
// observations of one outcome. Other outcomes are padded with their current
// posterior mean at the new points so all rows stay parallel. The receiver
// is unchanged.
func (gp *GP) ConditionedOn(points [][]float64, values []float64, outcome int) SurrogateModel {
	// Pad the remaining outcomes before taking the write-side copy so the
	// posterior reflects only pre-existing observations.
	padded := make(map[int][]float64)

	gp.mu.RLock()
	numOutcomes := len(gp.y)
	gp.mu.RUnlock()

	for o := 0; o < numOutcomes; o++ {
		if o == outcome {
			continue
		}

		m, _ := gp.Posterior(points, o)
		padded[o] = m
	}

	gp.mu.RLock()
	defer gp.mu.RUnlock()

	out := &GP{
		x:           make([][]float64, 0, len(gp.x)+len(points)),
		y:           make([][]float64, numOutcomes),
		lengthscale: gp.lengthscale,
		noise:       gp.noise,
	}

	out.x = append(out.x, gp.x...)
	for _, p := range points {
		out.x = append(out.x, copyPoint(p))
	}

	for o := 0; o < numOutcomes; o++ {
		row := make([]float64, 0, len(gp.y[o])+len(points))
		row = append(row, gp.y[o]...)

		if o == outcome {
			row = append(row, values...)
		} else {
			row = append(row, padded[o]...)
		}

		out.y[o] = row
	}

	return out
}

//////
// Model subsetting.
//////

// subsetView restricts a base model to a subset of its outcomes.
type subsetView struct {
	base SurrogateModel
	idx  []int
}

func (v *subsetView) NumOutcomes() int { return len(v.idx) }

func (v *subsetView) Posterior(points [][]float64, outcome int) ([]float64, []float64) {
	return v.base.Posterior(points, v.idx[outcome])
}

func (v *subsetView) ConditionedOn(points [][]float64, values []float64, outcome int) SurrogateModel {
	return &subsetView{
		base: v.base.ConditionedOn(points, values, v.idx[outcome]),
		idx:  v.idx,
	}
}

// subsetModel restricts a possibly multi-outcome model to the outcomes with
// nonzero objective weight and returns the correspondingly reduced weight
// vector. When every outcome carries weight, or nothing would remain, the
// model and weights pass through unchanged. The original model is never
// mutated; restriction produces a read-only view.
//
// Only valid without outcome constraints, which the caller has already
// rejected by the time this runs.
func subsetModel(model SurrogateModel, weights []float64) (SurrogateModel, []float64, error) {
	if len(weights) != model.NumOutcomes() {
		return nil, nil, fmt.Errorf(
			"%w: %d objective weights for a model with %d outcomes",
			ErrShapeMismatch, len(weights), model.NumOutcomes(),
		)
	}

	idx := make([]int, 0, len(weights))
	for o, w := range weights {
		if w != 0 {
			idx = append(idx, o)
		}
	}

	if len(idx) == 0 || len(idx) == len(weights) {
		return model, weights, nil
	}

	reduced := make([]float64, len(idx))
	for i, o := range idx {
		reduced[i] = weights[o]
	}

	return &subsetView{base: model, idx: idx}, reduced, nil
}
