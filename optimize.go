package mes

import (
	"fmt"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

//////
// Acquisition optimization.
//////

// optimizeAcqf maximizes the acquisition function over the bounded search
// space and returns q candidate points with their acquisition values.
//
// Algorithm, per point: draw RawSamples uniform random candidates inside the
// bounds, score them (BatchLimit-wide, concurrently), promote the best
// NumRestarts to starting points for the bounded local solver, run each to
// convergence under the MaxIter cap, and keep the best converged solution.
//
// Batch construction is sequential greedy: after a point is selected it is
// rounded, appended to the pending set, and the acquisition function is
// re-conditioned before the next point is optimized. Point k therefore
// always sees points 1..k-1 (plus any caller-supplied pending points) as
// fixed pending observations; this ordering is part of the observable
// contract. Local-solver non-convergence is not an error; the best point
// found within the iteration cap is used.
func optimizeAcqf(
	acq AcquisitionFunction,
	bounds [][2]float64,
	q int,
	opts OptimizerOptions,
	fixed map[int]float64,
	rounding RoundingFunc,
	basePending [][]float64,
	rng *rand.Rand,
	progress chan<- ProgressUpdate,
) ([][]float64, []float64, error) {
	method, err := localMethod(opts.Options.Method)
	if err != nil {
		return nil, nil, err
	}

	eb := effectiveBounds(bounds, opts.Options.Nonnegative)

	// Dimensions pinned by fixed features or collapsed bounds are excluded
	// from local optimization.
	var freeDims []int
	for d := range eb {
		if _, pinned := fixed[d]; pinned || eb[d][1] <= eb[d][0] {
			continue
		}

		freeDims = append(freeDims, d)
	}

	sampler := NewCandidateSampler(rng)

	pending := make([][]float64, 0, len(basePending)+q)
	for _, p := range basePending {
		pending = append(pending, copyPoint(p))
	}

	numRestarts := opts.NumRestarts
	if numRestarts > opts.RawSamples {
		numRestarts = opts.RawSamples
	}

	points := make([][]float64, 0, q)
	values := make([]float64, 0, q)

	for i := 0; i < q; i++ {
		raws := sampler.Sample(eb, opts.RawSamples)
		for _, r := range raws {
			applyFixed(r, fixed)
		}

		scores := scoreAll(acq, raws, opts.Options.BatchLimit)

		// Ascending argsort; the top restarts are at the tail.
		order := make([]int, len(scores))
		floats.Argsort(scores, order)

		best := raws[order[len(order)-1]]
		bestVal := scores[len(scores)-1]

		for r := 0; r < numRestarts; r++ {
			start := raws[order[len(order)-1-r]]

			x, val := refineLocally(acq, start, eb, freeDims, fixed, method, opts.Options.MaxIter)
			if val > bestVal {
				best, bestVal = x, val
			}
		}

		best = copyPoint(best)
		for _, d := range freeDims {
			best[d] = clamp(best[d], eb[d][0], eb[d][1])
		}

		if rounding != nil {
			best = rounding(best)
		}

		applyFixed(best, fixed)

		points = append(points, best)
		values = append(values, bestVal)

		pending = append(pending, best)
		acq.SetPendingPoints(pending)

		if progress != nil {
			select {
			case progress <- ProgressUpdate{
				Phase:            "optimize",
				PointIndex:       i + 1,
				TotalPoints:      q,
				Candidate:        copyPoint(best),
				AcquisitionValue: bestVal,
			}:
			default:
				// Skip update if the channel is full.
			}
		}
	}

	return points, values, nil
}

// localMethod maps the solver method name onto a gonum optimizer. "L-BFGS-B"
// runs LBFGS under a bound-preserving reparameterization, which yields the
// quasi-Newton box-constrained behavior the name stands for.
func localMethod(name string) (optimize.Method, error) {
	switch name {
	case "", "L-BFGS-B":
		return &optimize.LBFGS{}, nil
	case "Nelder-Mead":
		return &optimize.NelderMead{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver method %q", ErrUnsupportedConfiguration, name)
	}
}

// effectiveBounds copies the bounds, clamping lower bounds at zero when
// nonnegativity is requested.
func effectiveBounds(bounds [][2]float64, nonnegative bool) [][2]float64 {
	eb := make([][2]float64, len(bounds))
	copy(eb, bounds)

	if nonnegative {
		for d := range eb {
			if eb[d][0] < 0 {
				eb[d][0] = 0
			}

			if eb[d][1] < eb[d][0] {
				eb[d][1] = eb[d][0]
			}
		}
	}

	return eb
}

// scoreAll evaluates the acquisition function at every point, running at
// most batchLimit scoring goroutines at a time. Scoring is read-only on the
// acquisition state, so the evaluations are independent.
func scoreAll(acq AcquisitionFunction, points [][]float64, batchLimit int) []float64 {
	if batchLimit < 1 {
		batchLimit = 1
	}

	scores := make([]float64, len(points))
	sem := make(chan struct{}, batchLimit)

	var wg sync.WaitGroup
	for j := range points {
		wg.Add(1)
		sem <- struct{}{}

		go func(j int) {
			defer wg.Done()
			defer func() { <-sem }()

			scores[j] = acq.Score([][]float64{points[j]})
		}(j)
	}

	wg.Wait()

	return scores
}

// refineLocally runs the bounded local solver from one starting point and
// returns the refined point with its acquisition value. The box constraint
// is enforced by optimizing in an unconstrained space z with
// x = lb + (ub-lb)*sigmoid(z) per free dimension, so every iterate stays
// strictly inside the bounds. Solver failure or an exhausted iteration cap
// falls back to the best iterate available.
func refineLocally(
	acq AcquisitionFunction,
	start []float64,
	bounds [][2]float64,
	freeDims []int,
	fixed map[int]float64,
	method optimize.Method,
	maxIter int,
) ([]float64, float64) {
	fromZ := func(z []float64) []float64 {
		x := copyPoint(start)
		for k, d := range freeDims {
			lo, hi := bounds[d][0], bounds[d][1]
			x[d] = lo + (hi-lo)*sigmoid(z[k])
		}

		return applyFixed(x, fixed)
	}

	if len(freeDims) == 0 {
		x := applyFixed(copyPoint(start), fixed)

		return x, acq.Score([][]float64{x})
	}

	z0 := make([]float64, len(freeDims))
	for k, d := range freeDims {
		lo, hi := bounds[d][0], bounds[d][1]
		z0[k] = logit((start[d] - lo) / (hi - lo))
	}

	obj := func(z []float64) float64 {
		return -acq.Score([][]float64{fromZ(z)})
	}

	problem := optimize.Problem{
		Func: obj,
		// The quasi-Newton method requires a gradient; the acquisition
		// surface has no analytic one, so it is estimated numerically.
		Grad: func(grad, z []float64) {
			fd.Gradient(grad, obj, z, nil)
		},
	}

	settings := &optimize.Settings{MajorIterations: maxIter}

	result, err := optimize.Minimize(problem, z0, settings, method)
	if err != nil || result == nil {
		x := applyFixed(copyPoint(start), fixed)

		return x, acq.Score([][]float64{x})
	}

	x := fromZ(result.X)

	return x, -result.F
}
