// Package mes generates the next batch of experiment points for a black-box
// optimization loop using max-value entropy search (MES), an
// information-theoretic acquisition criterion built on a probabilistic
// surrogate model, with optional cost-aware multi-fidelity optimization.
//
// # Features
//
// The package includes the following key features:
//
//   - Max-Value Entropy Search: candidates are scored by the expected
//     reduction in entropy of the distribution of the objective's global
//     maximum value
//   - Multi-Fidelity Optimization: an affine fidelity cost model and
//     inverse-cost-weighted utility trade evaluation cost against
//     information gain, with target-fidelity projection and optional trace
//     observations for variance reduction
//   - Sequential Batch Construction: batches are built one point at a time,
//     each conditioned on previously chosen pending points through fresh
//     fantasy models
//   - Multi-Restart Optimization: raw random initialization samples are
//     refined by a bounded quasi-Newton local solver from the best-scoring
//     restarts
//   - Pluggable Surrogate: any model implementing the SurrogateModel
//     interface works; an exact Gaussian-process regressor (GP) ships with
//     the package
//   - Explicit Configuration: every option is a typed struct field with a
//     documented default; there are no free-form option bags
//   - Reproducibility: all randomness flows through one caller-suppliable
//     *rand.Rand
//
// # Basic usage
//
// Fit the surrogate on the observations made so far, then ask for the next
// batch:
//
//	gp := mes.NewGP(1)
//	for _, obs := range observations {
//	    if err := gp.Observe(obs.X, obs.Y); err != nil {
//	        return err
//	    }
//	}
//
//	space := mes.SearchSpaceDigest{
//	    Bounds: [][2]float64{{0, 1}, {0, 1}},
//	}
//
//	cfg := mes.DefaultGenConfig()
//	cfg.ObjectiveWeights = []float64{1} // +1 maximize, -1 minimize
//
//	res, err := mes.Generate(gp, 3, space, cfg)
//	if err != nil {
//	    return err
//	}
//	// res.Points holds 3 points, res.Weights is all ones.
//
// # Multi-fidelity usage
//
// Declare fidelity features in the search space and MES automatically
// switches to the cost-aware path:
//
//	space := mes.SearchSpaceDigest{
//	    Bounds:           [][2]float64{{0, 1}, {0, 1}, {0.1, 1.0}},
//	    FidelityFeatures: []int{2},
//	    TargetValues:     map[int]float64{2: 1.0},
//	}
//
//	cfg := mes.DefaultGenConfig()
//	cfg.ObjectiveWeights = []float64{1}
//	cfg.Acquisition.FidelityWeights = map[int]float64{2: 0.5}
//	cfg.Acquisition.NumTraceObservations = 2
//
// # Scope
//
// Outcome and linear constraints, multi-objective scalarization, and
// persistence are out of scope: constrained or multi-outcome requests fail
// with ErrUnsupportedConfiguration. A call either fully succeeds with n
// points or returns an error; local-solver non-convergence is not an error.
package mes
