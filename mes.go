package mes

import (
	"fmt"
	"math/rand"
	"time"
)

//////
// Exported functionalities.
//////

// DefaultGenConfig returns a generation configuration with the documented
// defaults: 16 fantasies, 10 max-value samples, 128 outcome samples, a
// 1000-point candidate set, no trace observations, cost intercept 1.0,
// model subsetting enabled, 40 restarts, 1024 raw samples, batch limit 8,
// 200 solver iterations, the "L-BFGS-B" method and no non-negativity
// constraint. The objective weights are left empty and must be set by the
// caller.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Acquisition: AcquisitionOptions{
			NumFantasies:  16,
			NumMVSamples:  10,
			NumYSamples:   128,
			CandidateSize: 1000,
			CostIntercept: float64Ptr(1.0),
			SubsetModel:   true,
		},
		Optimizer: OptimizerOptions{
			NumRestarts: 40,
			RawSamples:  1024,
			Options: SolverOptions{
				BatchLimit: 8,
				MaxIter:    200,
				Method:     "L-BFGS-B",
			},
		},
	}
}

// normalized returns a copy of the config with zero-valued numeric options
// replaced by their defaults, so a partially filled config behaves like
// DefaultGenConfig with overrides.
func (c GenConfig) normalized() GenConfig {
	def := DefaultGenConfig()

	if c.Acquisition.NumFantasies <= 0 {
		c.Acquisition.NumFantasies = def.Acquisition.NumFantasies
	}

	if c.Acquisition.NumMVSamples <= 0 {
		c.Acquisition.NumMVSamples = def.Acquisition.NumMVSamples
	}

	if c.Acquisition.NumYSamples <= 0 {
		c.Acquisition.NumYSamples = def.Acquisition.NumYSamples
	}

	if c.Acquisition.CandidateSize <= 0 {
		c.Acquisition.CandidateSize = def.Acquisition.CandidateSize
	}

	if c.Acquisition.CostIntercept == nil {
		c.Acquisition.CostIntercept = def.Acquisition.CostIntercept
	}

	if c.Optimizer.NumRestarts <= 0 {
		c.Optimizer.NumRestarts = def.Optimizer.NumRestarts
	}

	if c.Optimizer.RawSamples <= 0 {
		c.Optimizer.RawSamples = def.Optimizer.RawSamples
	}

	if c.Optimizer.Options.BatchLimit <= 0 {
		c.Optimizer.Options.BatchLimit = def.Optimizer.Options.BatchLimit
	}

	if c.Optimizer.Options.MaxIter <= 0 {
		c.Optimizer.Options.MaxIter = def.Optimizer.Options.MaxIter
	}

	if c.Optimizer.Options.Method == "" {
		c.Optimizer.Options.Method = def.Optimizer.Options.Method
	}

	return c
}

// Generate selects the next n points to evaluate using max-value entropy
// search over the given surrogate model and search space.
//
// The call runs three sequential phases:
//
//  1. VALIDATE: reject constraints and multi-outcome objectives, check all
//     vector shapes and the fidelity invariants. Validation failures return
//     before any sampling or model work.
//  2. BUILD: optionally subset the model to the relevant outcome, sample
//     the discrete candidate set, extract the target fidelities of the
//     declared fidelity features, and construct the acquisition function:
//     standard MES without fidelity features, cost-aware multi-fidelity MES
//     with them.
//  3. OPTIMIZE: run the multi-restart sequential optimizer and package the
//     batch with unit weights.
//
// The model is only read; candidate set, acquisition function and result
// are created and discarded within the call, with fresh randomness each
// time. A call either fully succeeds with n points or returns an error;
// there is no partial result.
//
// Usage example:
//
//	gp := mes.NewGP(1)
//	for _, obs := range observations {
//	    gp.Observe(obs.X, obs.Y)
//	}
//
//	cfg := mes.DefaultGenConfig()
//	cfg.ObjectiveWeights = []float64{1}
//	cfg.Rand = rand.New(rand.NewSource(7))
//
//	res, err := mes.Generate(gp, 3, space, cfg)
func Generate(model SurrogateModel, n int, space SearchSpaceDigest, cfg GenConfig) (*GenResult, error) {
	cfg = cfg.normalized()

	// Phase 1: validation. Invalid configurations fail fast, before any
	// model subsetting or sampling work is done.
	if err := validateRequest(model, n, space, cfg); err != nil {
		return nil, err
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Phase 2: build the acquisition function.
	m := model
	weights := cfg.ObjectiveWeights

	if cfg.Acquisition.SubsetModel {
		var err error
		if m, weights, err = subsetModel(m, weights); err != nil {
			return nil, err
		}
	}

	candidateSet := NewCandidateSampler(rng).Sample(space.Bounds, cfg.Acquisition.CandidateSize)

	// Only features explicitly declared as fidelity features participate;
	// target values for other dimensions are ignored.
	targetFidelities := make(map[int]float64, len(space.FidelityFeatures))
	for _, d := range space.FidelityFeatures {
		targetFidelities[d] = space.TargetValues[d]
	}

	acq, err := instantiateMES(acquisitionSpec{
		model:                m,
		candidateSet:         candidateSet,
		numFantasies:         cfg.Acquisition.NumFantasies,
		numMVSamples:         cfg.Acquisition.NumMVSamples,
		numYSamples:          cfg.Acquisition.NumYSamples,
		numTraceObservations: cfg.Acquisition.NumTraceObservations,
		pending:              cfg.PendingPoints,
		maximize:             weights[0] > 0,
		targetFidelities:     targetFidelities,
		fidelityWeights:      cfg.Acquisition.FidelityWeights,
		costIntercept:        *cfg.Acquisition.CostIntercept,
		rng:                  rng,
	})
	if err != nil {
		return nil, err
	}

	// Phase 3: optimize and package with unit weights.
	points, _, err := optimizeAcqf(
		acq, space.Bounds, n, cfg.Optimizer,
		cfg.FixedFeatures, cfg.Rounding, cfg.PendingPoints, rng, cfg.Progress,
	)
	if err != nil {
		return nil, err
	}

	unit := make([]float64, n)
	for i := range unit {
		unit[i] = 1.0
	}

	return &GenResult{Points: points, Weights: unit}, nil
}

// validateRequest enforces the Generate preconditions.
func validateRequest(model SurrogateModel, n int, space SearchSpaceDigest, cfg GenConfig) error {
	if n < 1 {
		return fmt.Errorf("%w: requested batch size %d", ErrShapeMismatch, n)
	}

	if space.Dim() == 0 {
		return fmt.Errorf("%w: search space has no dimensions", ErrShapeMismatch)
	}

	if cfg.LinearConstraints != nil || cfg.OutcomeConstraints != nil {
		return fmt.Errorf(
			"%w: constraints are not supported by max-value entropy search",
			ErrUnsupportedConfiguration,
		)
	}

	if len(cfg.ObjectiveWeights) == 0 {
		return fmt.Errorf("%w: objective weights are empty", ErrShapeMismatch)
	}

	if len(cfg.ObjectiveWeights) > 1 {
		return fmt.Errorf(
			"%w: %d objective outcomes requested, max-value entropy search supports exactly one",
			ErrUnsupportedConfiguration, len(cfg.ObjectiveWeights),
		)
	}

	if len(cfg.ObjectiveWeights) != model.NumOutcomes() {
		return fmt.Errorf(
			"%w: %d objective weights for a model with %d outcomes",
			ErrShapeMismatch, len(cfg.ObjectiveWeights), model.NumOutcomes(),
		)
	}

	for _, d := range space.FidelityFeatures {
		if d < 0 || d >= space.Dim() {
			return fmt.Errorf(
				"%w: fidelity feature index %d outside %d dimensions",
				ErrInvalidFidelityConfig, d, space.Dim(),
			)
		}

		if _, ok := space.TargetValues[d]; !ok {
			return fmt.Errorf(
				"%w: fidelity feature %d has no target value",
				ErrInvalidFidelityConfig, d,
			)
		}
	}

	for _, p := range cfg.PendingPoints {
		if len(p) != space.Dim() {
			return fmt.Errorf(
				"%w: pending point of dimension %d in a %d-dimensional space",
				ErrShapeMismatch, len(p), space.Dim(),
			)
		}
	}

	for d := range cfg.FixedFeatures {
		if d < 0 || d >= space.Dim() {
			return fmt.Errorf(
				"%w: fixed feature index %d outside %d dimensions",
				ErrShapeMismatch, d, space.Dim(),
			)
		}
	}

	return nil
}

//////
// Best-point recommendation.
//////

// BestPointOptions configures RecommendBestPoint.
type BestPointOptions struct {
	// FixedFeatures pins dimensions of the recommendation to fixed values.
	FixedFeatures map[int]float64

	// TargetFidelities projects observed points to the target fidelity
	// before ranking, so the recommendation is stated at the fidelity the
	// objective is defined at.
	TargetFidelities map[int]float64

	// OutcomeConstraints must be nil; reserved for interface stability.
	OutcomeConstraints *OutcomeConstraints
}

// RecommendBestPoint recommends the best point among the observed ones
// under the posterior mean of the model. With constraints absent, the only
// supported mode, this degrades to a pure posterior-mean acquisition:
// every observed point is projected to the target fidelity, pinned to the
// fixed features, scored by the weighted posterior mean, and the argmax is
// returned.
//
// This is an auxiliary path for the surrounding framework, not part of
// Generate.
func RecommendBestPoint(
	model SurrogateModel,
	observed [][]float64,
	objectiveWeights []float64,
	opts BestPointOptions,
) ([]float64, error) {
	if opts.OutcomeConstraints != nil {
		return nil, fmt.Errorf(
			"%w: outcome constraints are not supported by best-point recommendation",
			ErrUnsupportedConfiguration,
		)
	}

	if len(objectiveWeights) != 1 {
		return nil, fmt.Errorf(
			"%w: best-point recommendation requires exactly one objective weight, got %d",
			ErrUnsupportedConfiguration, len(objectiveWeights),
		)
	}

	if len(observed) == 0 {
		return nil, fmt.Errorf("%w: no observed points to recommend from", ErrShapeMismatch)
	}

	projector := FidelityProjector{Targets: opts.TargetFidelities}

	candidates := make([][]float64, len(observed))
	for i, p := range observed {
		candidates[i] = applyFixed(projector.Project(p), opts.FixedFeatures)
	}

	mean, _ := model.Posterior(candidates, 0)

	bestIdx := 0
	bestVal := objectiveWeights[0] * mean[0]

	for i := 1; i < len(candidates); i++ {
		if v := objectiveWeights[0] * mean[i]; v > bestVal {
			bestIdx, bestVal = i, v
		}
	}

	return candidates[bestIdx], nil
}
