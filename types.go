package mes

import "math/rand"

//////
// Search space and request types.
//////

// SearchSpaceDigest is an immutable description of the design space the
// candidates are generated in.
//
// Fields:
// - Bounds: per-dimension [lower, upper] box bounds
// - FidelityFeatures: indices of dimensions that control the cost/accuracy
//   trade-off of an evaluation (e.g. training epochs, mesh resolution)
// - TargetValues: dimension index -> target (highest) fidelity value
//
// Invariant: every index in FidelityFeatures must be a valid dimension index
// and must have an entry in TargetValues. Violations are reported as
// ErrInvalidFidelityConfig during validation, before any sampling work.
//
// Usage example:
//
//	space := mes.SearchSpaceDigest{
//	    Bounds:           [][2]float64{{0, 1}, {0, 1}, {0.1, 1.0}},
//	    FidelityFeatures: []int{2},
//	    TargetValues:     map[int]float64{2: 1.0},
//	}
type SearchSpaceDigest struct {
	// Bounds holds one [lower, upper] pair per design dimension.
	Bounds [][2]float64

	// FidelityFeatures lists the dimension indices designated as fidelity
	// parameters. Empty means single-fidelity optimization.
	FidelityFeatures []int

	// TargetValues maps dimension indices to the fidelity value the true
	// objective is defined at. Entries for non-fidelity dimensions are
	// ignored; only indices listed in FidelityFeatures are extracted.
	TargetValues map[int]float64
}

// Dim returns the number of design dimensions described by the digest.
func (s SearchSpaceDigest) Dim() int { return len(s.Bounds) }

// LinearConstraints represents inequality constraints A x <= b on the design
// space. The type exists for interface stability only: max-value entropy
// search does not support constraints, and any non-nil value makes Generate
// fail with ErrUnsupportedConfiguration before sampling.
type LinearConstraints struct {
	A [][]float64
	B []float64
}

// OutcomeConstraints represents constraints W y <= b on model outcomes.
// Reserved for forward compatibility; any non-nil value is rejected with
// ErrUnsupportedConfiguration.
type OutcomeConstraints struct {
	W [][]float64
	B []float64
}

// RoundingFunc post-processes a single continuous candidate after local
// optimization, projecting it onto the feasible or discretized subspace
// (e.g. snapping integer dimensions). It must return a point of the same
// dimensionality. The rounded point is what becomes a pending observation
// for subsequent points in the batch.
type RoundingFunc func(point []float64) []float64

//////
// Configuration.
//////

// AcquisitionOptions controls the construction of the max-value entropy
// search acquisition function. Unknown knobs do not exist: every recognized
// option is an explicit field with a documented default, applied by
// DefaultGenConfig and by the normalization pass inside Generate.
type AcquisitionOptions struct {
	// NumFantasies is the number of fantasy models used to average over the
	// epistemic uncertainty induced by pending observations. Default: 16.
	NumFantasies int

	// NumMVSamples is the number of Monte Carlo samples of the objective's
	// maximum value, drawn once at construction time over the candidate set.
	// Default: 10.
	NumMVSamples int

	// NumYSamples is the number of inner Monte Carlo outcome samples used to
	// estimate the conditional entropy term per max-value sample.
	// Default: 128.
	NumYSamples int

	// CandidateSize is the size of the discrete uniform candidate set over
	// which the max-value distribution is approximated. Default: 1000.
	CandidateSize int

	// NumTraceObservations is the number of auxiliary lower-fidelity trace
	// evaluations bundled with each candidate for variance reduction. Only
	// used on the multi-fidelity path. Default: 0 (no trace augmentation).
	NumTraceObservations int

	// FidelityWeights maps fidelity dimension indices to non-negative cost
	// weights for the affine cost model. Nil defaults every fidelity feature
	// to weight 1.0. A non-nil map whose key set differs from the fidelity
	// feature set is an ErrInvalidFidelityConfig.
	FidelityWeights map[int]float64

	// CostIntercept is the fixed cost of the affine cost model, paid by any
	// evaluation regardless of fidelity. Nil means the default of 1.0; a
	// pointer to zero selects a genuinely free fixed cost.
	CostIntercept *float64

	// SubsetModel restricts the surrogate to the single outcome relevant to
	// the optimization before building the acquisition function.
	// DefaultGenConfig enables it; set to false to pass the model through
	// unchanged.
	SubsetModel bool
}

// SolverOptions configures the bounded local solver used to refine restart
// candidates.
type SolverOptions struct {
	// BatchLimit caps how many raw samples are scored per evaluation chunk.
	// Default: 8.
	BatchLimit int

	// MaxIter caps the local solver's iteration count. Hitting the cap is
	// not an error; the best point found so far is kept. Default: 200.
	MaxIter int

	// Method selects the local solver. "L-BFGS-B" (quasi-Newton with box
	// constraints, the default) and "Nelder-Mead" are recognized; anything
	// else is an ErrUnsupportedConfiguration.
	Method string

	// Nonnegative clamps every lower bound at zero before optimization.
	// Default: false.
	Nonnegative bool
}

// OptimizerOptions controls the multi-restart acquisition optimization.
type OptimizerOptions struct {
	// NumRestarts is the number of best-scoring raw samples promoted to
	// local-solver starting points. Default: 40.
	NumRestarts int

	// RawSamples is the number of uniform random initialization samples
	// scored per generated point. Default: 1024.
	RawSamples int

	// Options holds the inner numerical solver settings.
	Options SolverOptions
}

// GenConfig carries everything about a generation request except the search
// space itself: the objective, reserved constraint slots, pending points,
// fixed features, post-processing, acquisition and optimizer options, and
// the random source.
//
// Start from DefaultGenConfig and override what you need:
//
//	cfg := mes.DefaultGenConfig()
//	cfg.ObjectiveWeights = []float64{1} // maximize the single outcome
//	cfg.Optimizer.NumRestarts = 8
type GenConfig struct {
	// ObjectiveWeights holds one scalar per model outcome; the sign encodes
	// the optimization direction (+1 maximize, -1 minimize). This package
	// requires exactly one outcome: any longer vector is rejected with
	// ErrUnsupportedConfiguration, an empty one with ErrShapeMismatch.
	ObjectiveWeights []float64

	// LinearConstraints must be nil. See LinearConstraints.
	LinearConstraints *LinearConstraints

	// OutcomeConstraints must be nil. See OutcomeConstraints.
	OutcomeConstraints *OutcomeConstraints

	// PendingPoints are candidates already generated but not yet evaluated.
	// The acquisition function conditions on fantasized outcomes at these
	// points, and sequentially generated batch members are appended to them.
	PendingPoints [][]float64

	// FixedFeatures pins dimension indices to fixed values. Fixed dimensions
	// are excluded from local optimization and set exactly on every
	// generated point.
	FixedFeatures map[int]float64

	// Rounding, if non-nil, is applied to each candidate after local
	// optimization and before it becomes a pending point.
	Rounding RoundingFunc

	// Acquisition holds the acquisition-function construction options.
	Acquisition AcquisitionOptions

	// Optimizer holds the multi-restart optimization options.
	Optimizer OptimizerOptions

	// Rand is the random source for candidate-set sampling, max-value
	// sampling, fantasy draws, and restart initialization. Nil means a
	// time-seeded source; supply a seeded *rand.Rand for reproducible runs.
	Rand *rand.Rand

	// Progress, if non-nil, receives one update per generated point. Sends
	// are non-blocking: updates are dropped when the channel is full.
	Progress chan<- ProgressUpdate
}

// ProgressUpdate reports the state of a generation run after each
// sequentially selected point.
type ProgressUpdate struct {
	// Phase is "optimize" while batch points are being selected.
	Phase string

	// PointIndex is the 1-based index of the point just selected.
	PointIndex int

	// TotalPoints is the requested batch size.
	TotalPoints int

	// Candidate is the selected (rounded) point.
	Candidate []float64

	// AcquisitionValue is the acquisition score of the selected point.
	AcquisitionValue float64
}

//////
// Results.
//////

// GenResult is the output of Generate: an ordered batch of candidate points
// and a parallel weight vector. All weights are 1.0; they mark unweighted
// batch members, not a probability distribution.
type GenResult struct {
	Points  [][]float64
	Weights []float64
}
