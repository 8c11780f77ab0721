package mes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastGenConfig trims the sampling and solver budgets so facade tests stay
// quick; the defaults are sized for real experiments.
func fastGenConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.ObjectiveWeights = []float64{1}
	cfg.Acquisition.NumFantasies = 2
	cfg.Acquisition.NumMVSamples = 4
	cfg.Acquisition.NumYSamples = 16
	cfg.Acquisition.CandidateSize = 32
	cfg.Optimizer.NumRestarts = 2
	cfg.Optimizer.RawSamples = 16
	cfg.Optimizer.Options.MaxIter = 20

	return cfg
}

func TestGenerateReturnsRequestedBatch(t *testing.T) {
	gp := rampGP(t)
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	cfg := fastGenConfig()
	cfg.Rand = rand.New(rand.NewSource(21))

	res, err := Generate(gp, 3, space, cfg)

	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	require.Len(t, res.Weights, 3)

	for i, p := range res.Points {
		require.Len(t, p, 1)
		assert.GreaterOrEqual(t, p[0], 0.0)
		assert.LessOrEqual(t, p[0], 1.0)
		assert.Equal(t, 1.0, res.Weights[i])
	}
}

func TestNormalizedCostIntercept(t *testing.T) {
	// An unset intercept defaults to 1.0; an explicit zero is a deliberate
	// free fixed cost and must survive normalization.
	var cfg GenConfig

	norm := cfg.normalized()
	require.NotNil(t, norm.Acquisition.CostIntercept)
	assert.Equal(t, 1.0, *norm.Acquisition.CostIntercept)

	cfg.Acquisition.CostIntercept = float64Ptr(0)
	assert.Equal(t, 0.0, *cfg.normalized().Acquisition.CostIntercept)
}

func TestGenerateMultiFidelitySpace(t *testing.T) {
	gp := NewGP(1)
	gp.SetLengthscale(0.3)
	require.NoError(t, gp.Observe([]float64{0.5, 0.5}, 0.2))
	require.NoError(t, gp.Observe([]float64{0.2, 1.0}, 0.6))

	space := SearchSpaceDigest{
		Bounds:           [][2]float64{{0, 1}, {0.1, 1.0}},
		FidelityFeatures: []int{1},
		TargetValues:     map[int]float64{1: 1.0},
	}

	cfg := fastGenConfig()
	cfg.Rand = rand.New(rand.NewSource(22))
	cfg.Acquisition.NumTraceObservations = 1

	res, err := Generate(gp, 2, space, cfg)

	require.NoError(t, err)
	assert.Len(t, res.Points, 2)
}

func TestGenerateRejectsFidelityWeightMismatch(t *testing.T) {
	gp := rampGP(t)

	space := SearchSpaceDigest{
		Bounds:           [][2]float64{{0, 1}},
		FidelityFeatures: []int{0},
		TargetValues:     map[int]float64{0: 1.0},
	}

	cfg := fastGenConfig()
	cfg.Rand = rand.New(rand.NewSource(23))
	cfg.Acquisition.FidelityWeights = map[int]float64{3: 0.5}

	_, err := Generate(gp, 1, space, cfg)

	assert.ErrorIs(t, err, ErrInvalidFidelityConfig)
}

func TestGenerateRejectsConstraintsBeforeSampling(t *testing.T) {
	gp := rampGP(t)
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	cfg := fastGenConfig()
	cfg.Rand = rand.New(rand.NewSource(24))
	cfg.LinearConstraints = &LinearConstraints{A: [][]float64{{1}}, B: []float64{1}}

	_, err := Generate(gp, 1, space, cfg)

	require.ErrorIs(t, err, ErrUnsupportedConfiguration)

	// Validation failed before any sampling: the caller's random source has
	// not been consumed.
	fresh := rand.New(rand.NewSource(24))
	assert.Equal(t, fresh.Float64(), cfg.Rand.Float64())
}

func TestGenerateRejectsOutcomeConstraints(t *testing.T) {
	gp := rampGP(t)
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	cfg := fastGenConfig()
	cfg.OutcomeConstraints = &OutcomeConstraints{W: [][]float64{{1}}, B: []float64{0}}

	_, err := Generate(gp, 1, space, cfg)

	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestGenerateRejectsMultipleObjectives(t *testing.T) {
	gp := NewGP(2)
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	cfg := fastGenConfig()
	cfg.ObjectiveWeights = []float64{1, -1}

	_, err := Generate(gp, 1, space, cfg)

	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestGenerateRejectsEmptyObjectives(t *testing.T) {
	gp := rampGP(t)
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	cfg := fastGenConfig()
	cfg.ObjectiveWeights = nil

	_, err := Generate(gp, 1, space, cfg)

	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestGenerateRejectsFidelityFeatureWithoutTarget(t *testing.T) {
	gp := rampGP(t)

	space := SearchSpaceDigest{
		Bounds:           [][2]float64{{0, 1}},
		FidelityFeatures: []int{0},
	}

	_, err := Generate(gp, 1, space, fastGenConfig())

	assert.ErrorIs(t, err, ErrInvalidFidelityConfig)
}

func TestGenerateSeededRunsAreIdentical(t *testing.T) {
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	run := func() *GenResult {
		cfg := fastGenConfig()
		cfg.Rand = rand.New(rand.NewSource(25))

		res, err := Generate(rampGP(t), 2, space, cfg)
		require.NoError(t, err)

		return res
	}

	assert.Equal(t, run(), run())
}

func TestGenerateDirectionChangesSelection(t *testing.T) {
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	run := func(weight float64) float64 {
		cfg := fastGenConfig()
		cfg.ObjectiveWeights = []float64{weight}
		cfg.Rand = rand.New(rand.NewSource(26))
		cfg.Optimizer.NumRestarts = 4
		cfg.Optimizer.RawSamples = 64

		res, err := Generate(rampGP(t), 1, space, cfg)
		require.NoError(t, err)

		return res.Points[0][0]
	}

	// On the monotone ramp, maximization hunts the max at the high end and
	// minimization the min at the low end.
	assert.Greater(t, run(1), run(-1))
}

func TestGenerateEmitsProgress(t *testing.T) {
	gp := rampGP(t)
	space := SearchSpaceDigest{Bounds: [][2]float64{{0, 1}}}

	progress := make(chan ProgressUpdate, 4)

	cfg := fastGenConfig()
	cfg.Rand = rand.New(rand.NewSource(27))
	cfg.Progress = progress

	_, err := Generate(gp, 2, space, cfg)
	require.NoError(t, err)

	close(progress)

	var updates []ProgressUpdate
	for u := range progress {
		updates = append(updates, u)
	}

	require.Len(t, updates, 2)
	assert.Equal(t, 1, updates[0].PointIndex)
	assert.Equal(t, 2, updates[1].PointIndex)
	assert.Equal(t, 2, updates[0].TotalPoints)
}

func TestRecommendBestPoint(t *testing.T) {
	gp := rampGP(t)

	best, err := RecommendBestPoint(
		gp,
		[][]float64{{0.1}, {0.5}, {0.9}},
		[]float64{1},
		BestPointOptions{},
	)

	require.NoError(t, err)
	assert.Equal(t, []float64{0.9}, best)

	worst, err := RecommendBestPoint(
		gp,
		[][]float64{{0.1}, {0.5}, {0.9}},
		[]float64{-1},
		BestPointOptions{},
	)

	require.NoError(t, err)
	assert.Equal(t, []float64{0.1}, worst)
}

func TestRecommendBestPointProjectsToTargetFidelity(t *testing.T) {
	gp := NewGP(1)
	gp.SetLengthscale(0.5)
	require.NoError(t, gp.Observe([]float64{0.3, 1.0}, 1.0))

	best, err := RecommendBestPoint(
		gp,
		[][]float64{{0.3, 0.4}},
		[]float64{1},
		BestPointOptions{TargetFidelities: map[int]float64{1: 1.0}},
	)

	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 1.0}, best)
}

func TestRecommendBestPointRejectsOutcomeConstraints(t *testing.T) {
	gp := rampGP(t)

	_, err := RecommendBestPoint(
		gp,
		[][]float64{{0.1}},
		[]float64{1},
		BestPointOptions{OutcomeConstraints: &OutcomeConstraints{}},
	)

	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestRecommendBestPointRequiresObservations(t *testing.T) {
	gp := rampGP(t)

	_, err := RecommendBestPoint(gp, nil, []float64{1}, BestPointOptions{})

	assert.ErrorIs(t, err, ErrShapeMismatch)
}
