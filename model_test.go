package mes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPInterpolatesObservations(t *testing.T) {
	gp := NewGP(1)
	gp.SetNoise(1e-8)

	require.NoError(t, gp.Observe([]float64{0.2}, 1.0))
	require.NoError(t, gp.Observe([]float64{0.8}, -1.0))

	mean, variance := gp.Posterior([][]float64{{0.2}, {0.8}}, 0)

	assert.InDelta(t, 1.0, mean[0], 1e-3)
	assert.InDelta(t, -1.0, mean[1], 1e-3)

	// Near-zero predictive variance on top of the data.
	assert.Less(t, variance[0], 1e-3)
	assert.Less(t, variance[1], 1e-3)
}

func TestGPVarianceGrowsAwayFromData(t *testing.T) {
	gp := NewGP(1)
	require.NoError(t, gp.Observe([]float64{0.0}, 0.5))

	_, variance := gp.Posterior([][]float64{{0.1}, {5.0}}, 0)

	assert.Less(t, variance[0], variance[1])

	// Far from all data the posterior reverts to the unit-signal prior.
	assert.InDelta(t, 1.0, variance[1], 1e-3)
}

func TestGPPriorWithoutObservations(t *testing.T) {
	gp := NewGP(1)

	mean, variance := gp.Posterior([][]float64{{0.3, 0.7}}, 0)

	assert.Equal(t, 0.0, mean[0])
	assert.Equal(t, 1.0, variance[0])
}

func TestGPObserveShapeMismatch(t *testing.T) {
	gp := NewGP(2)

	err := gp.Observe([]float64{0.1}, 1.0)

	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestGPConditionedOnDoesNotMutateReceiver(t *testing.T) {
	gp := NewGP(1)
	require.NoError(t, gp.Observe([]float64{0.0}, 0.0))

	_, varBefore := gp.Posterior([][]float64{{0.5}}, 0)

	fantasy := gp.ConditionedOn([][]float64{{0.5}}, []float64{0.25}, 0)

	_, varAfter := gp.Posterior([][]float64{{0.5}}, 0)
	_, varFantasy := fantasy.Posterior([][]float64{{0.5}}, 0)

	// The receiver is untouched; the fantasy has near-zero variance at the
	// conditioned point.
	assert.Equal(t, varBefore[0], varAfter[0])
	assert.Less(t, varFantasy[0], varBefore[0])
}

func TestGPConditionedOnMultiOutcome(t *testing.T) {
	gp := NewGP(2)
	require.NoError(t, gp.Observe([]float64{0.0}, 1.0, -1.0))

	fantasy := gp.ConditionedOn([][]float64{{1.0}}, []float64{2.0}, 0)

	require.Equal(t, 2, fantasy.NumOutcomes())

	mean, _ := fantasy.Posterior([][]float64{{1.0}}, 0)
	assert.InDelta(t, 2.0, mean[0], 1e-2)
}

func TestSubsetModelReducesOutcomes(t *testing.T) {
	gp := NewGP(3)
	require.NoError(t, gp.Observe([]float64{0.5}, 1.0, 2.0, 3.0))

	sub, weights, err := subsetModel(gp, []float64{0, -1, 0})

	require.NoError(t, err)
	assert.Equal(t, 1, sub.NumOutcomes())
	assert.Equal(t, []float64{-1}, weights)

	// Outcome 0 of the view is outcome 1 of the base model.
	want, _ := gp.Posterior([][]float64{{0.5}}, 1)
	got, _ := sub.Posterior([][]float64{{0.5}}, 0)
	assert.Equal(t, want, got)
}

func TestSubsetModelPassThrough(t *testing.T) {
	gp := NewGP(2)

	sub, weights, err := subsetModel(gp, []float64{1, -1})

	require.NoError(t, err)
	assert.Same(t, gp, sub.(*GP))
	assert.Equal(t, []float64{1, -1}, weights)
}

func TestSubsetModelShapeMismatch(t *testing.T) {
	gp := NewGP(2)

	_, _, err := subsetModel(gp, []float64{1})

	assert.ErrorIs(t, err, ErrShapeMismatch)
}
