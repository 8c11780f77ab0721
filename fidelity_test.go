package mes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFidelityProjectorSetsTargets(t *testing.T) {
	projector := FidelityProjector{Targets: map[int]float64{2: 1.0}}

	x := []float64{0.3, 0.7, 0.25}
	projected := projector.Project(x)

	assert.Equal(t, []float64{0.3, 0.7, 1.0}, projected)

	// The input point is untouched.
	assert.Equal(t, []float64{0.3, 0.7, 0.25}, x)
}

func TestFidelityExpanderZeroTraceIsNoOp(t *testing.T) {
	expander := FidelityExpander{FidelityDims: []int{2}, NumTraceObservations: 0}

	out := expander.Expand([]float64{0.1, 0.2, 0.9})

	require.Len(t, out, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.9}, out[0])
}

func TestFidelityExpanderEmitsEvenlySpacedTraces(t *testing.T) {
	expander := FidelityExpander{FidelityDims: []int{2}, NumTraceObservations: 3}

	out := expander.Expand([]float64{0.1, 0.2, 0.8})

	// Candidate first, then one trace per intermediate fidelity.
	require.Len(t, out, 4)
	assert.Equal(t, 0.8, out[0][2])
	assert.InDelta(t, 0.2, out[1][2], 1e-12)
	assert.InDelta(t, 0.4, out[2][2], 1e-12)
	assert.InDelta(t, 0.6, out[3][2], 1e-12)

	// Non-fidelity dimensions are copied unchanged.
	for _, p := range out {
		assert.Equal(t, 0.1, p[0])
		assert.Equal(t, 0.2, p[1])
	}
}

func TestFidelityExpanderMultipleDims(t *testing.T) {
	expander := FidelityExpander{FidelityDims: []int{0, 1}, NumTraceObservations: 2}

	out := expander.Expand([]float64{0.6, 0.9})

	// 1 candidate + 2 traces per fidelity dimension.
	assert.Len(t, out, 5)
}

func TestCandidateSamplerRespectsBoundsAndCount(t *testing.T) {
	sampler := NewCandidateSampler(rand.New(rand.NewSource(1)))
	bounds := [][2]float64{{-2, -1}, {3, 5}}

	points := sampler.Sample(bounds, 100)

	require.Len(t, points, 100)

	for _, p := range points {
		require.Len(t, p, 2)
		assert.GreaterOrEqual(t, p[0], -2.0)
		assert.Less(t, p[0], -1.0)
		assert.GreaterOrEqual(t, p[1], 3.0)
		assert.Less(t, p[1], 5.0)
	}
}

func TestCandidateSamplerSeededReproducibility(t *testing.T) {
	bounds := [][2]float64{{0, 1}}

	a := NewCandidateSampler(rand.New(rand.NewSource(7))).Sample(bounds, 10)
	b := NewCandidateSampler(rand.New(rand.NewSource(7))).Sample(bounds, 10)

	assert.Equal(t, a, b)
}
