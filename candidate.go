package mes

import "math/rand"

//////
// Candidate set sampling.
//////

// CandidateSampler draws discrete sets of points uniformly at random within
// box bounds. The generation pipeline uses it twice: for the candidate set
// over which the max-value distribution is approximated, and for the raw
// initialization samples of the multi-restart optimizer.
//
// Determinism: reproducible only if the supplied random source is seeded by
// the caller; every call draws fresh points.
type CandidateSampler struct {
	rng *rand.Rand
}

// NewCandidateSampler creates a sampler drawing from the given source.
func NewCandidateSampler(rng *rand.Rand) *CandidateSampler {
	return &CandidateSampler{rng: rng}
}

// Sample returns count points drawn independently and uniformly at random
// within the per-dimension bounds.
func (s *CandidateSampler) Sample(bounds [][2]float64, count int) [][]float64 {
	points := make([][]float64, count)

	for i := range points {
		p := make([]float64, len(bounds))
		for d, b := range bounds {
			p[d] = b[0] + s.rng.Float64()*(b[1]-b[0])
		}

		points[i] = p
	}

	return points
}
