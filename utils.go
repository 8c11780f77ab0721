package mes

import (
	"math"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

//////
// Helper functions.
//////

// clamp restricts v to the closed interval [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// sortedKeys returns the keys of m in ascending order. Map iteration order
// is randomized in Go; everything that walks a fidelity map goes through
// this so that results are deterministic under a fixed seed.
func sortedKeys[V any](m map[int]V) []int {
	keys := maps.Keys(m)
	slices.Sort(keys)

	return keys
}

// sameKeySet reports whether two maps over dimension indices have exactly
// the same key set.
func sameKeySet[V any](a, b map[int]V) bool {
	if len(a) != len(b) {
		return false
	}

	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}

	return true
}

// float64Ptr returns a pointer to v, for optional config fields.
func float64Ptr(v float64) *float64 {
	return &v
}

// copyPoint returns an independent copy of a design point.
func copyPoint(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)

	return out
}

// applyFixed overwrites the pinned dimensions of x in place and returns x.
func applyFixed(x []float64, fixed map[int]float64) []float64 {
	for _, d := range sortedKeys(fixed) {
		if d >= 0 && d < len(x) {
			x[d] = fixed[d]
		}
	}

	return x
}

// sigmoid maps the real line onto (0, 1).
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// logit is the inverse of sigmoid. The argument is clamped away from the
// endpoints so starting points on the boundary stay finite.
func logit(p float64) float64 {
	p = clamp(p, 1e-9, 1-1e-9)

	return math.Log(p / (1 - p))
}
