package mes

//////
// Fidelity projection and trace expansion.
//////

// FidelityProjector maps a candidate design to its representation at the
// target (highest) fidelity. It is a plain value-parameterized strategy so
// it can be unit-tested independently of acquisition construction.
type FidelityProjector struct {
	// Targets maps fidelity dimension indices to their target values.
	Targets map[int]float64
}

// Project returns a copy of x with every fidelity dimension set to its
// target value. Non-fidelity dimensions are untouched.
func (p FidelityProjector) Project(x []float64) []float64 {
	out := copyPoint(x)

	for _, d := range sortedKeys(p.Targets) {
		if d >= 0 && d < len(out) {
			out[d] = p.Targets[d]
		}
	}

	return out
}

// FidelityExpander augments a candidate with trace observations: auxiliary
// evaluations at intermediate fidelities along each fidelity dimension,
// bundled with a target-fidelity evaluation to cheaply reduce the variance
// of the entropy estimate.
type FidelityExpander struct {
	// FidelityDims lists the fidelity dimension indices, ascending.
	FidelityDims []int

	// NumTraceObservations is the number of intermediate fidelities per
	// dimension. Zero degenerates Expand to the identity.
	NumTraceObservations int
}

// Expand returns the candidate followed by its trace observations. For each
// fidelity dimension f and trace index j in 1..NumTraceObservations, one
// copy of x is emitted with x[f] scaled down to the fraction j/(n+1) of its
// value, giving evenly spaced lower fidelities. With NumTraceObservations
// zero the result is just {x}.
func (e FidelityExpander) Expand(x []float64) [][]float64 {
	out := [][]float64{copyPoint(x)}

	n := e.NumTraceObservations
	if n <= 0 {
		return out
	}

	for _, d := range e.FidelityDims {
		if d < 0 || d >= len(x) {
			continue
		}

		for j := 1; j <= n; j++ {
			trace := copyPoint(x)
			trace[d] = x[d] * float64(j) / float64(n+1)
			out = append(out, trace)
		}
	}

	return out
}
