package mes

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Acquisition functions.
//////

// AcquisitionFunction scores candidate batches for the optimizer. An
// instance is stateful: it holds max-value samples and fantasy models drawn
// once at construction, and a pending-point set that grows as the batch is
// built sequentially. Instances are owned by a single generation call and
// never reused across calls; every call draws fresh randomness.
type AcquisitionFunction interface {
	// Score returns the acquisition value of a candidate batch: the
	// estimated expected reduction in entropy of the max-value distribution
	// from observing it, averaged over the batch. Higher is better.
	Score(batch [][]float64) float64

	// SetPendingPoints replaces the set of points the function conditions
	// on, re-drawing the fantasy models. The sequential optimizer calls
	// this after each selected point.
	SetPendingPoints(points [][]float64)

	// PendingPoints returns the current conditioning set. Callers must not
	// modify the returned points.
	PendingPoints() [][]float64
}

// MaxValueEntropy is the standard (single-fidelity) max-value entropy
// search acquisition function.
//
// At construction it approximates the posterior distribution of the
// objective's global maximum over a discrete candidate set with a Gumbel
// fit, draws a fixed set of max-value samples from it, and fantasizes
// models over any pending points. Scoring a candidate then estimates
//
//	H[p(y|x)] - E_{y*}[ H[p(y | x, max <= y*)] ]
//
// per fantasy model, with the truncated-entropy term evaluated by an
// inner quadrature over NumYSamples outcome draws. Scores are deterministic
// given the randomness fixed at construction, which keeps the local solver
// and seeded runs reproducible.
type MaxValueEntropy struct {
	model SurrogateModel

	// maxValues holds the sampled max values, in maximization space.
	maxValues []float64

	numFantasies int
	numYSamples  int
	maximize     bool
	rng          *rand.Rand

	pending   [][]float64
	fantasies []SurrogateModel
}

// MultiFidelityMaxValueEntropy is the cost-aware multi-fidelity variant.
// Candidates are scored at their target-fidelity projection, fantasy models
// are additionally conditioned on the candidate's trace observations for
// variance reduction, and the resulting information gain is divided through
// the cost-aware utility, yielding value per unit cost.
type MultiFidelityMaxValueEntropy struct {
	*MaxValueEntropy

	Projector FidelityProjector
	Expander  FidelityExpander
	Utility   InverseCostWeightedUtility
}

//////
// Construction.
//////

// acquisitionSpec bundles everything instantiateMES needs. The variant is
// decided once, by whether targetFidelities is non-empty; each variant is
// built by a distinct code path.
type acquisitionSpec struct {
	model                SurrogateModel
	candidateSet         [][]float64
	numFantasies         int
	numMVSamples         int
	numYSamples          int
	numTraceObservations int
	pending              [][]float64
	maximize             bool
	targetFidelities     map[int]float64
	fidelityWeights      map[int]float64
	costIntercept        float64
	rng                  *rand.Rand
}

// instantiateMES builds the max-value entropy search acquisition function:
// the standard variant when no fidelity features are configured, the
// cost-aware multi-fidelity variant otherwise.
func instantiateMES(spec acquisitionSpec) (AcquisitionFunction, error) {
	base := &MaxValueEntropy{
		model:        spec.model,
		numFantasies: spec.numFantasies,
		numYSamples:  spec.numYSamples,
		maximize:     spec.maximize,
		rng:          spec.rng,
	}

	base.maxValues = sampleMaxValues(
		spec.model, spec.candidateSet, spec.numMVSamples, spec.maximize, spec.rng,
	)
	base.SetPendingPoints(spec.pending)

	if len(spec.targetFidelities) == 0 {
		return base, nil
	}

	weights := spec.fidelityWeights
	if weights == nil {
		weights = make(map[int]float64, len(spec.targetFidelities))
		for _, d := range sortedKeys(spec.targetFidelities) {
			weights[d] = 1.0
		}
	} else if !sameKeySet(spec.targetFidelities, weights) {
		return nil, fmt.Errorf(
			"%w: fidelity features %v and fidelity weights %v must use the same indices",
			ErrInvalidFidelityConfig,
			sortedKeys(spec.targetFidelities), sortedKeys(weights),
		)
	}

	return &MultiFidelityMaxValueEntropy{
		MaxValueEntropy: base,
		Projector:       FidelityProjector{Targets: spec.targetFidelities},
		Expander: FidelityExpander{
			FidelityDims:         sortedKeys(spec.targetFidelities),
			NumTraceObservations: spec.numTraceObservations,
		},
		Utility: InverseCostWeightedUtility{
			CostModel: AffineFidelityCostModel{
				Weights:   weights,
				FixedCost: spec.costIntercept,
			},
		},
	}, nil
}

//////
// Max-value sampling.
//////

// sampleMaxValues draws numSamples approximate samples of the objective's
// maximum value over the candidate set, in maximization space.
//
// The CDF of the max under independent marginals,
// F(y) = prod_i Phi((y - mu_i) / sigma_i), is bracketed and bisected at the
// quartiles, a Gumbel distribution is fit to them (the max of many
// Gaussians is asymptotically Gumbel), and the samples are drawn from the
// fitted distribution by inverse transform.
func sampleMaxValues(
	model SurrogateModel,
	candidateSet [][]float64,
	numSamples int,
	maximize bool,
	rng *rand.Rand,
) []float64 {
	mean, variance := model.Posterior(candidateSet, 0)

	sign := 1.0
	if !maximize {
		sign = -1.0
	}

	m := make([]float64, len(mean))
	s := make([]float64, len(mean))
	lo, hi := math.Inf(-1), math.Inf(-1)

	for i := range mean {
		m[i] = sign * mean[i]
		s[i] = math.Sqrt(variance[i])

		lo = math.Max(lo, m[i]-5*s[i])
		hi = math.Max(hi, m[i]+5*s[i])
	}

	// logF(y) = sum_i log Phi((y - m_i) / s_i), monotone increasing in y.
	logF := func(y float64) float64 {
		var sum float64
		for i := range m {
			sum += math.Log(distuv.UnitNormal.CDF((y - m[i]) / s[i]))
		}

		return sum
	}

	quantile := func(p float64) float64 {
		target := math.Log(p)
		a, b := lo, hi

		for iter := 0; iter < 60; iter++ {
			mid := 0.5 * (a + b)
			if logF(mid) < target {
				a = mid
			} else {
				b = mid
			}
		}

		return 0.5 * (a + b)
	}

	y25 := quantile(0.25)
	y50 := quantile(0.50)
	y75 := quantile(0.75)

	// Gumbel quantile is Q(p) = mu - beta*log(-log p); solve the fit from
	// the interquartile range and the median.
	beta := (y75 - y25) / (math.Log(math.Log(4.0)) - math.Log(math.Log(4.0/3.0)))
	mu := y50 + beta*math.Log(math.Log(2.0))

	samples := make([]float64, numSamples)

	if beta > 0 && !math.IsInf(beta, 0) && !math.IsNaN(beta) {
		gumbel := distuv.GumbelRight{Mu: mu, Beta: beta}
		for k := range samples {
			samples[k] = gumbel.Quantile(rng.Float64())
		}

		return samples
	}

	// Degenerate posterior (e.g. near-zero variance everywhere): fall back
	// to empirical maxima over independent marginal draws.
	for k := range samples {
		best := math.Inf(-1)
		for i := range m {
			y := m[i] + s[i]*rng.NormFloat64()
			if y > best {
				best = y
			}
		}

		samples[k] = best
	}

	return samples
}

//////
// Scoring.
//////

func (a *MaxValueEntropy) sign() float64 {
	if a.maximize {
		return 1.0
	}

	return -1.0
}

// SetPendingPoints replaces the conditioning set and re-draws the fantasy
// models. With no pending points the model itself is the single "fantasy".
func (a *MaxValueEntropy) SetPendingPoints(points [][]float64) {
	a.pending = make([][]float64, len(points))
	for i, p := range points {
		a.pending[i] = copyPoint(p)
	}

	if len(a.pending) == 0 {
		a.fantasies = []SurrogateModel{a.model}

		return
	}

	mean, variance := a.model.Posterior(a.pending, 0)

	a.fantasies = make([]SurrogateModel, a.numFantasies)
	for k := range a.fantasies {
		ys := make([]float64, len(a.pending))
		for j := range ys {
			ys[j] = mean[j] + math.Sqrt(variance[j])*a.rng.NormFloat64()
		}

		a.fantasies[k] = a.model.ConditionedOn(a.pending, ys, 0)
	}
}

// PendingPoints returns the current conditioning set.
func (a *MaxValueEntropy) PendingPoints() [][]float64 {
	out := make([][]float64, len(a.pending))
	copy(out, a.pending)

	return out
}

// Score returns the mean information gain over the batch.
func (a *MaxValueEntropy) Score(batch [][]float64) float64 {
	if len(batch) == 0 {
		return 0
	}

	var total float64
	for _, x := range batch {
		total += a.infoGain(x, a.fantasies)
	}

	return total / float64(len(batch))
}

// infoGain estimates the expected entropy reduction of the max-value
// distribution from observing x, averaged over the given fantasy models.
func (a *MaxValueEntropy) infoGain(x []float64, fantasies []SurrogateModel) float64 {
	pt := [][]float64{x}

	var h0, hTrunc float64
	for _, f := range fantasies {
		mean, variance := f.Posterior(pt, 0)

		m := a.sign() * mean[0]
		sd := math.Sqrt(variance[0])

		h0 += 0.5 * math.Log(2*math.Pi*math.E*variance[0])
		hTrunc += a.truncatedEntropy(m, sd)
	}

	n := float64(len(fantasies))

	return (h0 - hTrunc) / n
}

// truncatedEntropy returns the entropy of N(m, sd^2) upper-truncated at a
// sampled max value, averaged over the max-value samples. Each term is
// evaluated by a stratified inverse-CDF quadrature with numYSamples nodes,
// which is a deterministic Monte Carlo estimate of E[-log p_trunc].
func (a *MaxValueEntropy) truncatedEntropy(m, sd float64) float64 {
	dist := distuv.Normal{Mu: m, Sigma: sd}

	var total float64
	for _, ymax := range a.maxValues {
		z := distuv.UnitNormal.CDF((ymax - m) / sd)
		if z < 1e-12 {
			z = 1e-12
		}

		logZ := math.Log(z)

		var h float64
		for k := 0; k < a.numYSamples; k++ {
			u := (float64(k) + 0.5) / float64(a.numYSamples) * z
			y := dist.Quantile(clamp(u, 1e-15, 1-1e-15))

			h += logZ - dist.LogProb(y)
		}

		total += h / float64(a.numYSamples)
	}

	return total / float64(len(a.maxValues))
}

// Score returns the cost-normalized information gain of the batch: each
// candidate is scored at its target-fidelity projection, with the fantasy
// models conditioned on the candidate's trace observations, and divided by
// its modeled evaluation cost.
func (a *MultiFidelityMaxValueEntropy) Score(batch [][]float64) float64 {
	if len(batch) == 0 {
		return 0
	}

	var total float64
	for _, x := range batch {
		fantasies := a.fantasies

		// Condition each fantasy on the trace observations at their
		// posterior mean: no information is injected, but the variance at
		// the projected point shrinks accordingly.
		if traces := a.Expander.Expand(x)[1:]; len(traces) > 0 {
			conditioned := make([]SurrogateModel, len(fantasies))
			for i, f := range fantasies {
				mean, _ := f.Posterior(traces, 0)
				conditioned[i] = f.ConditionedOn(traces, mean, 0)
			}

			fantasies = conditioned
		}

		gain := a.infoGain(a.Projector.Project(x), fantasies)
		total += a.Utility.Apply(gain, x)
	}

	return total / float64(len(batch))
}
