package mes

//////
// Fidelity cost modeling.
//////

// minEvaluationCost floors the expected cost before dividing, so a cost
// model that assigns (near-)zero cost to some fidelity region cannot blow
// up the cost-aware utility.
const minEvaluationCost = 1e-2

// AffineFidelityCostModel maps a design point to an evaluation cost as an
// affine function of its fidelity features:
//
//	cost(x) = FixedCost + sum_f Weights[f] * x[f]
//
// Only the dimensions present in Weights contribute; all other dimensions
// are cost-free. Used exclusively on the multi-fidelity path.
type AffineFidelityCostModel struct {
	// Weights maps fidelity dimension indices to non-negative cost weights.
	Weights map[int]float64

	// FixedCost is the intercept paid by every evaluation.
	FixedCost float64
}

// Cost returns the modeled evaluation cost of a single point.
func (c AffineFidelityCostModel) Cost(x []float64) float64 {
	cost := c.FixedCost

	for _, d := range sortedKeys(c.Weights) {
		if d >= 0 && d < len(x) {
			cost += c.Weights[d] * x[d]
		}
	}

	return cost
}

// InverseCostWeightedUtility converts a raw acquisition value into
// cost-normalized utility by dividing through the modeled evaluation cost,
// yielding information gain per unit cost. Costs are floored at
// minEvaluationCost.
type InverseCostWeightedUtility struct {
	CostModel AffineFidelityCostModel
}

// Apply returns value divided by the (floored) cost of evaluating x.
func (u InverseCostWeightedUtility) Apply(value float64, x []float64) float64 {
	cost := u.CostModel.Cost(x)
	if cost < minEvaluationCost {
		cost = minEvaluationCost
	}

	return value / cost
}
