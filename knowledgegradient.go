package mfbo

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// KnowledgeGradient scores a candidate batch by the expected improvement in
// the best achievable posterior mean at the target fidelity after the batch
// would be observed.
//
// How it works:
//   - Draws joint fantasy observations at the batch from the current
//     posterior
//   - Conditions the model on each fantasy (hyperparameters unchanged)
//   - Maximizes the conditioned posterior mean over a fixed discretization
//     at the target fidelity
//   - Averages over fantasies and subtracts the current value
//
// Fantasy draws reuse a fixed set of base samples per batch size, so the
// score is deterministic across calls and safe to hand to the optimizer.
type KnowledgeGradient struct {
	// Model is the fitted surrogate being improved upon.
	Model Surrogate

	// Discretization is the fixed set of full rows (at the target
	// fidelity) over which the conditioned posterior mean is maximized.
	Discretization [][]float64

	// Fantasies is the number of fantasy observations per evaluation.
	Fantasies int

	// CurrentValue is the best posterior mean achievable before observing
	// the batch. The score is the expected gain over this value.
	CurrentValue float64

	rng *rand.Rand

	// base caches the fixed standard-normal base samples, keyed by batch
	// size.
	base map[int][][]float64
}

// CostAwareKG divides the knowledge gradient of a batch by its summed
// evaluation cost, yielding expected gain per unit cost. This is what makes
// the loop prefer cheap low-fidelity evaluations unless a high-fidelity one
// buys proportionally more information.
type CostAwareKG struct {
	KG   *KnowledgeGradient
	Cost CostModel
}

//////
// Methods.
//////

// Value returns the knowledge-gradient score of the batch. Returns -Inf
// when the posterior covariance at the batch cannot be computed, so the
// optimizer steers away from degenerate candidates.
func (a *KnowledgeGradient) Value(batch [][]float64) float64 {
	q := len(batch)
	if q == 0 {
		return math.Inf(-1)
	}

	means := make([]float64, q)
	for i, row := range batch {
		means[i] = a.Model.Mean(row)
	}

	cov, err := a.Model.Covariance(batch)
	if err != nil {
		return math.Inf(-1)
	}

	scale := batchScale(cov)

	var total float64

	fantasies := 0

	for _, z := range a.baseSamples(q) {
		y := make([]float64, q)
		for i := range y {
			y[i] = means[i]
			for j := 0; j <= i; j++ {
				y[i] += scale[i][j] * z[j]
			}
		}

		cond, err := a.Model.Condition(batch, y)
		if err != nil {
			continue
		}

		best := math.Inf(-1)

		for _, row := range a.Discretization {
			if m := cond.Mean(row); m > best {
				best = m
			}
		}

		total += best
		fantasies++
	}

	if fantasies == 0 {
		return math.Inf(-1)
	}

	return total/float64(fantasies) - a.CurrentValue
}

// baseSamples returns the fixed standard-normal draws for batch size q,
// generating and caching them on first use.
func (a *KnowledgeGradient) baseSamples(q int) [][]float64 {
	if cached, ok := a.base[q]; ok {
		return cached
	}

	samples := make([][]float64, a.Fantasies)
	for f := range samples {
		samples[f] = make([]float64, q)
		for i := range samples[f] {
			samples[f][i] = a.rng.NormFloat64()
		}
	}

	a.base[q] = samples

	return samples
}

// Value returns the knowledge gradient per unit cost: max(gain, 0) divided
// by the batch's summed evaluation cost.
func (a CostAwareKG) Value(batch [][]float64) float64 {
	gain := a.KG.Value(batch)
	if math.IsInf(gain, -1) {
		return gain
	}

	if gain < 0 {
		gain = 0
	}

	return gain / floats.Sum(a.Cost.Cost(batch))
}

// batchScale returns a lower-triangular factor of the posterior covariance
// used to correlate the fantasy draws. Falls back to independent draws
// (diagonal standard deviations) when the covariance is not positive
// definite.
func batchScale(cov [][]float64) [][]float64 {
	q := len(cov)

	sym := mat.NewSymDense(q, nil)

	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			// Symmetrize; the GP computes the two halves independently.
			sym.SetSym(i, j, 0.5*(cov[i][j]+cov[j][i]))
		}

		sym.SetSym(i, i, cov[i][i]+1e-10)
	}

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		var tri mat.TriDense
		chol.LTo(&tri)

		l := make([][]float64, q)
		for i := range l {
			l[i] = make([]float64, q)
			for j := 0; j <= i; j++ {
				l[i][j] = tri.At(i, j)
			}
		}

		return l
	}

	l := make([][]float64, q)
	for i := range l {
		l[i] = make([]float64, q)

		v := cov[i][i]
		if v > 0 {
			l[i][i] = math.Sqrt(v)
		}
	}

	return l
}

//////
// Factory.
//////

// NewKnowledgeGradient creates a knowledge-gradient acquisition. When
// currentValue is NaN, the best posterior mean over the discretization is
// used as the baseline. The RNG is consumed once per batch size to draw the
// fixed base samples.
func NewKnowledgeGradient(
	model Surrogate,
	discretization [][]float64,
	fantasies int,
	currentValue float64,
	rng *rand.Rand,
) *KnowledgeGradient {
	if math.IsNaN(currentValue) {
		currentValue = math.Inf(-1)

		for _, row := range discretization {
			if m := model.Mean(row); m > currentValue {
				currentValue = m
			}
		}
	}

	return &KnowledgeGradient{
		Model:          model,
		Discretization: discretization,
		Fantasies:      fantasies,
		CurrentValue:   currentValue,
		rng:            rng,
		base:           make(map[int][][]float64),
	}
}
