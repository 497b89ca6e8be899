package mfbo

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Available acquisition functions.
// Each one scores a candidate batch; the optimizer maximizes the score.
//////

// PosteriorMean scores a batch by the summed posterior mean of the model.
// With a single-row batch this is the acquisition used for the
// current-value baseline and for the final recommendation: maximizing it
// at the target fidelity yields the point the model believes is best.
type PosteriorMean struct {
	Model Surrogate
}

// Value returns the sum of posterior means over the batch rows.
func (a PosteriorMean) Value(batch [][]float64) float64 {
	var sum float64

	for _, row := range batch {
		sum += a.Model.Mean(row)
	}

	return sum
}

// UCB is the Upper Confidence Bound acquisition.
//
// How it works:
// - Combines the predicted mean with the uncertainty (variance)
// - Higher values are better (the loop maximizes the objective)
// - Beta controls the trade-off between exploration and exploitation
//
// When to use:
// - General purpose, works well in most cases
// - When you want direct control over exploration-exploitation trade-off
type UCB struct {
	Model Surrogate

	// Beta is the exploration weight. Higher values (e.g. 3.0) explore
	// uncertain regions; lower values (e.g. 0.5) exploit known good areas.
	Beta float64
}

// Value returns sum(mean + Beta * sqrt(variance)) over the batch rows.
func (a UCB) Value(batch [][]float64) float64 {
	var sum float64

	for _, row := range batch {
		sum += a.Model.Mean(row) + a.Beta*math.Sqrt(a.Model.Variance(row))
	}

	return sum
}

// ExpectedImprovement scores each point by the expected magnitude of its
// improvement over the best value observed so far.
//
// How it works:
// - Combines the probability of improvement with its expected size
// - Uses a normal posterior assumption
// - Xi adds a minimum-improvement requirement
//
// When to use:
// - Most commonly used single-point acquisition
// - When the magnitude of improvement matters, not just its probability
type ExpectedImprovement struct {
	Model Surrogate

	// Best is the best (highest) observed value so far.
	Best float64

	// Xi is the minimum improvement desired. Typical values 0.01 to 0.1;
	// higher values encourage exploration.
	Xi float64
}

// Value returns the summed expected improvement over the batch rows.
// Points with zero posterior variance contribute max(mean - Best - Xi, 0).
func (a ExpectedImprovement) Value(batch [][]float64) float64 {
	var sum float64

	for _, row := range batch {
		improvement := a.Model.Mean(row) - a.Best - a.Xi

		sigma := math.Sqrt(a.Model.Variance(row))
		if sigma == 0 {
			if improvement > 0 {
				sum += improvement
			}

			continue
		}

		z := improvement / sigma

		sum += improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	}

	return sum
}
