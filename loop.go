package mfbo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

//////
// Exported functionalities.
//////

// Optimize runs the sequential multi-fidelity Bayesian optimization loop.
//
// Parameters:
//   - config: LoopConfig controlling budgets, fidelity policy and seeding
//   - objective: The black-box function being maximized
//   - cost: Prices each evaluation; always required, the loop accounts cost
//     even when CostAware scoring is off
//   - initial: Starting observation set; when nil, a random design of
//     config.InitialSamples points is drawn and evaluated first
//
// How it works, per iteration:
//  1. Fit the surrogate to the current observation set. A fitting failure
//     aborts the run and is returned to the caller; there is no retry.
//  2. When cost-aware, maximize the plain posterior mean at the target
//     fidelity to obtain the current-value baseline.
//  3. Build the (cost-aware) knowledge-gradient acquisition from the
//     fitted model.
//  4. Maximize it over the continuous box, or over the discrete fidelity
//     levels when config.Fidelities is set. The whole batch comes out of
//     one joint optimization; there is no greedy refitting within a batch.
//  5. Evaluate the objective at the batch, append the observations, and
//     add the batch's summed cost to the cumulative cost.
//
// After the fixed iteration budget the surrogate is refit once more and
// the posterior mean is maximized at the target fidelity; the maximizer,
// evaluated on the true objective, is the recommendation.
//
// The run is deterministic given config.Seed: every random draw (initial
// design, optimizer restarts, fantasy base samples, discretization) comes
// from one seeded generator.
func Optimize(config LoopConfig, objective Objective, cost CostModel, initial *Dataset) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if objective == nil {
		return nil, errors.New("objective is required")
	}

	if cost == nil {
		return nil, errors.New("cost model is required")
	}

	rng := rand.New(rand.NewSource(config.Seed))

	bounds := objective.Bounds()
	if bounds.Dim() != objective.Dim()+1 {
		return nil, fmt.Errorf("objective bounds must cover %d design dimensions plus fidelity, got %d",
			objective.Dim(), bounds.Dim())
	}

	var data *Dataset
	if initial != nil && initial.Len() > 0 {
		data = initial.Clone()
	} else {
		data = RandomDesign(config.InitialSamples, objective, config.Fidelities, rng)
	}

	surrogate := NewGP(config.Numeric)
	opt := NewMultiStart(rng)

	var cumulativeCost float64

	for i := 0; i < config.Iterations; i++ {
		if err := surrogate.Fit(data); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i+1, err)
		}

		// Cost-aware scoring needs the best value currently achievable at
		// the target fidelity as its anchor. Recomputed every iteration:
		// the posterior changed when the last batch was appended.
		currentValue := math.NaN()

		if config.CostAware {
			_, baseline, err := opt.MaximizeMixed(
				PosteriorMean{Model: surrogate},
				bounds,
				1,
				config.Restarts,
				config.RawSamples,
				[]float64{config.TargetFidelity},
			)
			if err != nil {
				return nil, fmt.Errorf("iteration %d: optimizing current-value baseline: %w", i+1, err)
			}

			currentValue = baseline
		}

		kg := NewKnowledgeGradient(
			surrogate,
			targetGrid(rng, bounds, config.Discretization, config.TargetFidelity),
			config.Fantasies,
			currentValue,
			rng,
		)

		var acq Acquisition = kg
		if config.CostAware {
			acq = CostAwareKG{KG: kg, Cost: cost}
		}

		var (
			batch    [][]float64
			acqValue float64
			err      error
		)

		if len(config.Fidelities) > 0 {
			batch, acqValue, err = opt.MaximizeMixed(
				acq, bounds, config.BatchSize, config.Restarts, config.RawSamples, config.Fidelities)
		} else {
			batch, acqValue, err = opt.Maximize(
				acq, bounds, config.BatchSize, config.Restarts, config.RawSamples)
		}

		if err != nil {
			return nil, fmt.Errorf("iteration %d: optimizing acquisition: %w", i+1, err)
		}

		values := objective.Evaluate(batch)
		costs := cost.Cost(batch)

		var batchCost float64

		observed := make([]Observation, len(batch))

		for j, row := range batch {
			observed[j] = Observation{
				X:        row[:objective.Dim()],
				Fidelity: row[objective.Dim()],
				Value:    values[j],
			}

			batchCost += costs[j]
		}

		data.Append(observed...)
		cumulativeCost += batchCost

		logrus.Infof("iteration %d/%d: batch=%d cost=%.3f cumulative=%.3f acquisition=%.6f",
			i+1, config.Iterations, len(batch), batchCost, cumulativeCost, acqValue)
		logrus.Debugf("iteration %d/%d: observations=%v", i+1, config.Iterations, observed)

		sendProgress(config.ProgressChan, ProgressUpdate{
			Iteration:        i + 1,
			TotalIterations:  config.Iterations,
			Batch:            observed,
			BatchCost:        batchCost,
			CumulativeCost:   cumulativeCost,
			CurrentValue:     nanToZero(currentValue),
			AcquisitionValue: acqValue,
		})
	}

	recommended, err := recommend(config, objective, surrogate, opt, data, bounds)
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:           data,
		CumulativeCost: cumulativeCost,
		Recommended:    recommended,
	}, nil
}

// RandomDesign draws n points uniformly from the objective's box and
// evaluates them. When a discrete fidelity set is given, fidelities are
// drawn uniformly from that set instead of the fidelity interval.
func RandomDesign(n int, objective Objective, fidelities []float64, rng *rand.Rand) *Dataset {
	bounds := objective.Bounds()
	d := objective.Dim()

	rows := make([][]float64, n)

	for i := range rows {
		rows[i] = sampleUniform(rng, bounds)

		if len(fidelities) > 0 {
			rows[i][d] = fidelities[rng.Intn(len(fidelities))]
		}
	}

	values := objective.Evaluate(rows)

	data := NewDataset()
	for i, row := range rows {
		data.Append(Observation{X: row[:d], Fidelity: row[d], Value: values[i]})
	}

	return data
}

//////
// Helper functions.
//////

// recommend refits the surrogate on the final observation set and returns
// the posterior-mean maximizer at the target fidelity, evaluated on the
// true objective. The fidelity column of the recommendation is exactly the
// target fidelity.
func recommend(
	config LoopConfig,
	objective Objective,
	surrogate Surrogate,
	opt Optimizer,
	data *Dataset,
	bounds Bounds,
) (Observation, error) {
	if err := surrogate.Fit(data); err != nil {
		return Observation{}, fmt.Errorf("recommendation: %w", err)
	}

	batch, _, err := opt.MaximizeMixed(
		PosteriorMean{Model: surrogate},
		bounds,
		1,
		config.Restarts,
		config.RawSamples,
		[]float64{config.TargetFidelity},
	)
	if err != nil {
		return Observation{}, fmt.Errorf("recommendation: optimizing posterior mean: %w", err)
	}

	row := batch[0]
	value := objective.Evaluate([][]float64{row})[0]

	return Observation{
		X:        row[:objective.Dim()],
		Fidelity: config.TargetFidelity,
		Value:    value,
	}, nil
}

// targetGrid draws n random rows at the target fidelity. The conditioned
// posterior mean is maximized over this set inside the knowledge gradient.
func targetGrid(rng *rand.Rand, bounds Bounds, n int, target float64) [][]float64 {
	rows := make([][]float64, n)

	for i := range rows {
		rows[i] = sampleUniform(rng, bounds)
		rows[i][bounds.Dim()-1] = target
	}

	return rows
}

// sendProgress delivers an update without blocking; updates are dropped
// when the channel is full.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}

	select {
	case ch <- update:
	default:
		// Skip update if channel is full.
	}
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}

	return v
}
