package mfbo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

//////
// Const, vars, types.
//////

// polishIterations bounds each Nelder-Mead polish run.
const polishIterations = 150

// MultiStart maximizes an acquisition function over a bounded box with
// random multi-start local search: it scores rawSamples uniform random
// batches, keeps the best restarts of them as starting points, polishes
// each with Nelder-Mead, and returns the best batch found. Candidates are
// clamped to the box before every score, so the returned batch always lies
// inside the bounds.
//
// The search is deterministic given the RNG seed it was created with.
type MultiStart struct {
	rng *rand.Rand
}

//////
// Methods.
//////

// Maximize searches the full continuous box, fidelity column included, for
// the best batch of q rows.
func (m *MultiStart) Maximize(
	acq Acquisition,
	bounds Bounds,
	q, restarts, rawSamples int,
) ([][]float64, float64, error) {
	if err := checkSearchArgs(bounds, q, restarts, rawSamples); err != nil {
		return nil, 0, err
	}

	assemble := func(flat []float64) [][]float64 {
		return unflatten(flat, q)
	}

	flat, value := m.search(acq, bounds, q, restarts, rawSamples, assemble)

	return assemble(flat), value, nil
}

// MaximizeMixed restricts the fidelity column to the given finite set.
// Every listed level is solved as its own fixed-fidelity sub-problem over
// the design dimensions (the level may look dominated a priori, but the
// acquisition value is data-dependent); the best-scoring sub-problem
// supplies the returned batch, so every fidelity entry is a member of the
// set.
func (m *MultiStart) MaximizeMixed(
	acq Acquisition,
	bounds Bounds,
	q, restarts, rawSamples int,
	fidelities []float64,
) ([][]float64, float64, error) {
	if err := checkSearchArgs(bounds, q, restarts, rawSamples); err != nil {
		return nil, 0, err
	}

	if len(fidelities) == 0 {
		return nil, 0, errors.New("at least one fidelity level is required")
	}

	design := bounds.Design()

	var (
		bestBatch [][]float64
		bestValue = math.Inf(-1)
	)

	for _, s := range fidelities {
		assemble := func(flat []float64) [][]float64 {
			rows := unflatten(flat, q)
			for i, row := range rows {
				full := make([]float64, len(row)+1)
				copy(full, row)
				full[len(row)] = s

				rows[i] = full
			}

			return rows
		}

		flat, value := m.search(acq, design, q, restarts, rawSamples, assemble)

		if value > bestValue {
			bestValue = value
			bestBatch = assemble(flat)
		}
	}

	return bestBatch, bestValue, nil
}

// search runs the raw-sample / top-k / polish pipeline over the flattened
// q-batch box and returns the best flat candidate with its score. The
// assemble callback turns a flat candidate into the batch rows the
// acquisition scores.
func (m *MultiStart) search(
	acq Acquisition,
	box Bounds,
	q, restarts, rawSamples int,
	assemble func([]float64) [][]float64,
) ([]float64, float64) {
	dim := box.Dim()

	score := func(flat []float64) float64 {
		clamped := make([]float64, len(flat))
		copy(clamped, flat)

		for i := range clamped {
			clamped[i] = clamp(clamped[i], box.Lower[i%dim], box.Upper[i%dim])
		}

		return acq.Value(assemble(clamped))
	}

	type candidate struct {
		flat  []float64
		value float64
	}

	raw := make([]candidate, rawSamples)

	for i := range raw {
		flat := make([]float64, 0, q*dim)
		for j := 0; j < q; j++ {
			flat = append(flat, sampleUniform(m.rng, box)...)
		}

		raw[i] = candidate{flat: flat, value: score(flat)}
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].value > raw[j].value })

	if restarts > len(raw) {
		restarts = len(raw)
	}

	best := raw[0]

	for _, start := range raw[:restarts] {
		problem := optimize.Problem{
			Func: func(flat []float64) float64 { return -score(flat) },
		}

		init := make([]float64, len(start.flat))
		copy(init, start.flat)

		result, err := optimize.Minimize(
			problem,
			init,
			&optimize.Settings{MajorIterations: polishIterations},
			&optimize.NelderMead{},
		)
		if err != nil {
			continue
		}

		if v := -result.F; v > best.value {
			best = candidate{flat: result.X, value: v}
		}
	}

	// Clamp the winner so the returned batch is inside the box even when
	// the polish run wandered outside it.
	for i := range best.flat {
		best.flat[i] = clamp(best.flat[i], box.Lower[i%dim], box.Upper[i%dim])
	}

	return best.flat, best.value
}

func checkSearchArgs(bounds Bounds, q, restarts, rawSamples int) error {
	if bounds.Dim() == 0 || len(bounds.Lower) != len(bounds.Upper) {
		return errors.New("bounds must be non-empty with matching lower and upper lengths")
	}

	if q < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", q)
	}

	if restarts < 1 || rawSamples < 1 {
		return fmt.Errorf("restarts and raw samples must be at least 1, got %d and %d", restarts, rawSamples)
	}

	return nil
}

//////
// Factory.
//////

// NewMultiStart creates a multi-start optimizer drawing its restarts from
// the given RNG. Share one RNG per optimization run to keep results
// reproducible.
func NewMultiStart(rng *rand.Rand) *MultiStart {
	return &MultiStart{rng: rng}
}
