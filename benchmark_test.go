package mfbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hartmannOptimum is the known maximizer of the (negated) Hartmann-6.
var hartmannOptimum = []float64{0.20169, 0.150011, 0.476874, 0.275332, 0.311652, 0.6573}

func TestAugmentedHartmann6Optimum(t *testing.T) {
	row := append(append([]float64{}, hartmannOptimum...), 1.0)

	values := AugmentedHartmann6{}.Evaluate([][]float64{row})
	require.Len(t, values, 1)

	assert.InDelta(t, 3.32237, values[0], 1e-3)
}

func TestAugmentedHartmann6FidelityPenalty(t *testing.T) {
	full := append(append([]float64{}, hartmannOptimum...), 1.0)
	low := append(append([]float64{}, hartmannOptimum...), 0.0)

	values := AugmentedHartmann6{}.Evaluate([][]float64{full, low})

	// Lower fidelity under-reports the objective at the optimum.
	assert.Greater(t, values[0], values[1])
}

func TestAugmentedHartmann6Shape(t *testing.T) {
	obj := AugmentedHartmann6{}

	assert.Equal(t, 6, obj.Dim())
	assert.Equal(t, 7, obj.Bounds().Dim())
}

func TestAffineCostModel(t *testing.T) {
	cost := AffineCostModel{FixedCost: 5, Weight: 1}

	costs := cost.Cost([][]float64{
		{0, 0, 0.5},
		{0, 0, 1.0},
	})

	assert.Equal(t, []float64{5.5, 6.0}, costs)
}

func TestRandomDesignDiscreteFidelities(t *testing.T) {
	fidelities := []float64{0.5, 0.75, 1.0}

	data := RandomDesign(20, AugmentedHartmann6{}, fidelities, newTestRNG(1))

	require.Equal(t, 20, data.Len())

	for _, o := range data.Observations() {
		assert.Len(t, o.X, 6)
		assert.True(t, containsFidelity(fidelities, o.Fidelity))
	}
}

func TestRandomDesignContinuousFidelity(t *testing.T) {
	data := RandomDesign(10, AugmentedHartmann6{}, nil, newTestRNG(1))

	require.Equal(t, 10, data.Len())

	for _, o := range data.Observations() {
		assert.GreaterOrEqual(t, o.Fidelity, 0.0)
		assert.LessOrEqual(t, o.Fidelity, 1.0)
	}
}
