package mfbo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// bowlObjective is a cheap 2-design-dimension objective for loop tests:
// a concave bowl with its optimum at (0.3, 0.7), mildly penalized at low
// fidelity.
type bowlObjective struct{}

func (bowlObjective) Dim() int { return 2 }

func (bowlObjective) Bounds() Bounds { return UnitBounds(3) }

func (bowlObjective) Evaluate(rows [][]float64) []float64 {
	out := make([]float64, len(rows))

	for i, row := range rows {
		out[i] = 1 -
			(row[0]-0.3)*(row[0]-0.3) -
			(row[1]-0.7)*(row[1]-0.7) -
			0.05*(1-row[2])
	}

	return out
}

// fastConfig keeps the loop cheap enough for unit tests.
func fastConfig() LoopConfig {
	config := DefaultConfig()
	config.Iterations = 2
	config.BatchSize = 2
	config.InitialSamples = 5
	config.Restarts = 1
	config.RawSamples = 8
	config.Fantasies = 3
	config.Discretization = 8
	config.Fidelities = []float64{0.5, 1.0}
	config.Seed = 7

	return config
}

func TestOptimizeDatasetGrowth(t *testing.T) {
	for _, iterations := range []int{0, 1, 3} {
		config := fastConfig()
		config.Iterations = iterations

		result, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
		require.NoError(t, err)

		// Initial design plus one full batch per iteration; the
		// recommendation is reported, never appended.
		assert.Equal(t, config.InitialSamples+iterations*config.BatchSize, result.Data.Len())
	}
}

func TestOptimizeCumulativeCostClosedForm(t *testing.T) {
	config := fastConfig()
	cost := DefaultCostModel()

	result, err := Optimize(config, bowlObjective{}, cost, nil)
	require.NoError(t, err)

	// Recompute the cost independently from the recorded fidelities.
	var expected float64
	for _, o := range result.Data.Observations()[config.InitialSamples:] {
		expected += cost.FixedCost + cost.Weight*o.Fidelity
	}

	assert.InDelta(t, expected, result.CumulativeCost, 1e-9)
}

func TestOptimizeRecommendationAtTargetFidelity(t *testing.T) {
	config := fastConfig()

	result, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
	require.NoError(t, err)

	assert.Equal(t, config.TargetFidelity, result.Recommended.Fidelity)
	assert.Len(t, result.Recommended.X, 2)
}

func TestOptimizeDiscreteFidelitiesRespected(t *testing.T) {
	config := fastConfig()

	result, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
	require.NoError(t, err)

	for _, o := range result.Data.Observations() {
		assert.True(t, containsFidelity(config.Fidelities, o.Fidelity),
			"fidelity %g is not one of the allowed levels", o.Fidelity)
	}
}

func TestOptimizeDeterministicGivenSeed(t *testing.T) {
	config := fastConfig()

	first, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
	require.NoError(t, err)

	second, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Data.Observations(), second.Data.Observations())
	assert.Equal(t, first.CumulativeCost, second.CumulativeCost)
	assert.Equal(t, first.Recommended, second.Recommended)
}

func TestOptimizeUsesSuppliedInitialSet(t *testing.T) {
	config := fastConfig()
	config.Iterations = 1

	initial := RandomDesign(4, bowlObjective{}, config.Fidelities, newTestRNG(3))

	result, err := Optimize(config, bowlObjective{}, DefaultCostModel(), initial)
	require.NoError(t, err)

	assert.Equal(t, 4+config.BatchSize, result.Data.Len())

	// The caller's dataset is not mutated.
	assert.Equal(t, 4, initial.Len())
}

func TestOptimizeContinuousFidelity(t *testing.T) {
	config := fastConfig()
	config.Fidelities = nil
	config.Iterations = 1

	result, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
	require.NoError(t, err)

	for _, o := range result.Data.Observations() {
		assert.GreaterOrEqual(t, o.Fidelity, 0.0)
		assert.LessOrEqual(t, o.Fidelity, 1.0)
	}
}

func TestOptimizeProgressUpdates(t *testing.T) {
	config := fastConfig()

	progress := make(chan ProgressUpdate, config.Iterations)
	config.ProgressChan = progress

	result, err := Optimize(config, bowlObjective{}, DefaultCostModel(), nil)
	require.NoError(t, err)

	close(progress)

	var updates []ProgressUpdate
	for u := range progress {
		updates = append(updates, u)
	}

	require.Len(t, updates, config.Iterations)

	last := updates[len(updates)-1]

	assert.Equal(t, config.Iterations, last.Iteration)
	assert.Len(t, last.Batch, config.BatchSize)
	assert.InDelta(t, result.CumulativeCost, last.CumulativeCost, 1e-9)
}

func TestOptimizeMissingCollaborators(t *testing.T) {
	config := fastConfig()

	_, err := Optimize(config, nil, DefaultCostModel(), nil)
	assert.Error(t, err)

	_, err = Optimize(config, bowlObjective{}, nil, nil)
	assert.Error(t, err)
}

func TestOptimizeHartmannEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end run in short mode")
	}

	config := DefaultConfig()
	config.Iterations = 6
	config.BatchSize = 4
	config.InitialSamples = 16
	config.Restarts = 2
	config.RawSamples = 24
	config.Fantasies = 6
	config.Discretization = 24
	config.Fidelities = []float64{0.5, 0.75, 1.0}
	config.Seed = 3

	cost := DefaultCostModel()

	result, err := Optimize(config, AugmentedHartmann6{}, cost, nil)
	require.NoError(t, err)

	// 16 initial points plus 6 batches of 4.
	require.Equal(t, 40, result.Data.Len())

	var expectedCost float64

	for _, o := range result.Data.Observations()[16:] {
		require.True(t, containsFidelity(config.Fidelities, o.Fidelity))

		expectedCost += 5.0 + o.Fidelity
	}

	assert.InDelta(t, expectedCost, result.CumulativeCost, 1e-9)

	assert.Equal(t, 1.0, result.Recommended.Fidelity)

	// The recommendation is a real Hartmann value, bounded by the optimum.
	assert.LessOrEqual(t, result.Recommended.Value, 3.32237+1e-6)
	assert.Greater(t, result.Recommended.Value, 0.0)
}
