package mfbo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainingSet is a small smooth 1-design-dimension dataset used across the
// surrogate tests.
func trainingSet() *Dataset {
	data := NewDataset()

	for _, x := range []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		data.Append(Observation{
			X:        []float64{x},
			Fidelity: 1,
			Value:    math.Sin(3 * x),
		})
	}

	return data
}

func TestGPFitEmptyDataset(t *testing.T) {
	gp := NewGP(DefaultNumericSettings())

	assert.Error(t, gp.Fit(NewDataset()))
}

func TestGPFitIdempotent(t *testing.T) {
	data := trainingSet()
	probe := []float64{0.33, 1}

	gp := NewGP(DefaultNumericSettings())
	require.NoError(t, gp.Fit(data))
	first := gp.Mean(probe)
	firstVar := gp.Variance(probe)

	// Refitting on the unchanged observation set must reproduce the model
	// exactly: the hyperparameter search is deterministic.
	require.NoError(t, gp.Fit(data))

	assert.Equal(t, first, gp.Mean(probe))
	assert.Equal(t, firstVar, gp.Variance(probe))
}

func TestGPInterpolatesTrainingPoints(t *testing.T) {
	data := trainingSet()

	gp := NewGP(DefaultNumericSettings())
	require.NoError(t, gp.Fit(data))

	for _, o := range data.Observations() {
		assert.InDelta(t, o.Value, gp.Mean(o.Row()), 0.1)
	}
}

func TestGPVarianceGrowsAwayFromData(t *testing.T) {
	gp := NewGP(DefaultNumericSettings())
	require.NoError(t, gp.Fit(trainingSet()))

	near := gp.Variance([]float64{0.4, 1})
	far := gp.Variance([]float64{0.5, -40})

	assert.Less(t, near, far)
}

func TestGPCovariance(t *testing.T) {
	gp := NewGP(DefaultNumericSettings())
	require.NoError(t, gp.Fit(trainingSet()))

	batch := [][]float64{{0.1, 1}, {0.9, 1}, {0.5, 1}}

	cov, err := gp.Covariance(batch)
	require.NoError(t, err)
	require.Len(t, cov, 3)

	for i := range cov {
		require.Len(t, cov[i], 3)

		// Diagonal entries are variances and must agree with Variance.
		assert.InDelta(t, gp.Variance(batch[i]), cov[i][i], 1e-8)
		assert.GreaterOrEqual(t, cov[i][i], 0.0)
	}

	assert.InDelta(t, cov[0][1], cov[1][0], 1e-8)
}

func TestGPCovarianceUnfitted(t *testing.T) {
	gp := NewGP(DefaultNumericSettings())

	_, err := gp.Covariance([][]float64{{0, 1}})
	assert.Error(t, err)
}

func TestGPConditionShiftsMeanTowardFantasy(t *testing.T) {
	gp := NewGP(DefaultNumericSettings())
	require.NoError(t, gp.Fit(trainingSet()))

	// Pretend we observed a much higher value between two training points.
	probe := []float64{0.3, 1}
	before := gp.Mean(probe)

	cond, err := gp.Condition([][]float64{probe}, []float64{before + 2})
	require.NoError(t, err)

	assert.Greater(t, cond.Mean(probe), before)

	// The original model is untouched.
	assert.Equal(t, before, gp.Mean(probe))
}

func TestGPConditionLengthMismatch(t *testing.T) {
	gp := NewGP(DefaultNumericSettings())
	require.NoError(t, gp.Fit(trainingSet()))

	_, err := gp.Condition([][]float64{{0.3, 1}}, []float64{1, 2})
	assert.Error(t, err)
}

func TestGPDuplicateRowsStillFit(t *testing.T) {
	// Exact duplicates make the noise-free covariance singular; the fitted
	// noise plus jitter must keep it factorizable.
	data := NewDataset(
		Observation{X: []float64{0.5}, Fidelity: 1, Value: 1},
		Observation{X: []float64{0.5}, Fidelity: 1, Value: 1.1},
		Observation{X: []float64{0.2}, Fidelity: 1, Value: 0.4},
	)

	gp := NewGP(DefaultNumericSettings())

	assert.NoError(t, gp.Fit(data))
}
