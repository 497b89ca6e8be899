package mfbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationRow(t *testing.T) {
	o := Observation{X: []float64{0.1, 0.2}, Fidelity: 0.75, Value: 3}

	assert.Equal(t, []float64{0.1, 0.2, 0.75}, o.Row())
}

func TestDatasetAppendCopiesInputs(t *testing.T) {
	x := []float64{0.5, 0.5}

	data := NewDataset(Observation{X: x, Fidelity: 1, Value: 2})

	// Mutating the caller's slice must not reach the stored observation.
	x[0] = 99

	require.Equal(t, 1, data.Len())
	assert.Equal(t, 0.5, data.Observations()[0].X[0])
}

func TestDatasetAccessors(t *testing.T) {
	data := NewDataset(
		Observation{X: []float64{0, 0}, Fidelity: 0.5, Value: 1},
		Observation{X: []float64{1, 1}, Fidelity: 1.0, Value: 2},
	)

	assert.Equal(t, 2, data.Len())
	assert.Equal(t, 2, data.Dim())
	assert.Equal(t, []float64{1, 2}, data.Values())
	assert.Equal(t, [][]float64{{0, 0, 0.5}, {1, 1, 1}}, data.Rows())
}

func TestDatasetCloneIsIndependent(t *testing.T) {
	data := NewDataset(Observation{X: []float64{0}, Fidelity: 1, Value: 1})

	clone := data.Clone()
	clone.Append(Observation{X: []float64{1}, Fidelity: 1, Value: 2})

	assert.Equal(t, 1, data.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestBoundsClamp(t *testing.T) {
	b := UnitBounds(3)

	assert.Equal(t, []float64{0, 1, 0.5}, b.Clamp([]float64{-2, 7, 0.5}))
}

func TestBoundsDesignDropsFidelity(t *testing.T) {
	b := Bounds{Lower: []float64{0, 0, 0}, Upper: []float64{1, 2, 1}}

	design := b.Design()

	assert.Equal(t, 2, design.Dim())
	assert.Equal(t, []float64{1, 2}, design.Upper)
}
