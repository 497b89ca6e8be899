package mfbo

import (
	"math/rand"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// clamp restricts v to the inclusive interval [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// argmax returns the index of the largest element of s. Returns -1 for an
// empty slice.
func argmax(s []float64) int {
	if len(s) == 0 {
		return -1
	}

	best := 0

	for i := 1; i < len(s); i++ {
		if s[i] > s[best] {
			best = i
		}
	}

	return best
}

// sampleUniform draws a point uniformly from the box.
func sampleUniform(rng *rand.Rand, b Bounds) []float64 {
	x := make([]float64, b.Dim())
	for i := range x {
		x[i] = b.Lower[i] + rng.Float64()*(b.Upper[i]-b.Lower[i])
	}

	return x
}

// flatten concatenates q rows into a single vector for the flat optimizer.
func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}

	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		out = append(out, row...)
	}

	return out
}

// unflatten splits a flat vector back into q rows of the given width.
// Panics if the lengths do not divide evenly.
func unflatten(flat []float64, q int) [][]float64 {
	if len(flat)%q != 0 {
		panic("flat vector length must be a multiple of q")
	}

	width := len(flat) / q

	rows := make([][]float64, q)
	for i := range rows {
		rows[i] = make([]float64, width)
		copy(rows[i], flat[i*width:(i+1)*width])
	}

	return rows
}

// containsFidelity reports whether s is one of the listed fidelity levels.
func containsFidelity(fidelities []float64, s float64) bool {
	for _, f := range fidelities {
		if f == s {
			return true
		}
	}

	return false
}
