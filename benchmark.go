package mfbo

import "math"

//////
// Const, vars, types.
//////

// Hartmann-6 coefficient tables.
var (
	hartmannAlpha = [4]float64{1.0, 1.2, 3.0, 3.2}

	hartmannA = [4][6]float64{
		{10, 3, 17, 3.5, 1.7, 8},
		{0.05, 10, 17, 0.1, 8, 14},
		{3, 3.5, 1.7, 10, 17, 8},
		{17, 8, 0.05, 10, 0.1, 14},
	}

	hartmannP = [4][6]float64{
		{0.1312, 0.1696, 0.5569, 0.0124, 0.8283, 0.5886},
		{0.2329, 0.4135, 0.8307, 0.3736, 0.1004, 0.9991},
		{0.2348, 0.1451, 0.3522, 0.2883, 0.3047, 0.6650},
		{0.4047, 0.8828, 0.8732, 0.5743, 0.1091, 0.0381},
	}
)

// AugmentedHartmann6 is the fidelity-augmented Hartmann-6 benchmark on the
// unit cube, sign-flipped so the loop maximizes it. The fidelity parameter
// s in [0, 1] perturbs the first alpha coefficient:
//
//	f(x, s) = sum_i alpha_i(s) * exp(-sum_j A_ij (x_j - P_ij)^2)
//	alpha_1(s) = alpha_1 - 0.1 * (1 - s)
//
// At s = 1 the function is the exact negated Hartmann-6, with a global
// maximum of about 3.32237 at
// x* = (0.2017, 0.1500, 0.4769, 0.2753, 0.3117, 0.6573).
type AugmentedHartmann6 struct{}

// AffineCostModel prices an evaluation as an affine function of its
// fidelity column: cost = FixedCost + Weight * s.
type AffineCostModel struct {
	FixedCost float64
	Weight    float64
}

//////
// Methods.
//////

// Dim returns the number of design dimensions.
func (AugmentedHartmann6) Dim() int {
	return 6
}

// Bounds returns the unit box over the six design dimensions plus the
// fidelity column.
func (AugmentedHartmann6) Bounds() Bounds {
	return UnitBounds(7)
}

// Evaluate maps rows of (x_1..x_6, s) to objective values. Deterministic.
func (AugmentedHartmann6) Evaluate(rows [][]float64) []float64 {
	out := make([]float64, len(rows))

	for r, row := range rows {
		s := row[6]

		var total float64

		for i := 0; i < 4; i++ {
			alpha := hartmannAlpha[i]
			if i == 0 {
				alpha -= 0.1 * (1 - s)
			}

			var exponent float64

			for j := 0; j < 6; j++ {
				diff := row[j] - hartmannP[i][j]

				exponent += hartmannA[i][j] * diff * diff
			}

			total += alpha * math.Exp(-exponent)
		}

		out[r] = total
	}

	return out
}

// Cost returns FixedCost + Weight * s for each row, where s is the last
// column.
func (c AffineCostModel) Cost(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = c.FixedCost + c.Weight*row[len(row)-1]
	}

	return out
}

//////
// Factory.
//////

// DefaultCostModel returns the affine cost model used by the Hartmann
// benchmark runs: a fixed cost of 5 plus the fidelity.
func DefaultCostModel() AffineCostModel {
	return AffineCostModel{FixedCost: 5.0, Weight: 1.0}
}
