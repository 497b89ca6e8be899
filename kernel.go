package mfbo

import "math"

// rbfKernel is the squared-exponential (RBF) covariance over full d+1
// inputs, fidelity column included.
//
// Mathematical formula:
//
//	k(x1, x2) = scale · exp(-sum((x1 - x2)^2) / (2 * lengthscale^2))
//
// Important notes:
// - Panics if input vectors have different lengths
// - Returns scale for identical points
// - Returns values close to 0.0 for distant points
type rbfKernel struct {
	// lengthscale controls how quickly correlation decays with distance.
	// Larger values = smoother interpolation.
	lengthscale float64

	// scale is the signal variance (the kernel value at zero distance).
	scale float64
}

func (k rbfKernel) eval(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return k.scale * math.Exp(-sum/(2*k.lengthscale*k.lengthscale))
}
