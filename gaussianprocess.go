package mfbo

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

//////
// Const, vars, types.
//////

// ErrSingularCovariance is returned when the observation covariance matrix
// cannot be factorized even after jitter escalation. It usually means the
// observation set contains (near-)duplicate rows with a noise level too
// small to separate them.
var ErrSingularCovariance = errors.New("covariance matrix is not positive definite")

// hyperFitIterations bounds the Nelder-Mead marginal-likelihood search.
const hyperFitIterations = 200

// GP is an exact Gaussian-process regressor over d+1 inputs (design vector
// plus fidelity column) with an RBF kernel. Fitting maximizes the log
// marginal likelihood over lengthscale, signal variance and observation
// noise, then factorizes the covariance once; predictions reuse the
// Cholesky factor.
//
// The model is a pure function of the observation set it was fit to:
// refitting on identical data yields numerically identical predictions.
//
// Thread safety:
// - All fields are protected by the RWMutex
// - Uses RLock for read operations (Mean, Variance, Covariance)
// - Uses Lock for Fit
type GP struct {
	// mu protects access to all fields.
	mu sync.RWMutex

	// settings holds the numerical knobs (jitter, noise floor).
	settings NumericSettings

	// kernel holds the fitted covariance parameters.
	kernel rbfKernel

	// noise is the fitted observation noise variance.
	noise float64

	// X stores the training inputs, one d+1 row per observation.
	X [][]float64

	// Y stores the raw observed values; yMean their mean, subtracted
	// before solving and added back on prediction.
	Y     []float64
	yMean float64

	// chol and alpha cache the factorized covariance and the solved
	// weights K^-1 (Y - yMean).
	chol  mat.Cholesky
	alpha *mat.VecDense

	fitted bool
}

//////
// Methods.
//////

// Fit trains the model on the observation set: it searches kernel
// hyperparameters by maximizing the log marginal likelihood with
// Nelder-Mead from a small set of fixed starting points, then factorizes
// the covariance at the best parameters found.
//
// Returns an error wrapping ErrSingularCovariance when no starting point
// yields a factorizable covariance. The search itself is deterministic, so
// fitting twice on the same data produces identical models.
func (gp *GP) Fit(data *Dataset) error {
	if data.Len() == 0 {
		return errors.New("cannot fit surrogate to an empty observation set")
	}

	X := data.Rows()
	Y := data.Values()

	var yMean float64
	for _, y := range Y {
		yMean += y
	}
	yMean /= float64(len(Y))

	yc := make([]float64, len(Y))

	var yVar float64

	for i, y := range Y {
		yc[i] = y - yMean
		yVar += yc[i] * yc[i]
	}

	yVar /= float64(len(Y))
	if yVar <= 0 {
		// Constant observations; keep the likelihood well defined.
		yVar = 1
	}

	// theta = (log lengthscale, log signal variance, log noise variance).
	// Fixed starting points keep the fit deterministic.
	inits := [][]float64{
		{math.Log(0.5), math.Log(yVar), math.Log(0.01*yVar + gp.settings.NoiseFloor)},
		{math.Log(0.2), math.Log(yVar), math.Log(0.1*yVar + gp.settings.NoiseFloor)},
		{math.Log(1.0), math.Log(yVar), math.Log(0.01*yVar + gp.settings.NoiseFloor)},
	}

	negLML := func(theta []float64) float64 {
		kern, noise := gp.paramsFromTheta(theta)

		chol, alpha, err := gp.factorize(X, yc, kern, noise)
		if err != nil {
			return math.Inf(1)
		}

		n := float64(len(yc))

		fit := mat.Dot(mat.NewVecDense(len(yc), yc), alpha)

		return 0.5*fit + 0.5*chol.LogDet() + 0.5*n*math.Log(2*math.Pi)
	}

	bestTheta := inits[0]
	bestVal := math.Inf(1)

	for _, init := range inits {
		problem := optimize.Problem{Func: negLML}

		start := make([]float64, len(init))
		copy(start, init)

		result, err := optimize.Minimize(
			problem,
			start,
			&optimize.Settings{MajorIterations: hyperFitIterations},
			&optimize.NelderMead{},
		)

		theta, val := start, negLML(start)
		if err == nil && result.F < val {
			theta, val = result.X, result.F
		}

		if val < bestVal {
			bestVal = val
			bestTheta = theta
		}
	}

	if math.IsInf(bestVal, 1) {
		return fmt.Errorf("fitting surrogate: %w", ErrSingularCovariance)
	}

	kern, noise := gp.paramsFromTheta(bestTheta)

	chol, alpha, err := gp.factorize(X, yc, kern, noise)
	if err != nil {
		return fmt.Errorf("fitting surrogate: %w", err)
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.X = X
	gp.Y = Y
	gp.yMean = yMean
	gp.kernel = kern
	gp.noise = noise
	gp.chol = chol
	gp.alpha = alpha
	gp.fitted = true

	return nil
}

// Mean returns the posterior mean at x. For an unfitted model it returns
// the prior mean, zero.
func (gp *GP) Mean(x []float64) float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.fitted {
		return 0
	}

	k := gp.kernelVector(x)

	return mat.Dot(mat.NewVecDense(len(k), k), gp.alpha) + gp.yMean
}

// Variance returns the posterior variance of the latent function at x.
// For an unfitted model it returns the prior variance.
func (gp *GP) Variance(x []float64) float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.fitted {
		return 1
	}

	k := gp.kernelVector(x)
	kv := mat.NewVecDense(len(k), k)

	var v mat.VecDense
	if err := gp.chol.SolveVecTo(&v, kv); err != nil {
		return 0
	}

	variance := gp.kernel.eval(x, x) - mat.Dot(kv, &v)
	if variance < 0 {
		variance = 0
	}

	return variance
}

// Covariance returns the posterior covariance of the latent function over
// a batch of points.
func (gp *GP) Covariance(X [][]float64) ([][]float64, error) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.fitted {
		return nil, errors.New("surrogate has not been fit")
	}

	m := len(X)
	n := len(gp.X)

	// Cross-covariance between the batch and the training set.
	kStar := mat.NewDense(n, m, nil)

	for j, x := range X {
		for i := range gp.X {
			kStar.Set(i, j, gp.kernel.eval(x, gp.X[i]))
		}
	}

	var solved mat.Dense
	if err := gp.chol.SolveTo(&solved, kStar); err != nil {
		return nil, fmt.Errorf("solving cross-covariance: %w", err)
	}

	var reduction mat.Dense
	reduction.Mul(kStar.T(), &solved)

	cov := make([][]float64, m)
	for i := range cov {
		cov[i] = make([]float64, m)
		for j := range cov[i] {
			cov[i][j] = gp.kernel.eval(X[i], X[j]) - reduction.At(i, j)
		}

		if cov[i][i] < 0 {
			cov[i][i] = 0
		}
	}

	return cov, nil
}

// Condition returns a new model that treats y as having been observed at X,
// keeping the fitted hyperparameters. Used for fantasy updates inside the
// knowledge gradient; hyperparameters are not refit.
func (gp *GP) Condition(X [][]float64, y []float64) (Surrogate, error) {
	if len(X) != len(y) {
		return nil, errors.New("conditioning inputs and values must have the same length")
	}

	gp.mu.RLock()

	if !gp.fitted {
		gp.mu.RUnlock()

		return nil, errors.New("surrogate has not been fit")
	}

	augX := make([][]float64, 0, len(gp.X)+len(X))
	augX = append(augX, gp.X...)

	for _, x := range X {
		row := make([]float64, len(x))
		copy(row, x)

		augX = append(augX, row)
	}

	augYC := make([]float64, 0, len(gp.Y)+len(y))
	for _, v := range gp.Y {
		augYC = append(augYC, v-gp.yMean)
	}

	for _, v := range y {
		augYC = append(augYC, v-gp.yMean)
	}

	cond := &GP{
		settings: gp.settings,
		kernel:   gp.kernel,
		noise:    gp.noise,
		yMean:    gp.yMean,
	}

	gp.mu.RUnlock()

	chol, alpha, err := cond.factorize(augX, augYC, cond.kernel, cond.noise)
	if err != nil {
		return nil, fmt.Errorf("conditioning surrogate: %w", err)
	}

	cond.X = augX

	cond.Y = make([]float64, len(augYC))
	for i, v := range augYC {
		cond.Y[i] = v + cond.yMean
	}

	cond.chol = chol
	cond.alpha = alpha
	cond.fitted = true

	return cond, nil
}

// kernelVector computes k(x, X_i) for every training input. Caller must
// hold at least a read lock.
func (gp *GP) kernelVector(x []float64) []float64 {
	k := make([]float64, len(gp.X))
	for i := range gp.X {
		k[i] = gp.kernel.eval(x, gp.X[i])
	}

	return k
}

// paramsFromTheta maps the unconstrained search vector to kernel and noise
// parameters, applying the noise floor.
func (gp *GP) paramsFromTheta(theta []float64) (rbfKernel, float64) {
	kern := rbfKernel{
		lengthscale: math.Exp(theta[0]),
		scale:       math.Exp(theta[1]),
	}

	noise := math.Exp(theta[2])
	if noise < gp.settings.NoiseFloor {
		noise = gp.settings.NoiseFloor
	}

	return kern, noise
}

// factorize builds the observation covariance for the given parameters and
// Cholesky-factorizes it, escalating jitter by decades up to MaxJitter
// before giving up with ErrSingularCovariance. On success it also solves
// for the prediction weights alpha = K^-1 yc.
func (gp *GP) factorize(X [][]float64, yc []float64, kern rbfKernel, noise float64) (mat.Cholesky, *mat.VecDense, error) {
	n := len(X)

	base := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			base.SetSym(i, j, kern.eval(X[i], X[j]))
		}
	}

	var chol mat.Cholesky

	for jitter := gp.settings.Jitter; jitter <= gp.settings.MaxJitter; jitter *= 10 {
		sym := mat.NewSymDense(n, nil)
		sym.CopySym(base)

		for i := 0; i < n; i++ {
			sym.SetSym(i, i, base.At(i, i)+noise+jitter)
		}

		if !chol.Factorize(sym) {
			continue
		}

		alpha := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, yc)); err != nil {
			continue
		}

		return chol, alpha, nil
	}

	return mat.Cholesky{}, nil, ErrSingularCovariance
}

//////
// Factory.
//////

// NewGP creates an unfitted Gaussian-process surrogate with the given
// numerical settings.
func NewGP(settings NumericSettings) *GP {
	return &GP{settings: settings}
}
