package mfbo

//////
// Const, vars, types.
//////

// Observation is a single evaluation of the objective: a design vector, the
// fidelity it was evaluated at, and the observed value.
//
// Fields:
// - X: Design vector (length d, the non-fidelity dimensions)
// - Fidelity: Fidelity the objective was evaluated at, in [0, 1]
// - Value: Observed objective value (higher is better)
type Observation struct {
	// X is the design vector, without the fidelity column.
	X []float64

	// Fidelity is the fidelity parameter the point was evaluated at.
	Fidelity float64

	// Value is the observed objective value.
	Value float64
}

// Row returns the full model input for this observation: the design vector
// with the fidelity appended as the last column.
func (o Observation) Row() []float64 {
	row := make([]float64, len(o.X)+1)
	copy(row, o.X)
	row[len(o.X)] = o.Fidelity

	return row
}

// Dataset is the accumulated observation set the surrogate is fit to.
// It grows monotonically: observations are appended, never mutated or pruned.
//
// Thread safety:
// - Not safe for concurrent use; the optimization loop is strictly sequential.
type Dataset struct {
	obs []Observation
}

// NumericSettings groups the numerical knobs that would otherwise live in
// ambient global state. It is threaded explicitly through every call that
// touches linear algebra.
type NumericSettings struct {
	// Jitter is the diagonal term added to the covariance matrix before
	// factorization.
	Jitter float64 `yaml:"jitter"`

	// MaxJitter bounds the jitter escalation when factorization fails.
	// Once exceeded, fitting fails with ErrSingularCovariance.
	MaxJitter float64 `yaml:"max_jitter"`

	// NoiseFloor is the minimum observation noise variance the fitting
	// routine will accept. Keeps the marginal likelihood away from the
	// noise-free degenerate corner.
	NoiseFloor float64 `yaml:"noise_floor"`
}

// Bounds describes the box domain the acquisition function is optimized
// over. The last dimension is the fidelity column.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// ProgressUpdate reports the state of the optimization loop after an
// iteration. Sent on LoopConfig.ProgressChan when one is configured.
type ProgressUpdate struct {
	// Iteration is the just-completed iteration number (1-based).
	Iteration int

	// TotalIterations is the configured iteration budget.
	TotalIterations int

	// Batch holds the observations appended this iteration.
	Batch []Observation

	// BatchCost is the summed evaluation cost of the batch.
	BatchCost float64

	// CumulativeCost is the total evaluation cost so far.
	CumulativeCost float64

	// CurrentValue is the posterior-mean baseline at the target fidelity
	// computed this iteration. Zero when the loop is not cost-aware.
	CurrentValue float64

	// AcquisitionValue is the value of the acquisition function at the
	// selected batch.
	AcquisitionValue float64
}

// Surrogate is the capability interface for the regression model the loop
// fits to the observation set. Inputs are full rows (design ‖ fidelity).
type Surrogate interface {
	// Fit trains the model on the given observation set. Must be called
	// again whenever the set changes before the model is queried.
	Fit(data *Dataset) error

	// Mean returns the posterior mean at x.
	Mean(x []float64) float64

	// Variance returns the posterior variance at x.
	Variance(x []float64) float64

	// Covariance returns the posterior covariance matrix over a batch of
	// points.
	Covariance(X [][]float64) ([][]float64, error)

	// Condition returns a new model conditioned on hypothetical
	// observations y at X, reusing the fitted hyperparameters.
	Condition(X [][]float64, y []float64) (Surrogate, error)
}

// Acquisition scores a candidate batch; the optimizer maximizes it.
// Rows are full d+1 inputs. Implementations must be deterministic so the
// optimizer sees a fixed objective.
type Acquisition interface {
	Value(batch [][]float64) float64
}

// Optimizer is the capability interface for maximizing an acquisition
// function over a bounded domain.
type Optimizer interface {
	// Maximize searches the full continuous box for the best batch of q
	// rows, using rawSamples random evaluations to seed restarts local
	// polish runs.
	Maximize(acq Acquisition, bounds Bounds, q, restarts, rawSamples int) ([][]float64, float64, error)

	// MaximizeMixed restricts the fidelity column to the given finite set:
	// each fidelity level is solved as a separate fixed-fidelity
	// sub-problem and the best-scoring result is returned.
	MaximizeMixed(acq Acquisition, bounds Bounds, q, restarts, rawSamples int, fidelities []float64) ([][]float64, float64, error)
}

// Objective is the black-box function being optimized. Evaluate maps a
// batch of full rows (design ‖ fidelity) to observed values.
type Objective interface {
	// Evaluate returns one value per input row.
	Evaluate(rows [][]float64) []float64

	// Dim returns the number of design dimensions (excluding fidelity).
	Dim() int

	// Bounds returns the box domain including the fidelity column.
	Bounds() Bounds
}

// CostModel prices evaluations. Cost returns one cost per input row;
// costs must be strictly positive.
type CostModel interface {
	Cost(rows [][]float64) []float64
}

// Result is the outcome of an optimization run.
type Result struct {
	// Data is the final observation set: the initial set plus every batch
	// the loop evaluated.
	Data *Dataset

	// CumulativeCost is the summed evaluation cost over all batches.
	// The initial set is not charged.
	CumulativeCost float64

	// Recommended is the final recommendation: the posterior-mean maximizer
	// at the target fidelity, with Value set to the true objective value
	// there. It is reported, not appended to Data.
	Recommended Observation
}

//////
// Methods.
//////

// NewDataset creates a dataset from the given observations.
func NewDataset(obs ...Observation) *Dataset {
	d := &Dataset{}
	d.Append(obs...)

	return d
}

// Append adds observations to the set. Design vectors are deep-copied so
// callers cannot mutate stored data.
func (d *Dataset) Append(obs ...Observation) {
	for _, o := range obs {
		x := make([]float64, len(o.X))
		copy(x, o.X)

		d.obs = append(d.obs, Observation{X: x, Fidelity: o.Fidelity, Value: o.Value})
	}
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return len(d.obs)
}

// Dim returns the design dimension d, or 0 for an empty set.
func (d *Dataset) Dim() int {
	if len(d.obs) == 0 {
		return 0
	}

	return len(d.obs[0].X)
}

// Rows returns the full model inputs, one d+1 row per observation.
func (d *Dataset) Rows() [][]float64 {
	rows := make([][]float64, len(d.obs))
	for i, o := range d.obs {
		rows[i] = o.Row()
	}

	return rows
}

// Values returns the observed values in insertion order.
func (d *Dataset) Values() []float64 {
	ys := make([]float64, len(d.obs))
	for i, o := range d.obs {
		ys[i] = o.Value
	}

	return ys
}

// Observations returns a copy of the stored observations.
func (d *Dataset) Observations() []Observation {
	out := make([]Observation, len(d.obs))
	copy(out, d.obs)

	return out
}

// Clone returns an independent copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	return NewDataset(d.obs...)
}

// Dim returns the number of dimensions of the box, fidelity included.
func (b Bounds) Dim() int {
	return len(b.Lower)
}

// Clamp projects x onto the box, in place, and returns it.
func (b Bounds) Clamp(x []float64) []float64 {
	for i := range x {
		x[i] = clamp(x[i], b.Lower[i], b.Upper[i])
	}

	return x
}

// Design returns the bounds restricted to the design dimensions, dropping
// the fidelity column.
func (b Bounds) Design() Bounds {
	n := b.Dim() - 1

	return Bounds{Lower: b.Lower[:n], Upper: b.Upper[:n]}
}

//////
// Factory.
//////

// DefaultNumericSettings returns settings suitable for inputs normalized
// to the unit cube.
func DefaultNumericSettings() NumericSettings {
	return NumericSettings{
		Jitter:     1e-8,
		MaxJitter:  1e-3,
		NoiseFloor: 1e-6,
	}
}

// UnitBounds returns the unit box in dim dimensions (fidelity included).
func UnitBounds(dim int) Bounds {
	lower := make([]float64, dim)
	upper := make([]float64, dim)

	for i := range upper {
		upper[i] = 1
	}

	return Bounds{Lower: lower, Upper: upper}
}
