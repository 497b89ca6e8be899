// Package mfbo provides sequential multi-fidelity Bayesian optimization:
// it maximizes an expensive black-box objective by trading off cheap,
// approximate low-fidelity evaluations against accurate, expensive
// high-fidelity ones.
//
// # Features
//
// The package includes the following key features:
//
//   - Gaussian Process Surrogate: Exact GP regression with an RBF kernel,
//     hyperparameters fit by marginal-likelihood maximization
//   - Knowledge Gradient Acquisition: Scores a candidate batch by the
//     expected improvement in the best achievable posterior mean at the
//     target fidelity, optionally per unit of evaluation cost
//   - Joint Batch Selection: One acquisition optimization yields the whole
//     batch; information gain is traded off among the batch jointly
//   - Discrete and Continuous Fidelities: The fidelity column is either
//     optimized continuously or restricted to a finite set of levels
//   - Deterministic Runs: Every random draw derives from a single
//     configured seed
//   - Progress Monitoring: Per-iteration updates via channels
//
// # Usage
//
// A typical run on the bundled benchmark:
//
//	config := mfbo.DefaultConfig()
//	config.Iterations = 6
//	config.Fidelities = []float64{0.5, 0.75, 1.0}
//
//	result, err := mfbo.Optimize(
//	    config,
//	    mfbo.AugmentedHartmann6{},
//	    mfbo.DefaultCostModel(),
//	    nil, // draw the initial design from config.Seed
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(result.Recommended.X, result.Recommended.Value)
//	fmt.Println(result.CumulativeCost)
//
// # Structure
//
// The loop composes three capability interfaces, each with one concrete
// implementation in this package:
//
//   - Surrogate (GP): fit to the observation set, queried for posterior
//     mean, variance and covariance, and conditioned on fantasy
//     observations
//   - Acquisition (KnowledgeGradient, CostAwareKG, PosteriorMean, UCB,
//     ExpectedImprovement): scores candidate batches
//   - Optimizer (MultiStart): maximizes an acquisition over a bounded box,
//     or over a mixed domain with fixed fidelity levels
//
// Swapping any of them out (for example, a fake surrogate in tests) only
// requires implementing the corresponding interface.
//
// # Error Handling
//
// Numerical failures are not retried. A covariance matrix that cannot be
// factorized surfaces as an error wrapping ErrSingularCovariance and
// aborts the run; see LoopConfig.Numeric for the jitter settings that
// control how hard the factorization tries before giving up.
package mfbo
