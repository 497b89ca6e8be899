package mfbo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoopConfig controls the sequential multi-fidelity optimization loop.
//
// Fields explanation:
//   - Iterations: Number of fit/acquire/evaluate rounds after the initial set
//   - BatchSize: Points selected and evaluated together per iteration
//   - Restarts/RawSamples: Multi-start budget of the acquisition optimizer
//   - Fantasies/Discretization: Knowledge-gradient approximation sizes
//   - TargetFidelity: Fidelity at which the true objective is defined
//   - Fidelities: Allowed discrete fidelity levels; empty means the fidelity
//     column is optimized continuously over its bounds
//   - CostAware: Score candidates by information gain per unit cost
//
// Recommended settings:
// - Iterations: 5-30 (each iteration refits the surrogate)
// - BatchSize: 1-8
// - Restarts: 2-10, RawSamples: 32-512
// - Fantasies: 8-32, Discretization: 32-256
type LoopConfig struct {
	// Iterations is the fixed iteration budget. The loop never stops early.
	Iterations int `yaml:"iterations"`

	// BatchSize is the number of points selected jointly per iteration.
	BatchSize int `yaml:"batch_size"`

	// InitialSamples is the size of the random initial design when no
	// initial dataset is supplied.
	InitialSamples int `yaml:"initial_samples"`

	// Restarts is the number of polished local searches per acquisition
	// optimization.
	Restarts int `yaml:"restarts"`

	// RawSamples is the number of random candidates scored to seed the
	// restarts.
	RawSamples int `yaml:"raw_samples"`

	// Fantasies is the number of fantasy observations per
	// knowledge-gradient evaluation.
	Fantasies int `yaml:"fantasies"`

	// Discretization is the number of random target-fidelity points the
	// conditioned posterior mean is maximized over.
	Discretization int `yaml:"discretization"`

	// TargetFidelity is the fidelity constituting the real objective.
	TargetFidelity float64 `yaml:"target_fidelity"`

	// Fidelities restricts evaluations to these levels when non-empty.
	Fidelities []float64 `yaml:"fidelities,omitempty"`

	// CostAware enables information-gain-per-cost scoring anchored on the
	// per-iteration current-value baseline.
	CostAware bool `yaml:"cost_aware"`

	// Seed drives every random draw in the run: initial design, raw
	// samples, fantasy base samples, discretization.
	Seed int64 `yaml:"seed"`

	// Numeric holds the numerical settings threaded through the surrogate.
	Numeric NumericSettings `yaml:"numeric"`

	// ProgressChan receives per-iteration updates when non-nil. Sends are
	// non-blocking; updates are dropped when the channel is full.
	ProgressChan chan<- ProgressUpdate `yaml:"-"`
}

// DefaultConfig returns a configuration suitable for objectives on the
// unit cube with the target fidelity at 1.
func DefaultConfig() LoopConfig {
	return LoopConfig{
		Iterations:     10,
		BatchSize:      4,
		InitialSamples: 16,
		Restarts:       4,
		RawSamples:     128,
		Fantasies:      16,
		Discretization: 64,
		TargetFidelity: 1.0,
		CostAware:      true,
		Seed:           1,
		Numeric:        DefaultNumericSettings(),
	}
}

// LoadConfig reads a YAML configuration file over the defaults and
// validates the result.
func LoadConfig(path string) (LoopConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the loop cannot run with.
func (c LoopConfig) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", c.Iterations)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}

	if c.InitialSamples < 1 {
		return fmt.Errorf("initial_samples must be at least 1, got %d", c.InitialSamples)
	}

	if c.Restarts < 1 || c.RawSamples < 1 {
		return fmt.Errorf("restarts and raw_samples must be at least 1, got %d and %d", c.Restarts, c.RawSamples)
	}

	if c.Fantasies < 1 || c.Discretization < 1 {
		return fmt.Errorf("fantasies and discretization must be at least 1, got %d and %d", c.Fantasies, c.Discretization)
	}

	if c.TargetFidelity < 0 || c.TargetFidelity > 1 {
		return fmt.Errorf("target_fidelity must be in [0, 1], got %g", c.TargetFidelity)
	}

	for _, s := range c.Fidelities {
		if s < 0 || s > 1 {
			return fmt.Errorf("fidelity levels must be in [0, 1], got %g", s)
		}
	}

	if len(c.Fidelities) > 0 && !containsFidelity(c.Fidelities, c.TargetFidelity) {
		return fmt.Errorf("target_fidelity %g must be one of the discrete fidelity levels %v",
			c.TargetFidelity, c.Fidelities)
	}

	if c.Numeric.Jitter <= 0 || c.Numeric.MaxJitter < c.Numeric.Jitter {
		return fmt.Errorf("jitter must be positive and max_jitter at least jitter, got %g and %g",
			c.Numeric.Jitter, c.Numeric.MaxJitter)
	}

	return nil
}
