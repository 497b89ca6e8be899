package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thalesfsp/mfbo"
)

var (
	// CLI flags; config file values take precedence over defaults, flags
	// take precedence over both.
	configPath     string    // Path to an optional YAML config file
	iterations     int       // Number of optimization iterations
	batchSize      int       // Points evaluated jointly per iteration
	initialSamples int       // Size of the random initial design
	seed           int64     // Seed for all random draws
	logLevel       string    // Log verbosity level
	fidelities     []float64 // Discrete fidelity levels; empty = continuous
	targetFidelity float64   // Fidelity of the true objective
	costAware      bool      // Score candidates per unit cost
	fixedCost      float64   // Fixed cost per evaluation
	costWeight     float64   // Cost per unit of fidelity
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "mfbo",
	Short: "Multi-fidelity Bayesian optimization of the Hartmann-6 benchmark",
}

// runCmd executes one optimization run using parameters from CLI flags.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the optimization loop",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		config := mfbo.DefaultConfig()

		if configPath != "" {
			config, err = mfbo.LoadConfig(configPath)
			if err != nil {
				logrus.Fatalf("Unable to load config: %v", err)
			}
		}

		// Flags set explicitly on the command line win over the file.
		if cmd.Flags().Changed("iterations") {
			config.Iterations = iterations
		}
		if cmd.Flags().Changed("batch-size") {
			config.BatchSize = batchSize
		}
		if cmd.Flags().Changed("initial-samples") {
			config.InitialSamples = initialSamples
		}
		if cmd.Flags().Changed("seed") {
			config.Seed = seed
		}
		if cmd.Flags().Changed("fidelities") {
			config.Fidelities = fidelities
		}
		if cmd.Flags().Changed("target-fidelity") {
			config.TargetFidelity = targetFidelity
		}
		if cmd.Flags().Changed("cost-aware") {
			config.CostAware = costAware
		}

		cost := mfbo.AffineCostModel{FixedCost: fixedCost, Weight: costWeight}

		logrus.Infof("Starting optimization: iterations=%d batch=%d initial=%d fidelities=%v target=%g seed=%d",
			config.Iterations, config.BatchSize, config.InitialSamples,
			config.Fidelities, config.TargetFidelity, config.Seed)

		result, err := mfbo.Optimize(config, mfbo.AugmentedHartmann6{}, cost, nil)
		if err != nil {
			logrus.Fatalf("Optimization failed: %v", err)
		}

		logrus.Infof("Observations: %d, cumulative cost: %.3f", result.Data.Len(), result.CumulativeCost)
		logrus.Infof("Recommendation: x=%v fidelity=%g value=%.6f",
			result.Recommended.X, result.Recommended.Fidelity, result.Recommended.Value)
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	runCmd.Flags().IntVar(&iterations, "iterations", 6, "number of optimization iterations")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 4, "points evaluated jointly per iteration")
	runCmd.Flags().IntVar(&initialSamples, "initial-samples", 16, "size of the random initial design")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "seed for all random draws")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log verbosity (debug, info, warn, error)")
	runCmd.Flags().Float64SliceVar(&fidelities, "fidelities", []float64{0.5, 0.75, 1.0}, "discrete fidelity levels; empty for continuous fidelity")
	runCmd.Flags().Float64Var(&targetFidelity, "target-fidelity", 1.0, "fidelity of the true objective")
	runCmd.Flags().BoolVar(&costAware, "cost-aware", true, "score candidates by gain per unit cost")
	runCmd.Flags().Float64Var(&fixedCost, "fixed-cost", 5.0, "fixed cost per evaluation")
	runCmd.Flags().Float64Var(&costWeight, "cost-weight", 1.0, "cost per unit of fidelity")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
