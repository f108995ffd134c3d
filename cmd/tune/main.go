package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hybrid-weights/tuner-core/internal/evaluator"
	"github.com/hybrid-weights/tuner-core/internal/objective"
	"github.com/hybrid-weights/tuner-core/internal/results"
	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/internal/surrogate"
	"github.com/hybrid-weights/tuner-core/internal/tuner"
	"github.com/hybrid-weights/tuner-core/pkg/config"
	"github.com/hybrid-weights/tuner-core/pkg/logger"
	"github.com/hybrid-weights/tuner-core/pkg/utils"
)

func main() {
	var configPath string
	var logLevel string
	var nIter int
	var nInitial int
	var resume bool

	flag.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.IntVar(&nIter, "n-iter", 0, "total iteration budget (overrides config)")
	flag.IntVar(&nInitial, "n-initial", 0, "random initial points before the model takes over (overrides config)")
	flag.BoolVar(&resume, "resume", false, "continue from the latest persisted snapshot")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if nIter > 0 {
		cfg.Optimization.Iterations = nIter
	}
	if nInitial > 0 {
		cfg.Optimization.InitialPoints = nInitial
	}

	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, resume); err != nil {
		logger.Error("optimization failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

func run(ctx context.Context, cfg *config.Config, resume bool) error {
	runID := utils.GenerateRunID()

	store, closeStore, err := buildStore(cfg.Store, runID)
	if err != nil {
		return err
	}
	defer closeStore()

	timeout, err := cfg.Evaluator.GetTimeout()
	if err != nil {
		return fmt.Errorf("evaluator timeout: %w", err)
	}
	bridge, err := evaluator.NewBridge(evaluator.Options{
		Command:    cfg.Evaluator.Command,
		Workdir:    cfg.Evaluator.Workdir,
		ResultsDir: cfg.Evaluator.ResultsDir,
		Mode:       cfg.Evaluator.Mode,
		Timeout:    timeout,
	})
	if err != nil {
		return fmt.Errorf("evaluator: %w", err)
	}

	oracle := surrogate.NewGP(space.Dimensions(), cfg.Optimization.Seed, cfg.Optimization.InitialPoints)

	loop := tuner.NewLoop(oracle, bridge, objective.New(), store, tuner.Options{
		Iterations:      cfg.Optimization.Iterations,
		Patience:        cfg.Optimization.Patience,
		CheckpointEvery: cfg.Optimization.CheckpointEvery,
		RunID:           runID,
	}).WithProgressReporter(func(iteration int, best float64) {
		fmt.Printf("iteration %d/%d  best=%.4f\n", iteration, cfg.Optimization.Iterations, best)
	})

	if resume {
		state, err := store.LoadLatest()
		if err == results.ErrNoSnapshot {
			logger.Info("no previous snapshot, starting fresh", "run_id", runID)
		} else if err != nil {
			return fmt.Errorf("resume: %w", err)
		} else {
			// Replay the restored trials into the oracle so the model picks
			// up where the previous run left off.
			for _, t := range state.Trials {
				score := -t.Objective
				if !t.Feasible || t.FailureReason != "" {
					score = objective.PenaltyScore
				}
				oracle.Tell(t.Candidate.Vector(), score)
			}
			loop.Restore(state)
		}
	}

	logger.Info("starting optimization",
		"run_id", runID,
		"iterations", cfg.Optimization.Iterations,
		"initial_points", cfg.Optimization.InitialPoints,
		"patience", cfg.Optimization.Patience,
		"seed", cfg.Optimization.Seed)

	result, err := loop.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(result)
	return nil
}

// buildStore selects the persistence backend from configuration.
func buildStore(cfg *config.Store, runID string) (results.Store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := results.NewSQLiteStore(cfg.Path, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := results.NewSnapshotStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot store: %w", err)
		}
		return store, func() {}, nil
	}
}

func printSummary(r *tuner.Result) {
	fmt.Println()
	fmt.Printf("status:     %s (%s)\n", r.Status, r.Reason)
	fmt.Printf("iterations: %d\n", r.Iterations)
	fmt.Printf("duration:   %s\n", r.Duration.Round(time.Second))

	if r.NoValidConfiguration() {
		fmt.Println("no valid configuration found")
		return
	}

	c := r.BestCandidate
	fmt.Printf("best objective: %.4f\n", r.BestObjective)
	fmt.Printf("best configuration:\n")
	fmt.Printf("  initial_weight: %.4f\n", c.InitialWeight)
	fmt.Printf("  phase1_end:     %d\n", c.Phase1End)
	fmt.Printf("  phase2_end:     %d\n", c.Phase2End)
	fmt.Printf("  phase1_target:  %.4f\n", c.Phase1Target)
	fmt.Printf("  phase2_target:  %.4f\n", c.Phase2Target)
	fmt.Printf("  max_weight:     %.4f\n", c.MaxWeight)
	if r.BestTrial != nil && r.BestTrial.Metrics != nil {
		m := r.BestTrial.Metrics
		fmt.Printf("best metrics: correlation=%.4f rmse=%.4f mae=%.4f\n",
			m.Correlation, m.RMSE, m.MAE)
	}
}
