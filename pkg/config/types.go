package config

import "time"

// Config represents the main tuner configuration
type Config struct {
	LogLevel     string        `yaml:"log_level"`
	Evaluator    *Evaluator    `yaml:"evaluator,omitempty"`
	Optimization *Optimization `yaml:"optimization,omitempty"`
	Store        *Store        `yaml:"store,omitempty"`
}

// Evaluator configures the external simulation process that scores a candidate
type Evaluator struct {
	Command    []string `yaml:"command"`
	Workdir    string   `yaml:"workdir"`
	ResultsDir string   `yaml:"results_dir"`
	Mode       string   `yaml:"mode"`    // result mode to consume, e.g. "hybrid"
	Timeout    string   `yaml:"timeout"` // e.g. "300s"
}

// Optimization configures the search loop budget and stopping policy
type Optimization struct {
	Iterations      int   `yaml:"iterations"`
	InitialPoints   int   `yaml:"initial_points"`
	Patience        int   `yaml:"patience"`
	CheckpointEvery int   `yaml:"checkpoint_every"`
	Seed            int64 `yaml:"seed"`
}

// Store configures where trial history and checkpoints are persisted
type Store struct {
	Backend string `yaml:"backend"` // json or sqlite
	Dir     string `yaml:"dir"`     // snapshot directory (json backend)
	Path    string `yaml:"path"`    // database file (sqlite backend)
}

// GetTimeout parses the evaluator timeout string to time.Duration
func (e *Evaluator) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(e.Timeout)
}

// DefaultConfig returns a configuration with all defaults applied. The
// defaults match the standalone optimization script this tool replaces.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Evaluator: &Evaluator{
			Command:    []string{"npx", "tsx", "scripts/testing/monte-carlo-contextual-bandit.ts", "testing", "Balanced"},
			Workdir:    ".",
			ResultsDir: "scripts/testing/results",
			Mode:       "hybrid",
			Timeout:    "300s",
		},
		Optimization: &Optimization{
			Iterations:      150,
			InitialPoints:   25,
			Patience:        25,
			CheckpointEvery: 10,
			Seed:            42,
		},
		Store: &Store{
			Backend: "json",
			Dir:     "results",
			Path:    "results/trials.db",
		},
	}
}

// applyDefaults fills unset sections and fields from DefaultConfig
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = def.Evaluator
	} else {
		if len(cfg.Evaluator.Command) == 0 {
			cfg.Evaluator.Command = def.Evaluator.Command
		}
		if cfg.Evaluator.Workdir == "" {
			cfg.Evaluator.Workdir = def.Evaluator.Workdir
		}
		if cfg.Evaluator.ResultsDir == "" {
			cfg.Evaluator.ResultsDir = def.Evaluator.ResultsDir
		}
		if cfg.Evaluator.Mode == "" {
			cfg.Evaluator.Mode = def.Evaluator.Mode
		}
		if cfg.Evaluator.Timeout == "" {
			cfg.Evaluator.Timeout = def.Evaluator.Timeout
		}
	}
	if cfg.Optimization == nil {
		cfg.Optimization = def.Optimization
	} else {
		if cfg.Optimization.Iterations == 0 {
			cfg.Optimization.Iterations = def.Optimization.Iterations
		}
		if cfg.Optimization.InitialPoints == 0 {
			cfg.Optimization.InitialPoints = def.Optimization.InitialPoints
		}
		if cfg.Optimization.Patience == 0 {
			cfg.Optimization.Patience = def.Optimization.Patience
		}
		if cfg.Optimization.CheckpointEvery == 0 {
			cfg.Optimization.CheckpointEvery = def.Optimization.CheckpointEvery
		}
		if cfg.Optimization.Seed == 0 {
			cfg.Optimization.Seed = def.Optimization.Seed
		}
	}
	if cfg.Store == nil {
		cfg.Store = def.Store
	} else {
		if cfg.Store.Backend == "" {
			cfg.Store.Backend = def.Store.Backend
		}
		if cfg.Store.Dir == "" {
			cfg.Store.Dir = def.Store.Dir
		}
		if cfg.Store.Path == "" {
			cfg.Store.Path = def.Store.Path
		}
	}
}
