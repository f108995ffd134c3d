package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateEvaluator(cfg.Evaluator); err != nil {
		return fmt.Errorf("evaluator validation failed: %w", err)
	}
	if err := validateOptimization(cfg.Optimization); err != nil {
		return fmt.Errorf("optimization validation failed: %w", err)
	}
	if err := validateStore(cfg.Store); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}

	return nil
}

// validateEvaluator validates the external evaluator configuration
func validateEvaluator(e *Evaluator) error {
	if len(e.Command) == 0 {
		return fmt.Errorf("command cannot be empty")
	}
	if e.ResultsDir == "" {
		return fmt.Errorf("results_dir cannot be empty")
	}
	if e.Mode == "" {
		return fmt.Errorf("mode cannot be empty")
	}
	timeout, err := e.GetTimeout()
	if err != nil {
		return fmt.Errorf("invalid timeout %s: %w", e.Timeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", e.Timeout)
	}
	return nil
}

// validateOptimization validates the search loop configuration
func validateOptimization(o *Optimization) error {
	if o.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", o.Iterations)
	}
	if o.InitialPoints <= 0 {
		return fmt.Errorf("initial_points must be positive, got %d", o.InitialPoints)
	}
	if o.InitialPoints > o.Iterations {
		return fmt.Errorf("initial_points (%d) cannot exceed iterations (%d)", o.InitialPoints, o.Iterations)
	}
	if o.Patience <= 0 {
		return fmt.Errorf("patience must be positive, got %d", o.Patience)
	}
	if o.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint_every must be positive, got %d", o.CheckpointEvery)
	}
	return nil
}

// validateStore validates the persistence configuration
func validateStore(s *Store) error {
	switch s.Backend {
	case "json":
		if s.Dir == "" {
			return fmt.Errorf("dir cannot be empty for json backend")
		}
	case "sqlite":
		if s.Path == "" {
			return fmt.Errorf("path cannot be empty for sqlite backend")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be json or sqlite)", s.Backend)
	}
	return nil
}
