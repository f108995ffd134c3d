// Package evaluator bridges the optimization loop to the external simulation
// process that scores a candidate configuration. The process is a black box:
// the bridge injects the candidate through environment variables, bounds the
// run with a wall-clock timeout, and reads metrics back from a JSON result
// artifact.
package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/pkg/logger"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 300 * time.Second

// Metrics are the raw quality scores of one evaluation. Correlation is in
// [0,1] (higher better), RMSE is nonnegative (lower better). MAE and
// AvgRegret are carried through for the trial record but not scored.
type Metrics struct {
	Correlation float64
	RMSE        float64
	MAE         float64
	AvgRegret   float64
}

// Bridge runs the external evaluation command for a candidate.
type Bridge struct {
	command    []string
	workdir    string
	resultsDir string
	mode       string
	timeout    time.Duration
}

// Options configures a Bridge.
type Options struct {
	Command    []string // argv of the evaluation command
	Workdir    string   // working directory for the process
	ResultsDir string   // directory the process writes result artifacts into
	Mode       string   // result mode to consume
	Timeout    time.Duration
}

// NewBridge creates an evaluation bridge.
func NewBridge(opts Options) (*Bridge, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("evaluation command is required")
	}
	if opts.ResultsDir == "" {
		return nil, fmt.Errorf("results directory is required")
	}
	if opts.Mode == "" {
		opts.Mode = "hybrid"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Bridge{
		command:    opts.Command,
		workdir:    opts.Workdir,
		resultsDir: opts.ResultsDir,
		mode:       opts.Mode,
		timeout:    opts.Timeout,
	}, nil
}

// Evaluate runs the external process for a candidate and parses its result
// artifact. trialID keys the expected artifact name; it is also exported to
// the process so a cooperating evaluator can name its output
// deterministically. All failures are returned as *Failure.
func (b *Bridge) Evaluate(ctx context.Context, c space.Candidate, trialID string) (*Metrics, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, b.command[0], b.command[1:]...)
	cmd.Dir = b.workdir
	cmd.Env = append(os.Environ(), candidateEnv(c, trialID)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		logger.Warn("evaluation timed out", "trial_id", trialID, "timeout", b.timeout)
		return nil, &Failure{
			Kind:   FailureTimeout,
			Detail: fmt.Sprintf("exceeded %s", b.timeout),
			Output: stderr.String(),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		detail := err.Error()
		if errors.As(err, &exitErr) {
			detail = fmt.Sprintf("exit code %d", exitErr.ExitCode())
		}
		logger.Warn("evaluation process failed", "trial_id", trialID, "error", detail)
		return nil, &Failure{
			Kind:   FailureProcess,
			Detail: detail,
			Output: stderr.String(),
		}
	}

	path, err := findArtifact(b.resultsDir, trialID)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			return nil, f
		}
		return nil, &Failure{Kind: FailureNoResult, Detail: err.Error()}
	}

	metrics, err := parseArtifact(path, b.mode)
	if err != nil {
		return nil, err
	}

	logger.Debug("evaluation completed",
		"trial_id", trialID,
		"artifact", path,
		"correlation", metrics.Correlation,
		"rmse", metrics.RMSE,
		"elapsed", elapsed.Round(time.Millisecond))
	return metrics, nil
}

// candidateEnv renders a candidate as the environment entries the evaluated
// program reads in optimization mode.
func candidateEnv(c space.Candidate, trialID string) []string {
	env := []string{
		fmt.Sprintf("HYBRID_INITIAL_WEIGHT=%g", c.InitialWeight),
		fmt.Sprintf("HYBRID_PHASE1_END=%d", c.Phase1End),
		fmt.Sprintf("HYBRID_PHASE2_END=%d", c.Phase2End),
		fmt.Sprintf("HYBRID_PHASE1_TARGET=%g", c.Phase1Target),
		fmt.Sprintf("HYBRID_PHASE2_TARGET=%g", c.Phase2Target),
		fmt.Sprintf("HYBRID_MAX_WEIGHT=%g", c.MaxWeight),
		"HYBRID_OPTIMIZATION_MODE=true",
	}
	if trialID != "" {
		env = append(env, "HYBRID_TRIAL_ID="+trialID)
	}
	return env
}
