// Package tuner drives the ask/evaluate/tell optimization cycle: candidate
// validation, objective scoring, best-so-far tracking, early stopping, and
// incremental checkpointing.
package tuner

import (
	"context"
	"fmt"
	"time"

	"github.com/hybrid-weights/tuner-core/internal/evaluator"
	"github.com/hybrid-weights/tuner-core/internal/objective"
	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/pkg/logger"
	"github.com/hybrid-weights/tuner-core/pkg/utils"
)

// Status is the terminal state of an optimization run.
type Status string

const (
	// StatusStoppedEarly means the patience budget ran out without improvement
	StatusStoppedEarly Status = "stopped_early"
	// StatusStoppedBudget means the iteration budget was exhausted
	StatusStoppedBudget Status = "stopped_budget"
	// StatusCanceled means the surrounding context was canceled
	StatusCanceled Status = "canceled"
)

// Oracle is the surrogate search contract the loop depends on. Ask proposes
// a point in the configuration space; Tell registers the minimization score
// observed for it.
type Oracle interface {
	Ask() []float64
	Tell(x []float64, y float64)
}

// Evaluator scores a feasible candidate through the external simulation.
type Evaluator interface {
	Evaluate(ctx context.Context, c space.Candidate, trialID string) (*evaluator.Metrics, error)
}

// Store persists optimization state snapshots.
type Store interface {
	Persist(state *State) (string, error)
}

// Options configures the loop budget and stopping policy.
type Options struct {
	Iterations      int    // total iteration budget (default 150)
	Patience        int    // consecutive non-improving trials before early stop (default 25)
	CheckpointEvery int    // persistence cadence in iterations (default 10)
	RunID           string // generated when empty
}

// Result is the terminal outcome of a run. BestCandidate is nil when no
// trial was ever scored, which is a valid outcome, not an error.
type Result struct {
	Status        Status
	Reason        string
	BestCandidate *space.Candidate
	BestObjective float64
	BestTrial     *Trial
	Iterations    int
	Trials        []Trial
	Duration      time.Duration
}

// NoValidConfiguration reports whether the run ended without any scored trial.
func (r *Result) NoValidConfiguration() bool {
	return r.BestCandidate == nil
}

// Loop orchestrates the single-threaded iterate/evaluate/update cycle. Each
// iteration fully completes before the next begins; the only blocking call
// is the external evaluation, bounded by the evaluator's timeout.
type Loop struct {
	oracle    Oracle
	evaluator Evaluator
	objective objective.Function
	store     Store
	opts      Options
	progress  func(iteration int, best float64)
	state     *State
}

// NewLoop creates an optimization loop. A nil store disables checkpointing.
func NewLoop(oracle Oracle, eval Evaluator, obj objective.Function, store Store, opts Options) *Loop {
	if opts.Iterations <= 0 {
		opts.Iterations = 150
	}
	if opts.Patience <= 0 {
		opts.Patience = 25
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 10
	}
	if opts.RunID == "" {
		opts.RunID = utils.GenerateRunID()
	}
	return &Loop{
		oracle:    oracle,
		evaluator: eval,
		objective: obj,
		store:     store,
		opts:      opts,
	}
}

// WithProgressReporter sets a callback invoked after every iteration with
// the iteration index and the running best objective.
func (l *Loop) WithProgressReporter(fn func(iteration int, best float64)) *Loop {
	l.progress = fn
	return l
}

// Restore seeds the loop from a previously persisted state so a run can
// continue its counters and best-so-far instead of restarting cold.
func (l *Loop) Restore(state *State) {
	l.state = state
}

// Run executes the optimization until early stop, budget exhaustion, or
// context cancellation.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if l.state == nil {
		l.state = NewState()
	}

	iter := len(l.state.Trials)
	if iter > 0 {
		logger.Info("resuming optimization",
			"run_id", l.opts.RunID,
			"completed_iterations", iter,
			"best_objective", l.state.BestObjective)
	}

	for iter < l.opts.Iterations {
		select {
		case <-ctx.Done():
			l.checkpoint()
			return l.result(StatusCanceled, ctx.Err().Error(), start), nil
		default:
		}

		iter++
		x := l.oracle.Ask()
		candidate := space.FromVector(x)

		trial := Trial{Iteration: iter, Candidate: candidate}
		var minScore float64

		if !space.Validate(candidate) {
			trial.Objective = -objective.PenaltyScore
			trial.FailureReason = "constraints violated"
			minScore = objective.PenaltyScore
			logger.Warn("infeasible candidate",
				"run_id", l.opts.RunID,
				"iteration", iter,
				"candidate", fmt.Sprintf("%+v", candidate))
		} else {
			trial.Feasible = true
			trialID := utils.GenerateTrialID(l.opts.RunID, iter)
			metrics, err := l.evaluator.Evaluate(ctx, candidate, trialID)
			if err != nil {
				trial.Objective = -objective.PenaltyScore
				trial.FailureReason = err.Error()
				minScore = objective.PenaltyScore
			} else {
				trial.Metrics = metrics
				trial.Objective = l.objective.Score(*metrics)
				minScore = -trial.Objective
			}
		}

		l.oracle.Tell(x, minScore)

		if l.state.Record(trial) {
			logger.Info("new best configuration",
				"run_id", l.opts.RunID,
				"iteration", iter,
				"objective", trial.Objective)
		}
		logger.Info("iteration complete",
			"run_id", l.opts.RunID,
			"iteration", iter,
			"objective", trial.Objective,
			"best_objective", l.state.BestObjective,
			"no_improvement", l.state.NoImprovement)
		if l.progress != nil {
			l.progress(iter, l.state.BestObjective)
		}

		// Patience only applies once some trial has actually been scored;
		// an all-penalty run must exhaust the budget and report no valid
		// configuration rather than stop early against a floor best.
		if l.state.BestCandidate != nil && l.state.NoImprovement >= l.opts.Patience {
			l.checkpoint()
			reason := fmt.Sprintf("no improvement for %d iterations", l.opts.Patience)
			logger.Info("early stopping", "run_id", l.opts.RunID, "iteration", iter, "reason", reason)
			return l.result(StatusStoppedEarly, reason, start), nil
		}

		if iter%l.opts.CheckpointEvery == 0 {
			l.checkpoint()
		}
	}

	l.checkpoint()
	return l.result(StatusStoppedBudget, "iteration budget exhausted", start), nil
}

// checkpoint persists the current state. A persistence failure is logged and
// skipped: optimization progress is worth more than a missed checkpoint.
func (l *Loop) checkpoint() {
	if l.store == nil {
		return
	}
	location, err := l.store.Persist(l.state)
	if err != nil {
		logger.Warn("checkpoint failed, continuing",
			"run_id", l.opts.RunID,
			"error", err)
		return
	}
	logger.Debug("checkpoint written", "run_id", l.opts.RunID, "location", location)
}

func (l *Loop) result(status Status, reason string, start time.Time) *Result {
	res := &Result{
		Status:        status,
		Reason:        reason,
		BestObjective: l.state.BestObjective,
		Iterations:    len(l.state.Trials),
		Trials:        l.state.Trials,
		Duration:      time.Since(start),
	}
	if l.state.BestCandidate != nil {
		cand := *l.state.BestCandidate
		res.BestCandidate = &cand
	}
	if l.state.BestTrial != nil {
		trial := *l.state.BestTrial
		res.BestTrial = &trial
	}
	return res
}
