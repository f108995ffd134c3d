package tuner

import (
	"github.com/hybrid-weights/tuner-core/internal/evaluator"
	"github.com/hybrid-weights/tuner-core/internal/objective"
	"github.com/hybrid-weights/tuner-core/internal/space"
)

// Trial is the immutable record of one loop iteration.
type Trial struct {
	Iteration     int // 1-based
	Candidate     space.Candidate
	Objective     float64
	Feasible      bool
	Metrics       *evaluator.Metrics // nil for infeasible or failed trials
	FailureReason string             // empty for scored trials
}

// State is the mutable optimization state owned by the loop: the running
// best, the consecutive-no-improvement counter, and the full trial history.
// BestCandidate stays nil until some trial is actually scored above the
// penalty floor.
type State struct {
	BestObjective float64
	BestCandidate *space.Candidate
	BestTrial     *Trial
	NoImprovement int
	Trials        []Trial
}

// NewState creates an empty optimization state. The best objective starts at
// the penalty floor so penalized trials can never become the best.
func NewState() *State {
	return &State{
		BestObjective: -objective.PenaltyScore,
	}
}

// Record appends a trial and updates best-so-far and the no-improvement
// counter. Improvement is strict: an equal score does not reset the counter.
// Returns true when the trial improved on the running best.
func (s *State) Record(t Trial) bool {
	s.Trials = append(s.Trials, t)

	if t.Objective > s.BestObjective {
		s.BestObjective = t.Objective
		cand := t.Candidate
		s.BestCandidate = &cand
		trial := t
		s.BestTrial = &trial
		s.NoImprovement = 0
		return true
	}

	s.NoImprovement++
	return false
}

// Rebuild reconstructs loop state by replaying a trial history, recomputing
// best-so-far and the no-improvement counter rather than trusting
// denormalized snapshot fields. Used when resuming from a checkpoint.
func Rebuild(trials []Trial) *State {
	s := NewState()
	for _, t := range trials {
		s.Record(t)
	}
	return s
}
