package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hybrid-weights/tuner-core/internal/evaluator"
	"github.com/hybrid-weights/tuner-core/internal/objective"
	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/internal/tuner"
)

func sampleState() *tuner.State {
	s := tuner.NewState()
	s.Record(tuner.Trial{
		Iteration: 1,
		Candidate: space.Candidate{
			InitialWeight: 0.50,
			Phase1End:     10,
			Phase2End:     20,
			Phase1Target:  0.65,
			Phase2Target:  0.85,
			MaxWeight:     0.90,
		},
		Objective: 0.42,
		Feasible:  true,
		Metrics: &evaluator.Metrics{
			Correlation: 0.70,
			RMSE:        0.74,
			MAE:         0.55,
			AvgRegret:   0.02,
		},
	})
	s.Record(tuner.Trial{
		Iteration: 2,
		Candidate: space.Candidate{
			InitialWeight: 0.60,
			Phase1End:     12,
			Phase2End:     30,
			Phase1Target:  0.70,
			Phase2Target:  0.80,
			MaxWeight:     0.95,
		},
		Objective:     -objective.PenaltyScore,
		Feasible:      false,
		FailureReason: "constraints violated",
	})
	return s
}

func TestSnapshotPersistSchema(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}

	path, err := store.Persist(sampleState())
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "optimization_results_") {
		t.Fatalf("unexpected snapshot name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, raw["timestamp"].(string)); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}

	best := raw["best_config"].(map[string]any)
	if best["initial_weight"].(float64) != 0.50 {
		t.Fatalf("unexpected best initial_weight %v", best["initial_weight"])
	}
	// Integer dimensions must serialize without a fractional part.
	if string(data) == "" || !strings.Contains(string(data), `"phase1_end": 10`) {
		t.Fatal("phase1_end not encoded as integer")
	}
	if raw["best_objective"].(float64) != 0.42 {
		t.Fatalf("unexpected best_objective %v", raw["best_objective"])
	}

	all := raw["all_results"].([]any)
	if len(all) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(all))
	}
	second := all[1].(map[string]any)
	if second["is_valid"].(bool) {
		t.Fatal("penalty trial must be marked invalid")
	}
	if second["failure"].(string) != "constraints violated" {
		t.Fatalf("unexpected failure %v", second["failure"])
	}
	if _, ok := second["metrics"]; ok {
		t.Fatal("penalty trial must omit metrics")
	}
}

func TestSnapshotPersistUnsetBest(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}

	s := tuner.NewState()
	s.Record(tuner.Trial{
		Iteration:     1,
		Candidate:     space.Candidate{InitialWeight: 0.5, Phase1End: 10, Phase2End: 20, Phase1Target: 0.65, Phase2Target: 0.85, MaxWeight: 0.9},
		Objective:     -objective.PenaltyScore,
		Feasible:      false,
		FailureReason: "constraints violated",
	})

	path, err := store.Persist(s)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if raw["best_config"] != nil {
		t.Fatalf("expected null best_config, got %v", raw["best_config"])
	}
	if raw["best_objective"] != nil {
		t.Fatalf("expected null best_objective, got %v", raw["best_objective"])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}

	want := sampleState()
	if _, err := store.Persist(want); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if got.BestObjective != want.BestObjective {
		t.Fatalf("best objective: got %f, want %f", got.BestObjective, want.BestObjective)
	}
	if got.BestCandidate == nil || *got.BestCandidate != *want.BestCandidate {
		t.Fatalf("best candidate: got %+v, want %+v", got.BestCandidate, want.BestCandidate)
	}
	if got.NoImprovement != want.NoImprovement {
		t.Fatalf("counter: got %d, want %d", got.NoImprovement, want.NoImprovement)
	}
	if len(got.Trials) != len(want.Trials) {
		t.Fatalf("trials: got %d, want %d", len(got.Trials), len(want.Trials))
	}
	if got.Trials[0].Metrics == nil || got.Trials[0].Metrics.RMSE != 0.74 {
		t.Fatalf("metrics not round-tripped: %+v", got.Trials[0].Metrics)
	}
	if got.Trials[1].FailureReason != "constraints violated" {
		t.Fatalf("failure not round-tripped: %q", got.Trials[1].FailureReason)
	}
}

func TestSnapshotLoadLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}

	first := tuner.NewState()
	first.Record(scoredResultTrial(1, 0.10))
	p1, err := store.Persist(first)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	second := tuner.NewState()
	second.Record(scoredResultTrial(1, 0.10))
	second.Record(scoredResultTrial(2, 0.30))
	p2, err := store.Persist(second)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(p1, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	now := time.Now()
	if err := os.Chtimes(p2, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if len(got.Trials) != 2 || got.BestObjective != 0.30 {
		t.Fatalf("expected newest snapshot (2 trials, best 0.30), got %d trials best %f",
			len(got.Trials), got.BestObjective)
	}
}

func TestSnapshotLoadLatestEmpty(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	if _, err := store.LoadLatest(); err != ErrNoSnapshot {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func scoredResultTrial(iteration int, obj float64) tuner.Trial {
	return tuner.Trial{
		Iteration: iteration,
		Candidate: space.Candidate{
			InitialWeight: 0.50,
			Phase1End:     10,
			Phase2End:     20,
			Phase1Target:  0.65,
			Phase2Target:  0.85,
			MaxWeight:     0.90,
		},
		Objective: obj,
		Feasible:  true,
	}
}
