package results

import (
	"path/filepath"
	"testing"

	"github.com/hybrid-weights/tuner-core/internal/tuner"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")
	store, err := NewSQLiteStore(path, "run-test")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

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
	if len(got.Trials) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(got.Trials))
	}
	if got.Trials[0].Metrics == nil || got.Trials[0].Metrics.Correlation != 0.70 {
		t.Fatalf("metrics not round-tripped: %+v", got.Trials[0].Metrics)
	}
	if got.Trials[1].Metrics != nil {
		t.Fatal("penalty trial must have nil metrics after reload")
	}
	if got.Trials[1].FailureReason != "constraints violated" {
		t.Fatalf("failure not round-tripped: %q", got.Trials[1].FailureReason)
	}
	if got.NoImprovement != want.NoImprovement {
		t.Fatalf("counter: got %d, want %d", got.NoImprovement, want.NoImprovement)
	}
}

func TestSQLitePersistIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")
	store, err := NewSQLiteStore(path, "run-test")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	s := tuner.NewState()
	s.Record(scoredResultTrial(1, 0.20))
	if _, err := store.Persist(s); err != nil {
		t.Fatalf("first Persist: %v", err)
	}

	// Checkpoints re-persist the whole history; rows must upsert, not pile up.
	s.Record(scoredResultTrial(2, 0.35))
	if _, err := store.Persist(s); err != nil {
		t.Fatalf("second Persist: %v", err)
	}
	if _, err := store.Persist(s); err != nil {
		t.Fatalf("third Persist: %v", err)
	}

	got, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if len(got.Trials) != 2 {
		t.Fatalf("expected 2 trials after repeated persists, got %d", len(got.Trials))
	}
	if got.BestObjective != 0.35 {
		t.Fatalf("expected best 0.35, got %f", got.BestObjective)
	}
}

func TestSQLiteLoadLatestEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")
	store, err := NewSQLiteStore(path, "")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if store.RunID() == "" {
		t.Fatal("expected generated run ID")
	}
	if _, err := store.LoadLatest(); err != ErrNoSnapshot {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSQLiteLoadLatestPicksNewestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")

	first, err := NewSQLiteStore(path, "run-a")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	sa := tuner.NewState()
	sa.Record(scoredResultTrial(1, 0.10))
	if _, err := first.Persist(sa); err != nil {
		t.Fatalf("Persist run-a: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(path, "run-b")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer second.Close()
	sb := tuner.NewState()
	sb.Record(scoredResultTrial(1, 0.10))
	sb.Record(scoredResultTrial(2, 0.50))
	if _, err := second.Persist(sb); err != nil {
		t.Fatalf("Persist run-b: %v", err)
	}

	got, err := second.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if len(got.Trials) != 2 || got.BestObjective != 0.50 {
		t.Fatalf("expected run-b state (2 trials, best 0.50), got %d trials best %f",
			len(got.Trials), got.BestObjective)
	}
}
