package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hybrid-weights/tuner-core/internal/tuner"
)

const snapshotPattern = "optimization_results_*.json"

// trialJSON is one entry of the snapshot's ordered trial list. Metrics and
// failure detail are optional extras beyond the core checkpoint fields; they
// make a resumed run's history fully faithful.
type trialJSON struct {
	Iteration int            `json:"iteration"`
	Params    candidateJSON  `json:"params"`
	Objective float64        `json:"objective"`
	IsValid   bool           `json:"is_valid"`
	Metrics   *metricsJSON   `json:"metrics,omitempty"`
	Failure   string         `json:"failure,omitempty"`
}

type snapshotJSON struct {
	Timestamp     string         `json:"timestamp"`
	BestConfig    *candidateJSON `json:"best_config"`
	BestObjective *float64       `json:"best_objective"`
	AllResults    []trialJSON    `json:"all_results"`
}

// SnapshotStore writes complete timestamped JSON snapshots. Every persist
// call produces a self-contained file, so a partially written snapshot can
// never corrupt earlier ones.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates the snapshot directory if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Persist writes the state as a new snapshot file and returns its path.
func (s *SnapshotStore) Persist(state *tuner.State) (string, error) {
	now := time.Now().UTC()

	snap := snapshotJSON{
		Timestamp:  now.Format(time.RFC3339),
		AllResults: make([]trialJSON, 0, len(state.Trials)),
	}
	if state.BestCandidate != nil {
		best := encodeCandidate(*state.BestCandidate)
		snap.BestConfig = &best
		obj := state.BestObjective
		snap.BestObjective = &obj
	}
	for _, t := range state.Trials {
		snap.AllResults = append(snap.AllResults, trialJSON{
			Iteration: t.Iteration,
			Params:    encodeCandidate(t.Candidate),
			Objective: t.Objective,
			IsValid:   t.Feasible,
			Metrics:   encodeMetrics(t.Metrics),
			Failure:   t.FailureReason,
		})
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	path := s.snapshotPath(now)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return path, nil
}

// snapshotPath picks a timestamped filename, disambiguating snapshots
// written within the same second.
func (s *SnapshotStore) snapshotPath(now time.Time) string {
	stamp := now.Format("20060102_150405")
	path := filepath.Join(s.dir, fmt.Sprintf("optimization_results_%s.json", stamp))
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.dir, fmt.Sprintf("optimization_results_%s_%d.json", stamp, n))
	}
}

// LoadLatest reconstructs loop state from the most recently modified
// snapshot, replaying the trial history to recompute best-so-far and the
// no-improvement counter.
func (s *SnapshotStore) LoadLatest() (*tuner.State, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, snapshotPattern))
	if err != nil {
		return nil, fmt.Errorf("glob snapshots: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNoSnapshot
	}

	latest := ""
	var latestMod int64
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().UnixNano() > latestMod {
			latest = path
			latestMod = info.ModTime().UnixNano()
		}
	}
	if latest == "" {
		return nil, ErrNoSnapshot
	}

	data, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", latest, err)
	}
	var snap snapshotJSON
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", latest, err)
	}

	trials := make([]tuner.Trial, 0, len(snap.AllResults))
	for _, t := range snap.AllResults {
		trials = append(trials, tuner.Trial{
			Iteration:     t.Iteration,
			Candidate:     decodeCandidate(t.Params),
			Objective:     t.Objective,
			Feasible:      t.IsValid,
			Metrics:       decodeMetrics(t.Metrics),
			FailureReason: t.Failure,
		})
	}
	return tuner.Rebuild(trials), nil
}
