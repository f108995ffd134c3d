package results

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hybrid-weights/tuner-core/internal/evaluator"
	"github.com/hybrid-weights/tuner-core/internal/tuner"
	"github.com/hybrid-weights/tuner-core/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	started_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	best_objective REAL
);

CREATE TABLE IF NOT EXISTS trials (
	run_id         TEXT NOT NULL,
	iteration      INTEGER NOT NULL,
	initial_weight REAL NOT NULL,
	phase1_end     INTEGER NOT NULL,
	phase2_end     INTEGER NOT NULL,
	phase1_target  REAL NOT NULL,
	phase2_target  REAL NOT NULL,
	max_weight     REAL NOT NULL,
	objective      REAL NOT NULL,
	is_valid       INTEGER NOT NULL,
	correlation    REAL,
	rmse           REAL,
	mae            REAL,
	avg_regret     REAL,
	failure        TEXT,
	created_at     TEXT NOT NULL,
	PRIMARY KEY (run_id, iteration),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// SQLiteStore keeps trial history in a SQLite database, one row per trial.
// Persist rewrites the run's rows idempotently, so repeated checkpoints of
// the same history are safe.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	runID string
}

// NewSQLiteStore opens (creating if needed) the trial database.
func NewSQLiteStore(path, runID string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if runID == "" {
		runID = utils.GenerateRunID()
	}
	return &SQLiteStore{db: db, path: path, runID: runID}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RunID returns the run this store persists under.
func (s *SQLiteStore) RunID() string {
	return s.runID
}

// Persist writes the full trial history for the run in one transaction.
func (s *SQLiteStore) Persist(state *tuner.State) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var bestObjective any
	if state.BestCandidate != nil {
		bestObjective = state.BestObjective
	}
	_, err = tx.Exec(
		`INSERT INTO runs (run_id, started_at, updated_at, best_objective)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET updated_at = excluded.updated_at,
		                                   best_objective = excluded.best_objective`,
		s.runID, now, now, bestObjective,
	)
	if err != nil {
		return "", fmt.Errorf("upsert run: %w", err)
	}

	for _, t := range state.Trials {
		var correlation, rmse, mae, avgRegret any
		if t.Metrics != nil {
			correlation = t.Metrics.Correlation
			rmse = t.Metrics.RMSE
			mae = t.Metrics.MAE
			avgRegret = t.Metrics.AvgRegret
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO trials
			 (run_id, iteration, initial_weight, phase1_end, phase2_end,
			  phase1_target, phase2_target, max_weight, objective, is_valid,
			  correlation, rmse, mae, avg_regret, failure, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.runID, t.Iteration,
			t.Candidate.InitialWeight, t.Candidate.Phase1End, t.Candidate.Phase2End,
			t.Candidate.Phase1Target, t.Candidate.Phase2Target, t.Candidate.MaxWeight,
			t.Objective, boolToInt(t.Feasible),
			correlation, rmse, mae, avgRegret,
			t.FailureReason, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert trial %d: %w", t.Iteration, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return s.path, nil
}

// LoadLatest replays the most recently updated run's trial table.
func (s *SQLiteStore) LoadLatest() (*tuner.State, error) {
	var runID string
	err := s.db.QueryRow(
		`SELECT run_id FROM runs ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT iteration, initial_weight, phase1_end, phase2_end,
		        phase1_target, phase2_target, max_weight, objective, is_valid,
		        correlation, rmse, mae, avg_regret, failure
		 FROM trials WHERE run_id = ? ORDER BY iteration`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []tuner.Trial
	for rows.Next() {
		var t tuner.Trial
		var isValid int
		var correlation, rmse, mae, avgRegret sql.NullFloat64
		err := rows.Scan(
			&t.Iteration,
			&t.Candidate.InitialWeight, &t.Candidate.Phase1End, &t.Candidate.Phase2End,
			&t.Candidate.Phase1Target, &t.Candidate.Phase2Target, &t.Candidate.MaxWeight,
			&t.Objective, &isValid,
			&correlation, &rmse, &mae, &avgRegret, &t.FailureReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		t.Feasible = isValid != 0
		if correlation.Valid {
			t.Metrics = &evaluator.Metrics{
				Correlation: correlation.Float64,
				RMSE:        rmse.Float64,
				MAE:         mae.Float64,
				AvgRegret:   avgRegret.Float64,
			}
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}

	return tuner.Rebuild(trials), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
