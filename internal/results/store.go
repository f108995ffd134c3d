// Package results persists trial history and the current best configuration
// in a resumable format. Two backends exist: timestamped JSON snapshot files
// and a SQLite trial database.
package results

import (
	"errors"

	"github.com/hybrid-weights/tuner-core/internal/evaluator"
	"github.com/hybrid-weights/tuner-core/internal/space"
	"github.com/hybrid-weights/tuner-core/internal/tuner"
)

// ErrNoSnapshot is returned by LoadLatest when nothing has been persisted.
var ErrNoSnapshot = errors.New("no snapshot found")

// Store persists optimization state and can seed a future run from the last
// persisted trial history.
type Store interface {
	// Persist writes a complete, self-contained snapshot of the state and
	// returns its location.
	Persist(state *tuner.State) (string, error)

	// LoadLatest reconstructs loop state from the most recent snapshot.
	LoadLatest() (*tuner.State, error)
}

// candidateJSON is the wire form of a candidate. The phase boundary fields
// are integers on the wire.
type candidateJSON struct {
	InitialWeight float64 `json:"initial_weight"`
	Phase1End     int     `json:"phase1_end"`
	Phase2End     int     `json:"phase2_end"`
	Phase1Target  float64 `json:"phase1_target"`
	Phase2Target  float64 `json:"phase2_target"`
	MaxWeight     float64 `json:"max_weight"`
}

func encodeCandidate(c space.Candidate) candidateJSON {
	return candidateJSON{
		InitialWeight: c.InitialWeight,
		Phase1End:     c.Phase1End,
		Phase2End:     c.Phase2End,
		Phase1Target:  c.Phase1Target,
		Phase2Target:  c.Phase2Target,
		MaxWeight:     c.MaxWeight,
	}
}

func decodeCandidate(c candidateJSON) space.Candidate {
	return space.Candidate{
		InitialWeight: c.InitialWeight,
		Phase1End:     c.Phase1End,
		Phase2End:     c.Phase2End,
		Phase1Target:  c.Phase1Target,
		Phase2Target:  c.Phase2Target,
		MaxWeight:     c.MaxWeight,
	}
}

type metricsJSON struct {
	Correlation float64 `json:"correlation"`
	RMSE        float64 `json:"rmse"`
	MAE         float64 `json:"mae"`
	AvgRegret   float64 `json:"avg_regret"`
}

func encodeMetrics(m *evaluator.Metrics) *metricsJSON {
	if m == nil {
		return nil
	}
	return &metricsJSON{
		Correlation: m.Correlation,
		RMSE:        m.RMSE,
		MAE:         m.MAE,
		AvgRegret:   m.AvgRegret,
	}
}

func decodeMetrics(m *metricsJSON) *evaluator.Metrics {
	if m == nil {
		return nil
	}
	return &evaluator.Metrics{
		Correlation: m.Correlation,
		RMSE:        m.RMSE,
		MAE:         m.MAE,
		AvgRegret:   m.AvgRegret,
	}
}
