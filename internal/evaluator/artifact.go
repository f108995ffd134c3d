package evaluator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// artifactPattern matches result files written by the simulation.
const artifactPattern = "cb-simulation-*.json"

// modeResult mirrors the per-mode section of a result artifact. Fields
// outside the consumed set are ignored.
type modeResult struct {
	Correlation float64 `json:"correlation"`
	RMSE        float64 `json:"rmse"`
	MAE         float64 `json:"mae"`
	Performance struct {
		AvgRegret float64 `json:"avgRegret"`
	} `json:"performance"`
}

type artifact struct {
	Modes map[string]modeResult `json:"modes"`
}

// findArtifact locates the result file for an evaluation. When a trial ID is
// given it prefers the deterministically named artifact for that trial;
// otherwise it falls back to the most recently modified match, which is only
// safe with a single loop per workspace.
func findArtifact(resultsDir, trialID string) (string, error) {
	if trialID != "" {
		keyed := filepath.Join(resultsDir, fmt.Sprintf("cb-simulation-%s.json", trialID))
		if _, err := os.Stat(keyed); err == nil {
			return keyed, nil
		}
	}

	matches, err := filepath.Glob(filepath.Join(resultsDir, artifactPattern))
	if err != nil {
		return "", fmt.Errorf("glob results dir: %w", err)
	}
	if len(matches) == 0 {
		return "", &Failure{Kind: FailureNoResult, Detail: fmt.Sprintf("no %s in %s", artifactPattern, resultsDir)}
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
		return "", &Failure{Kind: FailureNoResult, Detail: "result files disappeared during discovery"}
	}
	return latest, nil
}

// parseArtifact extracts the consumed mode's metrics from a result file.
func parseArtifact(path, mode string) (*Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Failure{Kind: FailureNoResult, Detail: fmt.Sprintf("read %s: %v", path, err)}
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &Failure{Kind: FailureParse, Detail: fmt.Sprintf("unmarshal %s: %v", path, err)}
	}

	m, ok := a.Modes[mode]
	if !ok {
		return nil, &Failure{Kind: FailureParse, Detail: fmt.Sprintf("mode %q missing in %s", mode, path)}
	}

	return &Metrics{
		Correlation: m.Correlation,
		RMSE:        m.RMSE,
		MAE:         m.MAE,
		AvgRegret:   m.Performance.AvgRegret,
	}, nil
}
