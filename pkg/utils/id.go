package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a run ID with a timestamp prefix, e.g.
// "run-20250115-093041-1b9d6bcd". The suffix makes IDs from runs started
// within the same second distinct.
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("run-%s-%s", timestamp, uuid.NewString()[:8])
}

// GenerateTrialID derives a per-trial identifier from a run ID and a
// 1-based iteration index. Trial IDs key evaluation artifacts.
func GenerateTrialID(runID string, iteration int) string {
	return fmt.Sprintf("%s-%04d", runID, iteration)
}
