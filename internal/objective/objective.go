// Package objective maps raw evaluation metrics to the scalar fitness value
// the search maximizes.
package objective

import (
	"math"

	"github.com/hybrid-weights/tuner-core/internal/evaluator"
)

// Objective function weights. Correlation dominates; RMSE is scored against
// a fixed baseline and draws an escalating penalty past the quality
// threshold.
const (
	CorrelationWeight    = 0.6
	RMSEWeight           = 0.3
	RMSEBaseline         = 0.80
	RMSEPenaltyThreshold = 0.75
	RMSEPenaltySlope     = 2.0
)

// PenaltyScore is the fixed minimization score assigned to infeasible
// candidates and failed evaluations. The scored objective is mathematically
// bounded far below this magnitude under the declared parameter bounds, so
// the sentinel never collides with a legitimate score.
const PenaltyScore = 999.0

// Function scores evaluation metrics. Higher is better; the surrogate
// optimizer minimizes, so callers negate the score before telling it.
type Function interface {
	// Score computes the objective value from raw metrics.
	Score(m evaluator.Metrics) float64

	// Name returns the name of the objective function.
	Name() string
}

// CorrelationRMSE is the production objective: a weighted blend of
// correlation and RMSE distance from baseline, minus the threshold penalty.
type CorrelationRMSE struct{}

// New returns the default objective function.
func New() Function {
	return &CorrelationRMSE{}
}

func (o *CorrelationRMSE) Name() string {
	return "correlation_rmse"
}

func (o *CorrelationRMSE) Score(m evaluator.Metrics) float64 {
	correlationTerm := m.Correlation * CorrelationWeight
	rmseTerm := (RMSEBaseline - m.RMSE) * RMSEWeight
	penalty := Penalty(m.RMSE)
	return correlationTerm + rmseTerm - penalty
}

// Penalty returns the quality-threshold penalty for an RMSE value: zero at
// or below the threshold, then linear with slope RMSEPenaltySlope.
func Penalty(rmse float64) float64 {
	return math.Max(0, (rmse-RMSEPenaltyThreshold)*RMSEPenaltySlope)
}
