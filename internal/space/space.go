// Package space declares the 6-dimensional configuration space for the
// time-phased weight blending schedule and the joint feasibility predicate
// over candidate points.
package space

import "math"

// Candidate is a point in the configuration space: an initial blending
// weight that ramps through two intermediate phase targets toward a maximum
// weight, with tunable phase boundary steps.
type Candidate struct {
	InitialWeight float64
	Phase1End     int
	Phase2End     int
	Phase1Target  float64
	Phase2Target  float64
	MaxWeight     float64
}

// Dimension describes one tunable dimension: its bounds and whether it is
// integer-valued. Bounds are sampling metadata for the surrogate optimizer;
// they are not enforced by Validate.
type Dimension struct {
	Name    string
	Low     float64
	High    float64
	Integer bool
}

// Dimensions returns the fixed search space, in candidate vector order.
func Dimensions() []Dimension {
	return []Dimension{
		{Name: "initial_weight", Low: 0.40, High: 0.60},
		{Name: "phase1_end", Low: 5, High: 15, Integer: true},
		{Name: "phase2_end", Low: 15, High: 30, Integer: true},
		{Name: "phase1_target", Low: 0.55, High: 0.75},
		{Name: "phase2_target", Low: 0.75, High: 0.95},
		{Name: "max_weight", Low: 0.85, High: 0.98},
	}
}

// NumDimensions is the dimensionality of the space.
const NumDimensions = 6

// Validate reports whether a candidate satisfies the joint feasibility
// constraints:
//
//  1. phase 2 must end more than 3 steps after phase 1 ends
//  2. the weight targets must be strictly increasing across phases
//
// It is pure and does not check per-dimension bounds.
func Validate(c Candidate) bool {
	if c.Phase2End <= c.Phase1End+3 {
		return false
	}
	if !(c.InitialWeight < c.Phase1Target && c.Phase1Target < c.Phase2Target && c.Phase2Target < c.MaxWeight) {
		return false
	}
	return true
}

// Vector encodes a candidate as a point in dimension order.
func (c Candidate) Vector() []float64 {
	return []float64{
		c.InitialWeight,
		float64(c.Phase1End),
		float64(c.Phase2End),
		c.Phase1Target,
		c.Phase2Target,
		c.MaxWeight,
	}
}

// FromVector decodes a point into a candidate, rounding integer dimensions.
func FromVector(x []float64) Candidate {
	return Candidate{
		InitialWeight: x[0],
		Phase1End:     int(math.Round(x[1])),
		Phase2End:     int(math.Round(x[2])),
		Phase1Target:  x[3],
		Phase2Target:  x[4],
		MaxWeight:     x[5],
	}
}
