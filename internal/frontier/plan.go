package frontier

import "math"

// FailedCost marks a plan whose pipeline failed to run.
const FailedCost = -1.0

// PlanID identifies a plan within a single optimization run.
type PlanID int64

// Plan is a candidate pipeline variant owned by the search driver.
// The engine only annotates OnFrontier; everything else is read-only to it.
type Plan struct {
	ID         PlanID   `json:"id"`
	Cost       float64  `json:"cost"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	OnFrontier bool     `json:"on_frontier"`

	// Action is the rewrite directive that produced this plan from its parent.
	Action     string `json:"action,omitempty"`
	ConfigPath string `json:"config_path,omitempty"`

	// Driver bookkeeping
	Value  float64 `json:"value"`
	Visits int     `json:"visits"`
}

// Failed reports whether the plan carries the failure cost sentinel.
// NaN and negative costs are treated the same way.
func (p *Plan) Failed() bool {
	return p.Cost == FailedCost || p.Cost < 0 || math.IsNaN(p.Cost)
}

// Point is one (cost, accuracy) pair of a step function.
type Point struct {
	Cost     float64 `json:"cost"`
	Accuracy float64 `json:"accuracy"`
}
