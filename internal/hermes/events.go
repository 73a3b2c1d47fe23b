package hermes

import "time"

// PlanSubmitEvent is an inbound plan from a search driver on SubjectPlanSubmit.
type PlanSubmitEvent struct {
	RunID      string   `json:"run_id"`
	PlanID     int64    `json:"plan_id"`
	ParentID   *int64   `json:"parent_id,omitempty"`
	Cost       float64  `json:"cost"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Action     string   `json:"action,omitempty"`
	ConfigPath string   `json:"config_path,omitempty"`
	Value      float64  `json:"value,omitempty"`
	Visits     int      `json:"visits,omitempty"`
}

type RunCreatedEvent struct {
	RunID   string   `json:"run_id"`
	Name    string   `json:"name"`
	Actions []string `json:"actions,omitempty"`
}

type RunClosedEvent struct {
	RunID        string  `json:"run_id"`
	Plans        int     `json:"plans"`
	FrontierSize int     `json:"frontier_size"`
	BestAccuracy float64 `json:"best_accuracy"`
}

type PlanIngestedEvent struct {
	RunID      string             `json:"run_id"`
	PlanID     int64              `json:"plan_id"`
	Cost       float64            `json:"cost"`
	Accuracy   float64            `json:"accuracy"`
	OnFrontier bool               `json:"on_frontier"`
	Action     string             `json:"action,omitempty"`
	Credits    map[string]float64 `json:"credits,omitempty"`
}

type PlanRejectedEvent struct {
	RunID  string  `json:"run_id"`
	PlanID int64   `json:"plan_id"`
	Cost   float64 `json:"cost"`
}

type FrontierChangedEvent struct {
	RunID    string  `json:"run_id"`
	PlanID   int64   `json:"plan_id"`
	Frontier []int64 `json:"frontier"`
}

type ActionCreditedEvent struct {
	RunID  string  `json:"run_id"`
	PlanID int64   `json:"plan_id"`
	Action string  `json:"action"`
	Reward float64 `json:"reward"`
}

type StatsEvent struct {
	OpenRuns     int       `json:"open_runs"`
	Plans        int       `json:"plans"`
	FailedPlans  int       `json:"failed_plans"`
	FrontierSize int       `json:"frontier_size"`
	Timestamp    time.Time `json:"timestamp"`
}
