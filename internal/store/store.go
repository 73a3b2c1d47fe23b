package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusOpen   RunStatus = "open"
	RunStatusClosed RunStatus = "closed"
)

// Run is one optimization run: a single search over rewrites of one pipeline.
type Run struct {
	ID       uuid.UUID `json:"run_id"`
	Name     string    `json:"name"`
	DriverID string    `json:"driver_id,omitempty"`
	Status   RunStatus `json:"status"`
	Actions  []string  `json:"actions"`

	// Rollups refreshed after every ingest
	Plans        int      `json:"plans"`
	FailedPlans  int      `json:"failed_plans"`
	FrontierSize int      `json:"frontier_size"`
	BestAccuracy *float64 `json:"best_accuracy,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

type RunFilter struct {
	Status   *RunStatus
	DriverID string
	Limit    int
	Offset   int
}

// PlanRecord is the persisted state of one plan within a run. Failed plans carry a nil
// Accuracy and are never on the frontier.
type PlanRecord struct {
	RunID      uuid.UUID `json:"run_id"`
	PlanID     int64     `json:"plan_id"`
	Cost       float64   `json:"cost"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Failed     bool      `json:"failed"`
	OnFrontier bool      `json:"on_frontier"`
	Distance   float64   `json:"distance"`
	Action     string    `json:"action,omitempty"`
	ConfigPath string    `json:"config_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ActionRewardRecord struct {
	RunID     uuid.UUID `json:"run_id"`
	Action    string    `json:"action"`
	Reward    float64   `json:"reward"`
	Uses      int       `json:"uses"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Stats struct {
	OpenRuns      int `json:"open_runs"`
	ClosedRuns    int `json:"closed_runs"`
	Plans         int `json:"plans"`
	FailedPlans   int `json:"failed_plans"`
	FrontierPlans int `json:"frontier_plans"`
}

type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	UpsertPlan(ctx context.Context, plan *PlanRecord) error
	UpsertPlans(ctx context.Context, plans []*PlanRecord) error
	ListPlans(ctx context.Context, runID uuid.UUID) ([]*PlanRecord, error)

	UpsertActionReward(ctx context.Context, r *ActionRewardRecord) error
	ListActionRewards(ctx context.Context, runID uuid.UUID) ([]*ActionRewardRecord, error)

	GetStats(ctx context.Context) (*Stats, error)

	Close() error
}
