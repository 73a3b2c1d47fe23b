package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Frontier/migrations"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded schema files in name order. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		ddl, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

const runColumns = `run_id, name, driver_id, status, actions,
	plans, failed_plans, frontier_size, best_accuracy,
	created_at, updated_at, closed_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = RunStatusOpen
	}
	if run.Actions == nil {
		run.Actions = []string{}
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO frontier_runs (name, driver_id, status, actions)
		VALUES ($1, $2, $3, $4)
		RETURNING run_id, created_at, updated_at`,
		run.Name, run.DriverID, run.Status, run.Actions,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM frontier_runs WHERE run_id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM frontier_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.DriverID != "" {
		n++
		query += fmt.Sprintf(" AND driver_id = $%d", n)
		args = append(args, filter.DriverID)
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	return s.pool.QueryRow(ctx, `
		UPDATE frontier_runs SET
			name = $2, status = $3, actions = $4,
			plans = $5, failed_plans = $6, frontier_size = $7, best_accuracy = $8,
			closed_at = $9, updated_at = now()
		WHERE run_id = $1
		RETURNING updated_at`,
		run.ID, run.Name, run.Status, run.Actions,
		run.Plans, run.FailedPlans, run.FrontierSize, run.BestAccuracy,
		run.ClosedAt,
	).Scan(&run.UpdatedAt)
}

const upsertPlanSQL = `
	INSERT INTO frontier_plans (run_id, plan_id, cost, accuracy, failed, on_frontier, distance, action, config_path)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (run_id, plan_id) DO UPDATE SET
		on_frontier = EXCLUDED.on_frontier,
		distance = EXCLUDED.distance,
		updated_at = now()
	RETURNING created_at, updated_at`

func planArgs(p *PlanRecord) []interface{} {
	return []interface{}{p.RunID, p.PlanID, p.Cost, p.Accuracy, p.Failed, p.OnFrontier, p.Distance, p.Action, p.ConfigPath}
}

func (s *PostgresStore) UpsertPlan(ctx context.Context, p *PlanRecord) error {
	return s.pool.QueryRow(ctx, upsertPlanSQL, planArgs(p)...).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// UpsertPlans writes a re-scored set of plans in one round trip.
func (s *PostgresStore) UpsertPlans(ctx context.Context, plans []*PlanRecord) error {
	if len(plans) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range plans {
		batch.Queue(upsertPlanSQL, planArgs(p)...)
	}
	br := s.pool.SendBatch(ctx, batch)
	for _, p := range plans {
		if err := br.QueryRow().Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
			br.Close()
			return fmt.Errorf("upsert plan %d: %w", p.PlanID, err)
		}
	}
	return br.Close()
}

func (s *PostgresStore) ListPlans(ctx context.Context, runID uuid.UUID) ([]*PlanRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, plan_id, cost, accuracy, failed, on_frontier, distance, action, config_path, created_at, updated_at
		FROM frontier_plans WHERE run_id = $1
		ORDER BY created_at ASC, plan_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*PlanRecord
	for rows.Next() {
		p := &PlanRecord{}
		if err := rows.Scan(&p.RunID, &p.PlanID, &p.Cost, &p.Accuracy, &p.Failed, &p.OnFrontier,
			&p.Distance, &p.Action, &p.ConfigPath, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) UpsertActionReward(ctx context.Context, r *ActionRewardRecord) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO frontier_action_rewards (run_id, action, reward, uses)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, action) DO UPDATE SET
			reward = EXCLUDED.reward,
			uses = EXCLUDED.uses,
			updated_at = now()
		RETURNING updated_at`,
		r.RunID, r.Action, r.Reward, r.Uses,
	).Scan(&r.UpdatedAt)
}

func (s *PostgresStore) ListActionRewards(ctx context.Context, runID uuid.UUID) ([]*ActionRewardRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, action, reward, uses, updated_at
		FROM frontier_action_rewards WHERE run_id = $1
		ORDER BY action ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ActionRewardRecord
	for rows.Next() {
		r := &ActionRewardRecord{}
		if err := rows.Scan(&r.RunID, &r.Action, &r.Reward, &r.Uses, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM frontier_runs WHERE status = 'open'),
			(SELECT COUNT(*) FROM frontier_runs WHERE status = 'closed'),
			COALESCE(SUM(CASE WHEN NOT failed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN failed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN on_frontier THEN 1 ELSE 0 END), 0)
		FROM frontier_plans`,
	).Scan(&stats.OpenRuns, &stats.ClosedRuns, &stats.Plans, &stats.FailedPlans, &stats.FrontierPlans)
	return stats, err
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	err := row.Scan(
		&r.ID, &r.Name, &r.DriverID, &r.Status, &r.Actions,
		&r.Plans, &r.FailedPlans, &r.FrontierSize, &r.BestAccuracy,
		&r.CreatedAt, &r.UpdatedAt, &r.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}
