package optimizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MikeSquared-Agency/Frontier/internal/config"
	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
	"github.com/MikeSquared-Agency/Frontier/internal/hermes"
	"github.com/MikeSquared-Agency/Frontier/internal/metrics"
	"github.com/MikeSquared-Agency/Frontier/internal/render"
	"github.com/MikeSquared-Agency/Frontier/internal/search"
	"github.com/MikeSquared-Agency/Frontier/internal/store"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunClosed    = errors.New("run is closed")
	ErrPlanNotFound = errors.New("plan not found")
)

// PlanInput is a plan reported by a search driver.
type PlanInput struct {
	ID         int64    `json:"plan_id"`
	ParentID   *int64   `json:"parent_id,omitempty"`
	Cost       float64  `json:"cost"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Action     string   `json:"action,omitempty"`
	ConfigPath string   `json:"config_path,omitempty"`
	Value      float64  `json:"value,omitempty"`
	Visits     int      `json:"visits,omitempty"`
}

// IngestResult is returned to the driver after a plan is ingested.
type IngestResult struct {
	RunID           uuid.UUID                   `json:"run_id"`
	PlanID          int64                       `json:"plan_id"`
	Failed          bool                        `json:"failed"`
	Accuracy        *float64                    `json:"accuracy,omitempty"`
	OnFrontier      bool                        `json:"on_frontier"`
	FrontierChanged bool                        `json:"frontier_changed"`
	Credits         map[frontier.PlanID]float64 `json:"credits"`
	Frontier        []frontier.PlanID           `json:"frontier"`
}

// Selection is the UCB1 descent through a run's search tree.
type Selection struct {
	Path          []int64 `json:"path"`
	Leaf          int64   `json:"leaf"`
	FullyExplored bool    `json:"fully_explored"`
	LeafVisits    int     `json:"leaf_visits"`
	LeafChildren  int     `json:"leaf_children"`

	// Continue is false once the run has used up the configured search budget.
	Continue bool `json:"continue"`
}

// Stats aggregates open runs held in memory.
type Stats struct {
	OpenRuns     int       `json:"open_runs"`
	Plans        int       `json:"plans"`
	FailedPlans  int       `json:"failed_plans"`
	FrontierSize int       `json:"frontier_size"`
	Timestamp    time.Time `json:"timestamp"`
}

type run struct {
	mu      sync.Mutex
	rec     *store.Run
	engine  *frontier.Engine
	rewards *frontier.ActionRewards
	root    *search.Node
	nodes   map[int64]*search.Node
}

// Manager owns the open optimization runs. Each run has its own engine and mutex, so
// ingests into one run are serialized while different runs proceed in parallel.
type Manager struct {
	store     store.Store
	hermes    hermes.Client
	estimator frontier.AccuracyEstimator
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    *slog.Logger

	mu   sync.RWMutex
	runs map[uuid.UUID]*run

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Manager. The store, hermes client, estimator and metrics are optional.
func New(s store.Store, h hermes.Client, est frontier.AccuracyEstimator, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:     s,
		hermes:    h,
		estimator: est,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		runs:      make(map[uuid.UUID]*run),
		stopCh:    make(chan struct{}),
	}
}

func (m *Manager) Start(ctx context.Context) {
	if m.cfg.StatsInterval() <= 0 {
		return
	}
	m.wg.Add(1)
	go m.statsLoop(ctx)
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Manager) statsLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.StatsInterval())
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publishStats()
		}
	}
}

func (m *Manager) publishStats() {
	st := m.Stats()
	m.logger.Info("frontier stats", "open_runs", st.OpenRuns, "plans", st.Plans, "frontier_size", st.FrontierSize)
	m.publish(hermes.SubjectFrontierStats, hermes.StatsEvent{
		OpenRuns:     st.OpenRuns,
		Plans:        st.Plans,
		FailedPlans:  st.FailedPlans,
		FrontierSize: st.FrontierSize,
		Timestamp:    st.Timestamp,
	})
}

// CreateRun opens a new run. Without explicit actions the configured search actions are used.
func (m *Manager) CreateRun(ctx context.Context, name, driverID string, actions []string) (*store.Run, error) {
	if len(actions) == 0 {
		actions = append([]string(nil), m.cfg.Search.Actions...)
	}
	rec := &store.Run{
		Name:     name,
		DriverID: driverID,
		Status:   store.RunStatusOpen,
		Actions:  actions,
	}
	if m.store != nil {
		if err := m.store.CreateRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	} else {
		rec.ID = uuid.New()
		rec.CreatedAt = time.Now()
		rec.UpdatedAt = rec.CreatedAt
	}

	r := m.newRun(rec)
	m.mu.Lock()
	m.runs[rec.ID] = r
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveRuns.Inc()
	}
	m.publish(hermes.SubjectRunCreated(rec.ID.String()), hermes.RunCreatedEvent{
		RunID:   rec.ID.String(),
		Name:    rec.Name,
		Actions: rec.Actions,
	})
	m.logger.Info("run created", "run_id", rec.ID, "name", name, "actions", actions)

	out := *rec
	return &out, nil
}

func (m *Manager) newRun(rec *store.Run) *run {
	r := &run{
		rec:     rec,
		rewards: frontier.NewActionRewards(rec.Actions...),
		root:    &search.Node{ID: 0},
		nodes:   make(map[int64]*search.Node),
	}
	observers := frontier.Observers{
		frontier.LogObserver{Logger: m.logger.With("run_id", rec.ID)},
		&publisher{hermes: m.hermes, runID: rec.ID.String(), run: r, logger: m.logger},
	}
	if m.metrics != nil {
		observers = append(observers, m.metrics)
	}
	r.engine = frontier.NewEngine(r.rewards,
		frontier.WithEstimator(m.estimator),
		frontier.WithObserver(observers),
		frontier.WithLogger(m.logger),
	)
	return r
}

func (m *Manager) lookup(id uuid.UUID) *run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[id]
}

// missing explains why a run is not open: closed in the store, or unknown.
func (m *Manager) missing(ctx context.Context, id uuid.UUID) error {
	if m.store == nil {
		return ErrRunNotFound
	}
	rec, err := m.store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrRunNotFound
	}
	return ErrRunClosed
}

func (m *Manager) GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	if r := m.lookup(id); r != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		out := *r.rec
		return &out, nil
	}
	if m.store == nil {
		return nil, ErrRunNotFound
	}
	rec, err := m.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRunNotFound
	}
	return rec, nil
}

// ListRuns lists runs from the store, or the open runs when running without one.
func (m *Manager) ListRuns(ctx context.Context, filter store.RunFilter) ([]*store.Run, error) {
	if m.store != nil {
		return m.store.ListRuns(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*store.Run, 0, len(m.runs))
	for _, r := range m.runs {
		r.mu.Lock()
		rec := *r.rec
		r.mu.Unlock()
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.DriverID != "" && rec.DriverID != filter.DriverID {
			continue
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CloseRun stops accepting plans for a run and releases its engine.
func (m *Manager) CloseRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	m.mu.Lock()
	r, ok := m.runs[id]
	if ok {
		delete(m.runs, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil, m.missing(ctx, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.rec.Status = store.RunStatusClosed
	r.rec.ClosedAt = &now
	if m.store != nil {
		if err := m.store.UpdateRun(ctx, r.rec); err != nil {
			m.logger.Error("failed to persist closed run", "run_id", id, "error", err)
		}
	}
	m.renderPlot(r)

	if m.metrics != nil {
		m.metrics.ActiveRuns.Dec()
		m.metrics.ForgetRun(id.String())
	}
	best := 0.0
	if r.rec.BestAccuracy != nil {
		best = *r.rec.BestAccuracy
	}
	m.publish(hermes.SubjectRunClosed(id.String()), hermes.RunClosedEvent{
		RunID:        id.String(),
		Plans:        r.rec.Plans,
		FrontierSize: r.rec.FrontierSize,
		BestAccuracy: best,
	})
	m.logger.Info("run closed", "run_id", id, "plans", r.rec.Plans, "frontier_size", r.rec.FrontierSize)

	out := *r.rec
	return &out, nil
}

// Ingest feeds a plan into its run's engine, persists every re-scored plan and the action
// rewards, and refreshes the run plot.
func (m *Manager) Ingest(ctx context.Context, runID uuid.UUID, in PlanInput) (*IngestResult, error) {
	start := time.Now()
	ctx, span := otel.Tracer("frontier/optimizer").Start(ctx, "optimizer.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID.String()),
		attribute.Int64("plan.id", in.ID),
		attribute.Float64("plan.cost", in.Cost),
	)

	r := m.lookup(runID)
	if r == nil {
		err := m.missing(ctx, runID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec.Status != store.RunStatusOpen {
		return nil, ErrRunClosed
	}

	plan := &frontier.Plan{
		ID:         frontier.PlanID(in.ID),
		Cost:       in.Cost,
		Accuracy:   in.Accuracy,
		Action:     in.Action,
		ConfigPath: in.ConfigPath,
		Value:      in.Value,
		Visits:     in.Visits,
	}
	res, err := r.engine.Ingest(ctx, plan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if in.Action != "" {
		r.rewards.RecordUse(in.Action)
	}
	m.grow(r, in, res.Credits[plan.ID])
	m.refresh(r)
	m.persist(ctx, r, plan, res.Credits)
	m.renderPlot(r)

	if m.metrics != nil {
		m.metrics.ObserveIngest(time.Since(start))
		m.metrics.SetFrontierSize(runID.String(), r.rec.FrontierSize)
	}

	out := &IngestResult{
		RunID:           runID,
		PlanID:          in.ID,
		Failed:          plan.Failed(),
		OnFrontier:      r.engine.OnFrontier(plan.ID),
		FrontierChanged: res.FrontierChanged,
		Credits:         res.Credits,
		Frontier:        r.engine.FrontierIDs(),
	}
	if !out.Failed {
		acc := res.Accuracy
		out.Accuracy = &acc
	}
	span.SetAttributes(attribute.Bool("plan.on_frontier", out.OnFrontier), attribute.Bool("frontier.changed", out.FrontierChanged))
	return out, nil
}

// grow attaches the plan to the run's search tree and backs its credit up to the root.
func (m *Manager) grow(r *run, in PlanInput, reward float64) {
	parent := r.root
	if in.ParentID != nil {
		if p, ok := r.nodes[*in.ParentID]; ok {
			parent = p
		} else {
			m.logger.Warn("unknown parent plan, attaching to root", "run_id", r.rec.ID, "plan_id", in.ID, "parent_id", *in.ParentID)
		}
	}
	node := parent.AddChild(&search.Node{ID: in.ID, Action: in.Action})
	r.nodes[in.ID] = node
	node.Backpropagate(reward)

	if dir := m.cfg.Frontier.TreeDir; dir != "" {
		if _, err := search.WriteTreeFile(filepath.Join(dir, r.rec.ID.String()), r.engine.Len()+r.engine.Rejected(), r.root); err != nil {
			m.logger.Warn("failed to write search tree", "run_id", r.rec.ID, "error", err)
		}
	}
}

func (m *Manager) refresh(r *run) {
	r.rec.Plans = r.engine.Len()
	r.rec.FailedPlans = r.engine.Rejected()
	front := r.engine.Frontier()
	r.rec.FrontierSize = len(front)
	r.rec.BestAccuracy = nil
	if len(front) > 0 {
		// Frontier accuracy rises with cost, so the last member is the best.
		best := front[len(front)-1].Accuracy
		r.rec.BestAccuracy = &best
	}
	r.rec.UpdatedAt = time.Now()
}

func (m *Manager) persist(ctx context.Context, r *run, plan *frontier.Plan, credits map[frontier.PlanID]float64) {
	if m.store == nil {
		return
	}
	records := make([]*store.PlanRecord, 0, len(credits)+1)
	if plan.Failed() {
		records = append(records, &store.PlanRecord{
			RunID: r.rec.ID, PlanID: int64(plan.ID), Cost: plan.Cost, Failed: true,
			Action: plan.Action, ConfigPath: plan.ConfigPath,
		})
	}
	for _, s := range r.engine.Summary() {
		if _, touched := credits[s.ID]; !touched && s.ID != plan.ID {
			continue
		}
		acc := s.Accuracy
		records = append(records, &store.PlanRecord{
			RunID: r.rec.ID, PlanID: int64(s.ID), Cost: s.Cost, Accuracy: &acc,
			OnFrontier: s.OnFrontier, Distance: s.Distance, Action: s.Action, ConfigPath: s.ConfigPath,
		})
	}
	if err := m.store.UpsertPlans(ctx, records); err != nil {
		m.logger.Error("failed to persist plans", "run_id", r.rec.ID, "plan_id", plan.ID, "error", err)
	}
	for _, ar := range r.rewards.Snapshot() {
		rec := &store.ActionRewardRecord{RunID: r.rec.ID, Action: ar.Action, Reward: ar.Reward, Uses: ar.Uses}
		if err := m.store.UpsertActionReward(ctx, rec); err != nil {
			m.logger.Error("failed to persist action reward", "run_id", r.rec.ID, "action", ar.Action, "error", err)
		}
	}
	if err := m.store.UpdateRun(ctx, r.rec); err != nil {
		m.logger.Error("failed to update run", "run_id", r.rec.ID, "error", err)
	}
}

// renderPlot refreshes the run's PNG when a plot directory is configured. Failures are logged only.
func (m *Manager) renderPlot(r *run) {
	dir := m.cfg.Frontier.PlotDir
	if dir == "" {
		return
	}
	path := filepath.Join(dir, r.rec.ID.String()+".png")
	if err := render.SaveScatter(path, r.rec.Name, r.engine.Summary()); err != nil {
		m.logger.Warn("failed to render frontier plot", "run_id", r.rec.ID, "path", path, "error", err)
	}
}

func (m *Manager) publish(subject string, data interface{}) {
	if m.hermes == nil {
		return
	}
	if err := m.hermes.Publish(subject, data); err != nil {
		m.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// view runs fn against the run's engine: the live one for open runs, or one rebuilt from
// stored plans for closed runs.
func (m *Manager) view(ctx context.Context, id uuid.UUID, fn func(*frontier.Engine) error) error {
	if r := m.lookup(id); r != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return fn(r.engine)
	}
	if m.store == nil {
		return ErrRunNotFound
	}
	rec, err := m.store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrRunNotFound
	}
	eng, err := m.replay(ctx, id)
	if err != nil {
		return err
	}
	return fn(eng)
}

// replay rebuilds a frontier from stored plans in ingestion order. Stored accuracies are
// reused, so no comparator calls are made.
func (m *Manager) replay(ctx context.Context, id uuid.UUID) (*frontier.Engine, error) {
	plans, err := m.store.ListPlans(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	eng := frontier.NewEngine(nil, frontier.WithLogger(m.logger))
	for _, p := range plans {
		cost := p.Cost
		if p.Failed {
			cost = frontier.FailedCost
		}
		if _, err := eng.Ingest(ctx, &frontier.Plan{
			ID: frontier.PlanID(p.PlanID), Cost: cost, Accuracy: p.Accuracy,
			Action: p.Action, ConfigPath: p.ConfigPath,
		}); err != nil {
			return nil, fmt.Errorf("replay plan %d: %w", p.PlanID, err)
		}
	}
	return eng, nil
}

// Summary lists every valid plan of a run in ingestion order.
func (m *Manager) Summary(ctx context.Context, id uuid.UUID) ([]frontier.Summary, error) {
	var out []frontier.Summary
	err := m.view(ctx, id, func(e *frontier.Engine) error {
		out = e.Summary()
		return nil
	})
	return out, err
}

// Frontier lists a run's frontier members cheapest first.
func (m *Manager) Frontier(ctx context.Context, id uuid.UUID) ([]frontier.Summary, error) {
	var out []frontier.Summary
	err := m.view(ctx, id, func(e *frontier.Engine) error {
		out = e.Frontier()
		return nil
	})
	return out, err
}

func (m *Manager) OnFrontier(ctx context.Context, id uuid.UUID, planID int64) (bool, error) {
	var on bool
	err := m.view(ctx, id, func(e *frontier.Engine) error {
		if !e.Contains(frontier.PlanID(planID)) {
			return ErrPlanNotFound
		}
		on = e.OnFrontier(frontier.PlanID(planID))
		return nil
	})
	return on, err
}

// Dominators lists the plans that dominate planID, cheapest first.
func (m *Manager) Dominators(ctx context.Context, id uuid.UUID, planID int64) ([]frontier.Summary, error) {
	var out []frontier.Summary
	err := m.view(ctx, id, func(e *frontier.Engine) error {
		if !e.Contains(frontier.PlanID(planID)) {
			return ErrPlanNotFound
		}
		out = e.DominatedBy(frontier.PlanID(planID))
		return nil
	})
	return out, err
}

// ActionRewards returns the cumulative credit per action.
func (m *Manager) ActionRewards(ctx context.Context, id uuid.UUID) ([]frontier.ActionReward, error) {
	if r := m.lookup(id); r != nil {
		return r.rewards.Snapshot(), nil
	}
	if err := m.missing(ctx, id); !errors.Is(err, ErrRunClosed) {
		return nil, err
	}
	recs, err := m.store.ListActionRewards(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]frontier.ActionReward, 0, len(recs))
	for _, r := range recs {
		out = append(out, frontier.ActionReward{Action: r.Action, Reward: r.Reward, Uses: r.Uses})
	}
	return out, nil
}

// Plot writes the run's cost/accuracy scatter as PNG.
func (m *Manager) Plot(ctx context.Context, id uuid.UUID, w io.Writer) error {
	var title string
	if rec, err := m.GetRun(ctx, id); err == nil {
		title = rec.Name
	}
	return m.view(ctx, id, func(e *frontier.Engine) error {
		return render.Scatter(w, title, e.Summary())
	})
}

// Select descends an open run's search tree by UCB1 until it reaches a node that is not
// fully explored, which is where the driver should expand next.
func (m *Manager) Select(ctx context.Context, id uuid.UUID) (*Selection, error) {
	r := m.lookup(id)
	if r == nil {
		return nil, m.missing(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := m.cfg.Search.ExplorationConstant
	if c <= 0 {
		c = search.DefaultExplorationConstant
	}
	mult := m.cfg.Search.ChildrenMultiplier
	if mult <= 0 {
		mult = search.DefaultChildrenMultiplier
	}

	node := r.root
	path := []int64{node.ID}
	for search.IsFullyExplored(len(node.Children), node.Visits, mult) {
		next := search.SelectChild(node, c)
		if next == nil {
			break
		}
		node = next
		path = append(path, node.ID)
	}
	return &Selection{
		Path:          path,
		Leaf:          node.ID,
		FullyExplored: search.IsFullyExplored(len(node.Children), node.Visits, mult),
		LeafVisits:    node.Visits,
		LeafChildren:  len(node.Children),
		Continue:      m.budget().Continue(r.rec.Plans+r.rec.FailedPlans, time.Since(r.rec.CreatedAt)),
	}, nil
}

// budget is the configured search budget. A non-positive iteration limit means unlimited.
func (m *Manager) budget() search.Budget {
	b := search.Budget{MaxIterations: m.cfg.Search.MaxIterations, MaxTime: m.cfg.SearchMaxTime()}
	if b.MaxIterations <= 0 {
		b.MaxIterations = math.MaxInt
	}
	return b
}

// WriteTree dumps an open run's search tree.
func (m *Manager) WriteTree(ctx context.Context, id uuid.UUID, w io.Writer) error {
	r := m.lookup(id)
	if r == nil {
		return m.missing(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return search.WriteTree(w, r.root)
}

// Stats summarizes the open runs.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	runs := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	st := Stats{OpenRuns: len(runs), Timestamp: time.Now()}
	for _, r := range runs {
		r.mu.Lock()
		st.Plans += r.rec.Plans
		st.FailedPlans += r.rec.FailedPlans
		st.FrontierSize += r.rec.FrontierSize
		r.mu.Unlock()
	}
	return st
}
