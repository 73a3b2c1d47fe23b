package frontier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// BaselineAccuracy is assigned when there is nothing to compare a plan against.
const BaselineAccuracy = 0.5

var (
	ErrNilPlan       = errors.New("nil plan")
	ErrDuplicatePlan = errors.New("plan already ingested")
)

// AccuracyEstimator produces an accuracy for a plan that arrives without one.
type AccuracyEstimator interface {
	Estimate(ctx context.Context, plan *Plan, members []*Plan, known map[PlanID]float64) float64
}

// Result is the outcome of one ingest.
type Result struct {
	// Credits holds the reward (or, for plans that stay off the frontier, the reward delta)
	// of every plan re-scored by this ingest.
	Credits         map[PlanID]float64 `json:"credits"`
	FrontierChanged bool               `json:"frontier_changed"`
	Accuracy        float64            `json:"accuracy"`
}

// Summary describes one plan for reporting.
type Summary struct {
	ID         PlanID  `json:"id"`
	Cost       float64 `json:"cost"`
	Accuracy   float64 `json:"accuracy"`
	OnFrontier bool    `json:"on_frontier"`
	Distance   float64 `json:"distance"`
	Action     string  `json:"action,omitempty"`
	ConfigPath string  `json:"config_path,omitempty"`
	Value      float64 `json:"value"`
	Visits     int     `json:"visits"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithEstimator sets the estimator used for plans ingested without an accuracy.
func WithEstimator(est AccuracyEstimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// WithObserver sets the observer that receives committed events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine maintains the cost/accuracy Pareto frontier over every plan of one run and turns
// membership changes into credit.
//
// Thread Safety: not safe for concurrent use. Callers must serialize whole Ingest calls;
// queries may run between ingests.
type Engine struct {
	plans      []*Plan
	byID       map[PlanID]*Plan
	failed     map[PlanID]bool
	accuracy   map[PlanID]float64
	distances  map[PlanID]float64
	frontier   []PlanID
	onFrontier map[PlanID]bool

	rewards   *ActionRewards
	estimator AccuracyEstimator
	observer  Observer
	logger    *slog.Logger
}

// NewEngine creates an engine that credits actions in rewards. A nil sink credits nothing.
func NewEngine(rewards *ActionRewards, opts ...Option) *Engine {
	if rewards == nil {
		rewards = NewActionRewards()
	}
	e := &Engine{
		byID:       make(map[PlanID]*Plan),
		failed:     make(map[PlanID]bool),
		accuracy:   make(map[PlanID]float64),
		distances:  make(map[PlanID]float64),
		onFrontier: make(map[PlanID]bool),
		rewards:    rewards,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rewards returns the action reward sink the engine credits.
func (e *Engine) Rewards() *ActionRewards {
	return e.rewards
}

// Ingest adds a plan, recomputes the frontier and re-scores affected plans.
// Plans with a failed cost are recorded at -Inf accuracy and otherwise ignored.
func (e *Engine) Ingest(ctx context.Context, p *Plan) (Result, error) {
	if p == nil {
		return Result{}, ErrNilPlan
	}
	if _, ok := e.byID[p.ID]; ok || e.failed[p.ID] {
		return Result{}, fmt.Errorf("%w: %d", ErrDuplicatePlan, p.ID)
	}

	if p.Failed() {
		e.failed[p.ID] = true
		e.accuracy[p.ID] = math.Inf(-1)
		p.OnFrontier = false
		e.emit(ctx, []Event{{Kind: EventPlanRejected, PlanID: p.ID, Cost: p.Cost, Accuracy: math.Inf(-1)}})
		return Result{Credits: map[PlanID]float64{}, Accuracy: math.Inf(-1)}, nil
	}

	acc := e.resolveAccuracy(ctx, p)
	e.plans = append(e.plans, p)
	e.byID[p.ID] = p
	e.accuracy[p.ID] = acc

	credits, changed, events := e.update(p)

	ingested := Event{Kind: EventPlanIngested, PlanID: p.ID, Action: p.Action, Cost: p.Cost, Accuracy: acc, Reward: credits[p.ID], Credits: credits}
	e.emit(ctx, append([]Event{ingested}, events...))

	return Result{Credits: credits, FrontierChanged: changed, Accuracy: acc}, nil
}

func (e *Engine) resolveAccuracy(ctx context.Context, p *Plan) float64 {
	if p.Accuracy != nil && !math.IsNaN(*p.Accuracy) {
		return *p.Accuracy
	}
	members := make([]*Plan, 0, len(e.frontier))
	known := make(map[PlanID]float64, len(e.frontier))
	for _, id := range e.frontier {
		members = append(members, e.byID[id])
		known[id] = e.accuracy[id]
	}
	if len(members) == 0 {
		return BaselineAccuracy
	}
	if e.estimator == nil {
		e.logger.Warn("no accuracy estimator configured, using baseline", "plan_id", p.ID)
		return BaselineAccuracy
	}
	return e.estimator.Estimate(ctx, p, members, known)
}

// update recomputes the frontier and credit map. Nothing is emitted here; the returned
// events are published by the caller once state is committed.
func (e *Engine) update(inserted *Plan) (map[PlanID]float64, bool, []Event) {
	credits := make(map[PlanID]float64)

	valid := make([]*Plan, 0, len(e.plans))
	for _, p := range e.plans {
		if !p.Failed() {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		e.frontier = nil
		e.onFrontier = make(map[PlanID]bool)
		return credits, false, nil
	}
	// Equal costs put the more accurate plan first so only it can join the frontier.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Cost != valid[j].Cost {
			return valid[i].Cost < valid[j].Cost
		}
		return e.accuracyOf(valid[i].ID) > e.accuracyOf(valid[j].ID)
	})

	oldPoints := e.frontierPoints()
	oldSet := e.onFrontier

	points := make([]Point, len(valid))
	for i, p := range valid {
		points[i] = Point{Cost: p.Cost, Accuracy: e.accuracyOf(p.ID)}
	}

	idx := scanFrontier(points)
	newFrontier := make([]PlanID, 0, len(idx))
	newSet := make(map[PlanID]bool, len(idx))
	newPoints := make([]Point, 0, len(idx))
	for _, i := range idx {
		newFrontier = append(newFrontier, valid[i].ID)
		newSet[valid[i].ID] = true
		newPoints = append(newPoints, points[i])
	}
	changed := !sameMembers(oldSet, newSet)

	var events []Event
	for i, p := range valid {
		pt := points[i]
		inNew, inOld := newSet[p.ID], oldSet[p.ID]

		switch {
		case inNew && !inOld:
			// Rewarded against the frontier as it stood before this plan arrived.
			d := VerticalDistance(oldPoints, pt.Cost, pt.Accuracy)
			p.OnFrontier = true
			credits[p.ID] = d
			e.distances[p.ID] = d
			events = append(events, transitionEvents(p, pt, NewlyOn, d)...)
			events = e.credit(events, p, d)

		case (inOld && !inNew) || p.ID == inserted.ID:
			d := VerticalDistance(newPoints, pt.Cost, pt.Accuracy)
			p.OnFrontier = false
			credits[p.ID] = -d
			e.distances[p.ID] = -d
			tr := NewlyOff
			if p.ID == inserted.ID {
				tr = Inserted
			}
			events = append(events, transitionEvents(p, pt, tr, -d)...)
			if p.ID == inserted.ID {
				events = e.credit(events, p, -d)
			}

		case !inNew:
			d := VerticalDistance(newPoints, pt.Cost, pt.Accuracy)
			delta := -d - e.distances[p.ID]
			p.OnFrontier = false
			credits[p.ID] = delta
			e.distances[p.ID] = -d
			events = append(events, Event{Kind: EventRewardComputed, PlanID: p.ID, Transition: StaysOff, Action: p.Action, Cost: pt.Cost, Accuracy: pt.Accuracy, Reward: delta})
		}
	}

	e.frontier = newFrontier
	e.onFrontier = newSet

	if changed {
		events = append(events, Event{Kind: EventFrontierChanged, PlanID: inserted.ID, Frontier: e.FrontierIDs()})
	}
	return credits, changed, events
}

func transitionEvents(p *Plan, pt Point, tr Transition, reward float64) []Event {
	return []Event{
		{Kind: EventTransition, PlanID: p.ID, Transition: tr, Action: p.Action, Cost: pt.Cost, Accuracy: pt.Accuracy, Reward: reward},
		{Kind: EventRewardComputed, PlanID: p.ID, Transition: tr, Action: p.Action, Cost: pt.Cost, Accuracy: pt.Accuracy, Reward: reward},
	}
}

func (e *Engine) credit(events []Event, p *Plan, reward float64) []Event {
	if !e.rewards.Add(p.Action, reward) {
		return events
	}
	return append(events, Event{Kind: EventActionCredited, PlanID: p.ID, Action: p.Action, Reward: reward})
}

func (e *Engine) emit(ctx context.Context, events []Event) {
	if e.observer == nil {
		return
	}
	for _, ev := range events {
		e.observer.Observe(ctx, ev)
	}
}

func (e *Engine) accuracyOf(id PlanID) float64 {
	if acc, ok := e.accuracy[id]; ok {
		return acc
	}
	return math.Inf(-1)
}

func (e *Engine) frontierPoints() []Point {
	pts := make([]Point, 0, len(e.frontier))
	for _, id := range e.frontier {
		p, ok := e.byID[id]
		if !ok || p.Failed() {
			continue
		}
		pts = append(pts, Point{Cost: p.Cost, Accuracy: e.accuracyOf(id)})
	}
	return pts
}

func sameMembers(a, b map[PlanID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// --- Queries ---

// OnFrontier reports whether the plan is currently on the frontier.
func (e *Engine) OnFrontier(id PlanID) bool {
	return e.onFrontier[id]
}

// Contains reports whether a valid plan with this id has been ingested.
func (e *Engine) Contains(id PlanID) bool {
	_, ok := e.byID[id]
	return ok
}

// Len returns the number of valid plans ingested.
func (e *Engine) Len() int {
	return len(e.plans)
}

// Rejected returns the number of failed plans seen.
func (e *Engine) Rejected() int {
	return len(e.failed)
}

// Accuracy returns the recorded accuracy of a plan. Failed plans report -Inf.
func (e *Engine) Accuracy(id PlanID) (float64, bool) {
	acc, ok := e.accuracy[id]
	return acc, ok
}

// Distance returns the plan's current signed distance to the frontier.
func (e *Engine) Distance(id PlanID) (float64, bool) {
	d, ok := e.distances[id]
	return d, ok
}

// FrontierIDs returns frontier members in ascending cost order.
func (e *Engine) FrontierIDs() []PlanID {
	out := make([]PlanID, len(e.frontier))
	copy(out, e.frontier)
	return out
}

// Points returns the current frontier as a step function.
func (e *Engine) Points() []Point {
	return e.frontierPoints()
}

// Summary lists every valid plan in ingestion order.
func (e *Engine) Summary() []Summary {
	out := make([]Summary, 0, len(e.plans))
	for _, p := range e.plans {
		out = append(out, e.summarize(p))
	}
	return out
}

// Frontier lists the frontier members in ascending cost order.
func (e *Engine) Frontier() []Summary {
	out := make([]Summary, 0, len(e.frontier))
	for _, id := range e.frontier {
		out = append(out, e.summarize(e.byID[id]))
	}
	return out
}

// DominatedBy returns the plans that are no more expensive and strictly more accurate than
// the given plan, cheapest first.
func (e *Engine) DominatedBy(id PlanID) []Summary {
	target, ok := e.byID[id]
	if !ok {
		return nil
	}
	tp := Point{Cost: target.Cost, Accuracy: e.accuracyOf(id)}

	var out []Summary
	for _, p := range e.plans {
		if p.ID == id {
			continue
		}
		if dominates(Point{Cost: p.Cost, Accuracy: e.accuracyOf(p.ID)}, tp) {
			out = append(out, e.summarize(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

func (e *Engine) summarize(p *Plan) Summary {
	return Summary{
		ID:         p.ID,
		Cost:       p.Cost,
		Accuracy:   e.accuracyOf(p.ID),
		OnFrontier: e.onFrontier[p.ID],
		Distance:   e.distances[p.ID],
		Action:     p.Action,
		ConfigPath: p.ConfigPath,
		Value:      p.Value,
		Visits:     p.Visits,
	}
}
