package frontier

import (
	"context"
	"log/slog"
)

// EventKind classifies engine events.
type EventKind string

const (
	EventPlanRejected    EventKind = "plan_rejected"
	EventPlanIngested    EventKind = "plan_ingested"
	EventTransition      EventKind = "frontier_transition"
	EventRewardComputed  EventKind = "reward_computed"
	EventActionCredited  EventKind = "action_credited"
	EventFrontierChanged EventKind = "frontier_changed"
)

// Transition is a plan's frontier membership change across one ingest.
type Transition string

const (
	NewlyOn  Transition = "newly_on"
	NewlyOff Transition = "newly_off"
	Inserted Transition = "inserted"
	StaysOff Transition = "stays_off"
)

// Event is emitted after an ingest has fully committed.
type Event struct {
	Kind       EventKind  `json:"kind"`
	PlanID     PlanID     `json:"plan_id"`
	Transition Transition `json:"transition,omitempty"`
	Action     string     `json:"action,omitempty"`
	Cost       float64    `json:"cost"`
	Accuracy   float64    `json:"accuracy"`
	Reward     float64    `json:"reward"`
	Frontier   []PlanID   `json:"frontier,omitempty"`

	// Credits is set on EventPlanIngested: every plan re-scored by the ingest.
	Credits map[PlanID]float64 `json:"credits,omitempty"`
}

// Observer receives engine events. Events arrive after the ingest has committed, so
// observers may query the engine but must not call Ingest.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers fans an event out to several observers in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}

// LogObserver writes events as debug-level structured log records.
type LogObserver struct {
	Logger *slog.Logger
}

func (l LogObserver) Observe(ctx context.Context, ev Event) {
	if l.Logger == nil {
		return
	}
	attrs := []any{"kind", ev.Kind, "plan_id", ev.PlanID}
	switch ev.Kind {
	case EventTransition, EventRewardComputed:
		attrs = append(attrs, "transition", ev.Transition, "cost", ev.Cost, "accuracy", ev.Accuracy, "reward", ev.Reward)
	case EventActionCredited:
		attrs = append(attrs, "action", ev.Action, "reward", ev.Reward)
	case EventFrontierChanged:
		attrs = append(attrs, "frontier", ev.Frontier)
	case EventPlanIngested:
		attrs = append(attrs, "cost", ev.Cost, "accuracy", ev.Accuracy)
	case EventPlanRejected:
		// Rejected plans sit at -Inf accuracy, which JSON handlers cannot encode.
		attrs = append(attrs, "cost", ev.Cost)
	}
	l.Logger.DebugContext(ctx, "frontier event", attrs...)
}
