package optimizer

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
	"github.com/MikeSquared-Agency/Frontier/internal/hermes"
)

// publisher forwards committed engine events of one run to hermes.
type publisher struct {
	hermes hermes.Client
	runID  string
	run    *run
	logger *slog.Logger
}

func (p *publisher) Observe(_ context.Context, ev frontier.Event) {
	if p.hermes == nil {
		return
	}
	var (
		subject string
		payload interface{}
	)
	switch ev.Kind {
	case frontier.EventPlanIngested:
		credits := make(map[string]float64, len(ev.Credits))
		for id, c := range ev.Credits {
			credits[strconv.FormatInt(int64(id), 10)] = c
		}
		subject = hermes.SubjectPlanIngested(p.runID)
		payload = hermes.PlanIngestedEvent{
			RunID:      p.runID,
			PlanID:     int64(ev.PlanID),
			Cost:       ev.Cost,
			Accuracy:   ev.Accuracy,
			OnFrontier: p.run.engine.OnFrontier(ev.PlanID),
			Action:     ev.Action,
			Credits:    credits,
		}
	case frontier.EventPlanRejected:
		subject = hermes.SubjectPlanRejected(p.runID)
		payload = hermes.PlanRejectedEvent{RunID: p.runID, PlanID: int64(ev.PlanID), Cost: ev.Cost}
	case frontier.EventFrontierChanged:
		ids := make([]int64, len(ev.Frontier))
		for i, id := range ev.Frontier {
			ids[i] = int64(id)
		}
		subject = hermes.SubjectFrontierChanged(p.runID)
		payload = hermes.FrontierChangedEvent{RunID: p.runID, PlanID: int64(ev.PlanID), Frontier: ids}
	case frontier.EventActionCredited:
		subject = hermes.SubjectActionCredited(p.runID)
		payload = hermes.ActionCreditedEvent{RunID: p.runID, PlanID: int64(ev.PlanID), Action: ev.Action, Reward: ev.Reward}
	default:
		return
	}
	if err := p.hermes.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish frontier event", "subject", subject, "error", err)
	}
}
