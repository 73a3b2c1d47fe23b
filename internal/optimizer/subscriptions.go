package optimizer

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Frontier/internal/hermes"
)

// SetupSubscriptions ingests plans submitted over NATS.
func (m *Manager) SetupSubscriptions() {
	if m.hermes == nil {
		return
	}

	err := m.hermes.Subscribe(hermes.SubjectPlanSubmit, func(_ string, data []byte) {
		m.handleSubmit(context.Background(), data)
	})
	if err != nil {
		m.logger.Error("failed to subscribe", "subject", hermes.SubjectPlanSubmit, "error", err)
	}
}

func (m *Manager) handleSubmit(ctx context.Context, data []byte) {
	var evt hermes.PlanSubmitEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		m.logger.Warn("invalid plan submit event", "error", err)
		return
	}
	runID, err := uuid.Parse(evt.RunID)
	if err != nil {
		m.logger.Warn("plan submit with invalid run id", "run_id", evt.RunID, "error", err)
		return
	}
	res, err := m.Ingest(ctx, runID, PlanInput{
		ID:         evt.PlanID,
		ParentID:   evt.ParentID,
		Cost:       evt.Cost,
		Accuracy:   evt.Accuracy,
		Action:     evt.Action,
		ConfigPath: evt.ConfigPath,
		Value:      evt.Value,
		Visits:     evt.Visits,
	})
	if err != nil {
		m.logger.Warn("failed to ingest submitted plan", "run_id", runID, "plan_id", evt.PlanID, "error", err)
		return
	}
	m.logger.Info("plan ingested from NATS", "run_id", runID, "plan_id", evt.PlanID, "on_frontier", res.OnFrontier)
}
