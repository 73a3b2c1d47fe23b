package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Frontier/internal/optimizer"
	"github.com/MikeSquared-Agency/Frontier/internal/store"
)

type RunsHandler struct {
	manager *optimizer.Manager
	logger  *slog.Logger
}

func NewRunsHandler(m *optimizer.Manager, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{manager: m, logger: logger}
}

type CreateRunRequest struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions,omitempty"`
}

func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	run, err := h.manager.CreateRun(r.Context(), req.Name, r.Header.Get(DriverIDHeader), req.Actions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{DriverID: q.Get("driver")}
	if v := q.Get("status"); v != "" {
		s := store.RunStatus(v)
		if s != store.RunStatusOpen && s != store.RunStatusClosed {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be open or closed"})
			return
		}
		filter.Status = &s
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	runs, err := h.manager.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.manager.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.manager.CloseRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// IngestPlanRequest mirrors optimizer.PlanInput with required fields as pointers.
type IngestPlanRequest struct {
	PlanID     *int64   `json:"plan_id"`
	ParentID   *int64   `json:"parent_id,omitempty"`
	Cost       *float64 `json:"cost"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Action     string   `json:"action,omitempty"`
	ConfigPath string   `json:"config_path,omitempty"`
	Value      float64  `json:"value,omitempty"`
	Visits     int      `json:"visits,omitempty"`
}

func (h *RunsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	var req IngestPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PlanID == nil || req.Cost == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plan_id and cost required"})
		return
	}

	res, err := h.manager.Ingest(r.Context(), id, optimizer.PlanInput{
		ID:         *req.PlanID,
		ParentID:   req.ParentID,
		Cost:       *req.Cost,
		Accuracy:   req.Accuracy,
		Action:     req.Action,
		ConfigPath: req.ConfigPath,
		Value:      req.Value,
		Visits:     req.Visits,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *RunsHandler) Plans(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	plans, err := h.manager.Summary(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *RunsHandler) Frontier(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	plans, err := h.manager.Frontier(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func planID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "plan_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid plan id"})
		return 0, false
	}
	return n, true
}

func (h *RunsHandler) PlanFrontier(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	pid, ok := planID(w, r)
	if !ok {
		return
	}
	on, err := h.manager.OnFrontier(r.Context(), id, pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plan_id": pid, "on_frontier": on})
}

func (h *RunsHandler) Dominators(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	pid, ok := planID(w, r)
	if !ok {
		return
	}
	plans, err := h.manager.Dominators(r.Context(), id, pid)
	if err != nil {
		writeError(w, err)
		return
	}
	if plans == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *RunsHandler) Actions(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	rewards, err := h.manager.ActionRewards(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RunsHandler) Plot(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.manager.Plot(r.Context(), id, &buf); err != nil {
		h.logger.Warn("plot failed", "run_id", id, "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *RunsHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	sel, err := h.manager.Select(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (h *RunsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.manager.WriteTree(r.Context(), id, &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
