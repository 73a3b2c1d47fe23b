package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
	"github.com/MikeSquared-Agency/Frontier/internal/optimizer"
	"github.com/MikeSquared-Agency/Frontier/internal/render"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, optimizer.ErrRunNotFound), errors.Is(err, optimizer.ErrPlanNotFound), errors.Is(err, render.ErrNoPlans):
		status = http.StatusNotFound
	case errors.Is(err, optimizer.ErrRunClosed), errors.Is(err, frontier.ErrDuplicatePlan):
		status = http.StatusConflict
	case errors.Is(err, frontier.ErrNilPlan):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}
