package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Frontier/internal/optimizer"
	"github.com/MikeSquared-Agency/Frontier/internal/store"
)

type AdminHandler struct {
	store   store.Store
	manager *optimizer.Manager
}

func NewAdminHandler(s store.Store, m *optimizer.Manager) *AdminHandler {
	return &AdminHandler{store: s, manager: m}
}

type StatsResponse struct {
	Live      optimizer.Stats `json:"live"`
	Persisted *store.Stats    `json:"persisted,omitempty"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Live: h.manager.Stats()}
	if h.store != nil {
		stats, err := h.store.GetStats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Persisted = stats
	}
	writeJSON(w, http.StatusOK, resp)
}
