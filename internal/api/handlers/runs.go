package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// RunStore lists recorded strategy runs
type RunStore interface {
	RecentRuns(ctx context.Context, limit int) ([]contracts.RunReport, error)
}

// RunsHandler serves the run history
type RunsHandler struct {
	store  RunStore
	logger *logger.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(store RunStore, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		store:  store,
		logger: log,
	}
}

// List returns recent runs
// GET /api/runs?limit=20
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	runs, err := h.store.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to retrieve runs", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, runs)
}
