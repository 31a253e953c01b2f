package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/dipbot/internal/audit"
	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
)

// LedgerReader returns every ledger row
type LedgerReader interface {
	AllPositions(ctx context.Context) ([]contracts.Position, error)
}

// PerformanceHandler serves realized trading results
type PerformanceHandler struct {
	store  LedgerReader
	logger *logger.Logger
}

// NewPerformanceHandler creates a new performance handler
func NewPerformanceHandler(store LedgerReader, log *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		store:  store,
		logger: log,
	}
}

// Get returns the performance summary
// GET /api/performance
func (h *PerformanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.AllPositions(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ledger for performance")
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to compute performance", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, audit.Analyze(positions, time.Now().UTC()))
}
