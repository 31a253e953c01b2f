package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/internal/runner"
	"github.com/wonny/dipbot/pkg/logger"
)

// StrategyRunner runs one strategy invocation
type StrategyRunner interface {
	Run(ctx context.Context, execute bool, version string) (*contracts.RunReport, error)
}

// StrategyHandler triggers strategy runs over HTTP
type StrategyHandler struct {
	runner StrategyRunner
	logger *logger.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(r StrategyRunner, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		runner: r,
		logger: log,
	}
}

// RunStrategy runs the buy and sell passes synchronously
// POST /api/run-strategy?execute=true&version=v1.0
func (h *StrategyHandler) RunStrategy(w http.ResponseWriter, r *http.Request) {
	execute := true
	if raw := r.URL.Query().Get("execute"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'execute' (expected true or false)")
			return
		}
		execute = parsed
	}
	version := r.URL.Query().Get("version")

	// a client disconnect must not abort a run that is writing the ledger
	ctx := context.WithoutCancel(r.Context())

	report, err := h.runner.Run(ctx, execute, version)
	if errors.Is(err, runner.ErrRunInProgress) {
		respondError(w, http.StatusConflict, "Strategy run already in progress")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Strategy run failed")
		respondErrorDetails(w, http.StatusInternalServerError, "Strategy run failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}
