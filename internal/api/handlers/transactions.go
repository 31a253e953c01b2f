package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
)

const transactionsLimit = 100

// PositionStore lists ledger rows by recent activity
type PositionStore interface {
	RecentPositions(ctx context.Context, limit int) ([]contracts.Position, error)
}

// TransactionView is a ledger row plus derived fields
type TransactionView struct {
	contracts.Position
	Value  decimal.Decimal          `json:"value"`
	Status contracts.PositionStatus `json:"status"`
}

// TransactionHandler serves the position ledger
type TransactionHandler struct {
	store  PositionStore
	logger *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(store PositionStore, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		store:  store,
		logger: log,
	}
}

// List returns the latest positions, newest activity first
// GET /api/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.RecentPositions(r.Context(), transactionsLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list transactions")
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to retrieve transactions", err.Error())
		return
	}

	views := make([]TransactionView, 0, len(positions))
	for i := range positions {
		p := positions[i]
		views = append(views, TransactionView{
			Position: p,
			Value:    p.MarketValue(),
			Status:   p.Status(),
		})
	}

	respondJSON(w, http.StatusOK, views)
}
