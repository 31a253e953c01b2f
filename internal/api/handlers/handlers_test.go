package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/internal/runner"
	"github.com/wonny/dipbot/pkg/database"
	"github.com/wonny/dipbot/pkg/logger"
)

type fakeRunner struct {
	execute bool
	version string
	ctxErr  error
	report  *contracts.RunReport
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, execute bool, version string) (*contracts.RunReport, error) {
	f.execute = execute
	f.version = version
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return f.report, f.err
	}
	report := contracts.NewRunReport("run-1", execute, version, time.Now())
	report.Record(contracts.ItemResult{Side: contracts.SideBuy, Symbol: "Y", Outcome: contracts.OutcomeAccepted})
	return report, nil
}

func TestRunStrategy(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantExecute bool
		wantVersion string
	}{
		{"defaults to execute", "", true, ""},
		{"dry run", "?execute=false", false, ""},
		{"explicit version", "?execute=true&version=v2.0", true, "v2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRunner{}
			h := NewStrategyHandler(fr, logger.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/run-strategy"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.RunStrategy(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantExecute, fr.execute)
			assert.Equal(t, tt.wantVersion, fr.version)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, []interface{}{"Y"}, body["buys"])
			assert.Equal(t, []interface{}{}, body["sells"])
		})
	}
}

func TestRunStrategy_BadExecute(t *testing.T) {
	h := NewStrategyHandler(&fakeRunner{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.RunStrategy(rec, httptest.NewRequest(http.MethodPost, "/api/run-strategy?execute=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStrategy_Errors(t *testing.T) {
	t.Run("in progress", func(t *testing.T) {
		h := NewStrategyHandler(&fakeRunner{err: runner.ErrRunInProgress}, logger.Nop())

		rec := httptest.NewRecorder()
		h.RunStrategy(rec, httptest.NewRequest(http.MethodPost, "/api/run-strategy", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("run failure", func(t *testing.T) {
		h := NewStrategyHandler(&fakeRunner{err: errors.New("failed to load open positions: connection refused")}, logger.Nop())

		rec := httptest.NewRecorder()
		h.RunStrategy(rec, httptest.NewRequest(http.MethodPost, "/api/run-strategy", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Strategy run failed", body.Error)
		assert.Contains(t, body.Details, "connection refused")
	})
}

func TestRunStrategy_IgnoresClientCancel(t *testing.T) {
	fr := &fakeRunner{}
	h := NewStrategyHandler(fr, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/run-strategy", nil).WithContext(ctx)

	h.RunStrategy(httptest.NewRecorder(), req)
	assert.NoError(t, fr.ctxErr)
}

type fakePositions struct {
	positions []contracts.Position
	limit     int
	err       error
}

func (f *fakePositions) RecentPositions(_ context.Context, limit int) ([]contracts.Position, error) {
	f.limit = limit
	return f.positions, f.err
}

func TestTransactions(t *testing.T) {
	sold := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)
	reason := contracts.SellReasonTargetReached
	profit := decimal.NewFromInt(210)
	store := &fakePositions{positions: []contracts.Position{
		{ID: 2, Ticker: "Z", CurrentPrice: decimal.NewFromInt(101), Quantity: 10, SellDate: &sold, SellReason: &reason, Profit: &profit},
		{ID: 1, Ticker: "Y", CurrentPrice: decimal.NewFromInt(48), Quantity: 41},
	}}
	h := NewTransactionHandler(store, logger.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, store.limit)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "Closed", body[0]["status"])
	assert.Equal(t, "1010", body[0]["value"])
	assert.Equal(t, "TARGET_REACHED", body[0]["sell_reason"])
	assert.Equal(t, "Active", body[1]["status"])
	assert.Equal(t, "1968", body[1]["value"])
	assert.Nil(t, body[1]["sell_date"])
}

func TestTransactions_Empty(t *testing.T) {
	h := NewTransactionHandler(&fakePositions{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTransactions_StoreError(t *testing.T) {
	h := NewTransactionHandler(&fakePositions{err: errors.New("db down")}, logger.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakeRuns struct {
	limit int
}

func (f *fakeRuns) RecentRuns(_ context.Context, limit int) ([]contracts.RunReport, error) {
	f.limit = limit
	return []contracts.RunReport{*contracts.NewRunReport("run-1", true, "v1.0", time.Now())}, nil
}

func TestRuns(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, 20},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=5000", http.StatusOK, 100},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			store := &fakeRuns{}
			h := NewRunsHandler(store, logger.Nop())

			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs"+tt.query, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, store.limit)
		})
	}
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) HealthCheck(context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: f.err == nil}, f.err
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(fakeHealth{}, "dipbot").Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(fakeHealth{err: errors.New("down")}, "dipbot").Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(nil, "dipbot").Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeLedgerReader struct {
	positions []contracts.Position
	err       error
}

func (f *fakeLedgerReader) AllPositions(ctx context.Context) ([]contracts.Position, error) {
	return f.positions, f.err
}

func TestPerformance(t *testing.T) {
	profit := decimal.NewFromInt(40)
	sold := time.Now()
	store := &fakeLedgerReader{positions: []contracts.Position{
		{Ticker: "A", AverageCost: decimal.NewFromInt(10), Quantity: 10, Profit: &profit, SellDate: &sold},
		{Ticker: "B", AverageCost: decimal.NewFromInt(20), Quantity: 5},
	}}
	h := NewPerformanceHandler(store, logger.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/performance", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["open_positions"])
	assert.EqualValues(t, 1, body["closed_positions"])
	assert.Equal(t, "40", body["realized_pnl"])
	assert.Equal(t, "1", body["win_rate"])
}

func TestPerformance_StoreError(t *testing.T) {
	h := NewPerformanceHandler(&fakeLedgerReader{err: errors.New("db down")}, logger.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/performance", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
