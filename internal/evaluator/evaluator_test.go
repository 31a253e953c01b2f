package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
	"github.com/wonny/dipbot/pkg/redis"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeHistory struct {
	bars  map[string][]contracts.Bar
	err   error
	calls []time.Duration
}

func (f *fakeHistory) DailyBars(_ context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	f.calls = append(f.calls, to.Sub(from))
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

type fakeTargets struct {
	targets map[string]decimal.Decimal
	err     error
}

func (f *fakeTargets) PriceTarget(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	t, ok := f.targets[symbol]
	return t, ok, nil
}

func bar(low, high, closePrice string) contracts.Bar {
	return contracts.Bar{Low: d(low), High: d(high), Close: d(closePrice)}
}

func newEvaluator(h HistorySource, t TargetSource) *Evaluator {
	e := New(h, t, redis.NewCache(redis.Disabled(), "test"), DefaultConfig(), logger.Nop())
	e.now = func() time.Time { return time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC) }
	return e
}

func candidate(t *testing.T, symbol, price, change string) contracts.Candidate {
	t.Helper()
	c, err := contracts.NewCandidate(symbol, d(price), d(change))
	require.NoError(t, err)
	return c
}

func TestEvaluate(t *testing.T) {
	history := &fakeHistory{bars: map[string][]contracts.Bar{
		"X": {bar("60", "100", "80"), bar("50", "140", "130"), bar("70", "150", "90")},
	}}
	targets := &fakeTargets{targets: map[string]decimal.Decimal{"X": d("120")}}
	e := newEvaluator(history, targets)

	metrics, err := e.Evaluate(context.Background(), candidate(t, "X", "90", "-10"))
	require.NoError(t, err)

	assert.True(t, metrics.Week52Low.Equal(d("50")))
	assert.True(t, metrics.Week52High.Equal(d("150")))
	assert.True(t, metrics.PreDipPercentile.Equal(d("50")), metrics.PreDipPercentile.String())
	assert.True(t, metrics.TargetPrice.Equal(d("120")))

	require.Len(t, history.calls, 1)
	assert.Equal(t, DefaultConfig().Lookback, history.calls[0])
}

func TestEvaluate_PercentileIsNotRounded(t *testing.T) {
	history := &fakeHistory{bars: map[string][]contracts.Bar{"R": {bar("0.01", "3", "1")}}}
	targets := &fakeTargets{targets: map[string]decimal.Decimal{"R": d("5")}}
	e := newEvaluator(history, targets)

	// pre-dip 1.00 inside [0.01, 3]
	metrics, err := e.Evaluate(context.Background(), candidate(t, "R", "1", "0"))
	require.NoError(t, err)
	assert.True(t, metrics.PreDipPercentile.GreaterThan(d("33.11")), metrics.PreDipPercentile.String())
	assert.True(t, metrics.PreDipPercentile.LessThan(d("33.12")), metrics.PreDipPercentile.String())
	assert.Equal(t, "33.11", metrics.PreDipPercentile.Round(contracts.PercentileScale).String())
}

func TestEvaluate_AboveRangeIsUnbounded(t *testing.T) {
	history := &fakeHistory{bars: map[string][]contracts.Bar{"U": {bar("10", "20", "15")}}}
	targets := &fakeTargets{targets: map[string]decimal.Decimal{"U": d("40")}}
	e := newEvaluator(history, targets)

	metrics, err := e.Evaluate(context.Background(), candidate(t, "U", "30", "0"))
	require.NoError(t, err)
	assert.True(t, metrics.PreDipPercentile.Equal(d("200")))
}

func TestEvaluate_SkipConditions(t *testing.T) {
	upstream := errors.New("connection reset")

	tests := []struct {
		name    string
		history *fakeHistory
		targets *fakeTargets
		want    error
		reason  string
	}{
		{
			name:    "no history",
			history: &fakeHistory{},
			targets: &fakeTargets{targets: map[string]decimal.Decimal{"S": d("10")}},
			want:    ErrNoHistory,
			reason:  "no_history",
		},
		{
			name:    "no target coverage",
			history: &fakeHistory{bars: map[string][]contracts.Bar{"S": {bar("5", "15", "8")}}},
			targets: &fakeTargets{},
			want:    ErrNoTarget,
			reason:  "no_target",
		},
		{
			name:    "zero target",
			history: &fakeHistory{bars: map[string][]contracts.Bar{"S": {bar("5", "15", "8")}}},
			targets: &fakeTargets{targets: map[string]decimal.Decimal{"S": decimal.Zero}},
			want:    ErrNoTarget,
			reason:  "no_target",
		},
		{
			name:    "flat range",
			history: &fakeHistory{bars: map[string][]contracts.Bar{"S": {bar("10", "10", "10"), bar("10", "10", "10")}}},
			targets: &fakeTargets{targets: map[string]decimal.Decimal{"S": d("12")}},
			want:    ErrDegenerateRange,
			reason:  "degenerate_range",
		},
		{
			name:    "history failure",
			history: &fakeHistory{err: upstream},
			targets: &fakeTargets{targets: map[string]decimal.Decimal{"S": d("12")}},
			want:    ErrUpstream,
			reason:  "upstream_error",
		},
		{
			name:    "target failure",
			history: &fakeHistory{bars: map[string][]contracts.Bar{"S": {bar("5", "15", "8")}}},
			targets: &fakeTargets{err: upstream},
			want:    ErrUpstream,
			reason:  "upstream_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEvaluator(tt.history, tt.targets)

			_, err := e.Evaluate(context.Background(), candidate(t, "S", "10", "-5"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.reason, SkipReason(err))
		})
	}
}

func TestLatestClose(t *testing.T) {
	history := &fakeHistory{bars: map[string][]contracts.Bar{
		"X": {bar("1", "2", "101.5"), bar("1", "2", "103.25")},
	}}
	e := newEvaluator(history, &fakeTargets{})

	closePrice, err := e.LatestClose(context.Background(), "X")
	require.NoError(t, err)
	assert.True(t, closePrice.Equal(d("103.25")))
	require.Len(t, history.calls, 1)
	assert.Equal(t, DefaultConfig().CloseWindow, history.calls[0])

	_, err = e.LatestClose(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestLatestClose_Upstream(t *testing.T) {
	e := newEvaluator(&fakeHistory{err: errors.New("timeout")}, &fakeTargets{})

	_, err := e.LatestClose(context.Background(), "X")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestEvaluate_NilCache(t *testing.T) {
	history := &fakeHistory{bars: map[string][]contracts.Bar{"X": {bar("50", "150", "100")}}}
	targets := &fakeTargets{targets: map[string]decimal.Decimal{"X": d("120")}}
	e := New(history, targets, nil, DefaultConfig(), logger.Nop())

	_, err := e.Evaluate(context.Background(), candidate(t, "X", "100", "0"))
	assert.NoError(t, err)
}

func TestRange(t *testing.T) {
	low, high := Range([]contracts.Bar{bar("7", "9", "8"), bar("3", "8", "4"), bar("5", "12", "6")})
	assert.True(t, low.Equal(d("3")))
	assert.True(t, high.Equal(d("12")))

	low, high = Range(nil)
	assert.True(t, low.IsZero())
	assert.True(t, high.IsZero())
}

func TestSkipReason_Unknown(t *testing.T) {
	assert.Equal(t, "evaluation_failed", SkipReason(errors.New("boom")))
}
