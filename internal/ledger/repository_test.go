package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipbot/internal/contracts"
)

var (
	_ contracts.Ledger      = (*Repository)(nil)
	_ contracts.RunRecorder = (*Repository)(nil)
)

// newTestRepository connects to TEST_DATABASE_URL and resets the schema.
// The tables are dropped, so never point it at a real ledger.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping ledger integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx, true))
	return repo
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func samplePosition(ticker string) *contracts.Position {
	return &contracts.Position{
		Ticker:           ticker,
		AverageCost:      d("48"),
		Quantity:         41,
		CurrentPrice:     d("48"),
		TargetPrice:      d("55"),
		PreDipPrice:      d("60"),
		Week52Low:        d("10"),
		Week52High:       d("70"),
		PreDipPercentile: d("83.33"),
		StrategyVersion:  "v1.0",
	}
}

func TestRepository_PositionLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	pos := samplePosition("Y")
	id, err := repo.InsertPosition(ctx, pos)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.False(t, pos.BuyDate.IsZero())

	open, err := repo.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Y", open[0].Ticker)
	assert.True(t, open[0].PreDipPercentile.Equal(d("83.33")))
	assert.Nil(t, open[0].Profit)
	assert.Nil(t, open[0].SellReason)
	assert.Equal(t, contracts.StatusActive, open[0].Status())

	closing := contracts.Closing{
		CurrentPrice: d("56"),
		Profit:       d("328"),
		SellDate:     time.Now().UTC(),
		SellReason:   contracts.SellReasonTargetReached,
	}
	require.NoError(t, repo.ClosePosition(ctx, id, closing))

	err = repo.ClosePosition(ctx, id, closing)
	assert.ErrorIs(t, err, contracts.ErrPositionNotOpen)

	open, err = repo.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	recent, err := repo.RecentPositions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].Profit)
	assert.True(t, recent[0].Profit.Equal(d("328")))
	assert.Equal(t, contracts.SellReasonTargetReached, *recent[0].SellReason)
	assert.Equal(t, contracts.StatusClosed, recent[0].Status())

	all, err := repo.AllPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_DuplicateOpenTickers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.InsertPosition(ctx, samplePosition("DUP"))
	require.NoError(t, err)
	_, err = repo.InsertPosition(ctx, samplePosition("DUP"))
	require.NoError(t, err)

	open, err := repo.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestRepository_UnboundedPercentile(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// a pre-dip price far above a very narrow range
	pos := samplePosition("NARROW")
	pos.Week52Low = d("10")
	pos.Week52High = d("10.0001")
	pos.PreDipPercentile = d("123456789012.35")

	_, err := repo.InsertPosition(ctx, pos)
	require.NoError(t, err)

	open, err := repo.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].PreDipPercentile.Equal(d("123456789012.35")), open[0].PreDipPercentile.String())
}

func TestMigrate_WidensBoundedPercentile(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.pool.Exec(ctx, `ALTER TABLE transactions ALTER COLUMN pre_dip_percentile TYPE NUMERIC(9,2)`)
	require.NoError(t, err)

	require.NoError(t, repo.Migrate(ctx, false))

	pos := samplePosition("WIDE")
	pos.PreDipPercentile = d("12345678.9")
	_, err = repo.InsertPosition(ctx, pos)
	require.NoError(t, err)
}

func TestRepository_ClosePositionMissing(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.ClosePosition(context.Background(), 999, contracts.Closing{SellDate: time.Now()})
	assert.ErrorIs(t, err, contracts.ErrPositionNotOpen)
}

func TestRepository_Runs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	report := contracts.NewRunReport(uuid.NewString(), false, "v1.0", started)
	report.Record(contracts.ItemResult{Side: contracts.SideBuy, Symbol: "Y", Outcome: contracts.OutcomeAccepted, Quantity: 41})
	report.Record(contracts.ItemResult{Side: contracts.SideBuy, Symbol: "F", Outcome: contracts.OutcomeSkipped, Reason: "degenerate_range"})
	report.FinishedAt = started.Add(time.Second)

	require.NoError(t, repo.SaveRun(ctx, report))
	require.NoError(t, repo.SaveRun(ctx, report))

	runs, err := repo.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, []string{"Y"}, runs[0].Buys)
	assert.Empty(t, runs[0].Sells)
	assert.Len(t, runs[0].Items, 2)
	assert.True(t, runs[0].StartedAt.Equal(started))
}
