package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
)

// DefaultListLimit bounds list queries when the caller passes no limit
const DefaultListLimit = 100

const positionColumns = `
	id, tckr, buy_date, average_cost, quantity, current_price, target_price,
	profit, sell_date, sell_reason, pre_dip_price, week52_low, week52_high,
	pre_dip_percentile, strategy_version
`

// Repository implements contracts.Ledger and contracts.RunRecorder on Postgres
// ⭐ SSOT: transactions and strategy_runs are written only here
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new ledger repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertPosition stores a new open position and fills in its ID and buy date
func (r *Repository) InsertPosition(ctx context.Context, pos *contracts.Position) (int64, error) {
	query := `
		INSERT INTO transactions (
			tckr, average_cost, quantity, current_price, target_price,
			pre_dip_price, week52_low, week52_high, pre_dip_percentile,
			strategy_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, buy_date
	`

	err := r.pool.QueryRow(ctx, query,
		pos.Ticker,
		pos.AverageCost,
		pos.Quantity,
		pos.CurrentPrice,
		pos.TargetPrice,
		pos.PreDipPrice,
		pos.Week52Low,
		pos.Week52High,
		pos.PreDipPercentile,
		pos.StrategyVersion,
	).Scan(&pos.ID, &pos.BuyDate)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position: %w", err)
	}

	return pos.ID, nil
}

// OpenPositions returns every position without a sell date, oldest first
func (r *Repository) OpenPositions(ctx context.Context) ([]contracts.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM transactions
		WHERE sell_date IS NULL
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ClosePosition marks an open position sold. Returns
// contracts.ErrPositionNotOpen when the row is missing or already closed.
func (r *Repository) ClosePosition(ctx context.Context, id int64, closing contracts.Closing) error {
	query := `
		UPDATE transactions SET
			current_price = $2,
			profit = $3,
			sell_date = $4,
			sell_reason = $5
		WHERE id = $1 AND sell_date IS NULL
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		closing.CurrentPrice,
		closing.Profit,
		closing.SellDate,
		closing.SellReason,
	)
	if err != nil {
		return fmt.Errorf("failed to close position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %d: %w", id, contracts.ErrPositionNotOpen)
	}

	return nil
}

// RecentPositions returns the latest positions by activity date
func (r *Repository) RecentPositions(ctx context.Context, limit int) ([]contracts.Position, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + positionColumns + `
		FROM transactions
		ORDER BY COALESCE(sell_date, buy_date) DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// AllPositions returns the full ledger in insertion order
func (r *Repository) AllPositions(ctx context.Context) ([]contracts.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM transactions
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]contracts.Position, error) {
	positions := []contracts.Position{}

	for rows.Next() {
		var (
			p          contracts.Position
			profit     decimal.NullDecimal
			sellReason *string
		)

		err := rows.Scan(
			&p.ID,
			&p.Ticker,
			&p.BuyDate,
			&p.AverageCost,
			&p.Quantity,
			&p.CurrentPrice,
			&p.TargetPrice,
			&profit,
			&p.SellDate,
			&sellReason,
			&p.PreDipPrice,
			&p.Week52Low,
			&p.Week52High,
			&p.PreDipPercentile,
			&p.StrategyVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}

		if profit.Valid {
			p.Profit = &profit.Decimal
		}
		p.SellReason = sellReason

		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	return positions, nil
}

// SaveRun stores a finished run report
func (r *Repository) SaveRun(ctx context.Context, report *contracts.RunReport) error {
	items, err := json.Marshal(report.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	query := `
		INSERT INTO strategy_runs (
			run_id, execute, strategy_version, config_hash, buys, sells,
			skipped, items, started_at, finished_at, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			buys = EXCLUDED.buys,
			sells = EXCLUDED.sells,
			skipped = EXCLUDED.skipped,
			items = EXCLUDED.items,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error
	`

	_, err = r.pool.Exec(ctx, query,
		report.RunID,
		report.Execute,
		report.StrategyVersion,
		report.ConfigHash,
		report.Buys,
		report.Sells,
		report.Count(contracts.OutcomeSkipped),
		items,
		report.StartedAt,
		report.FinishedAt,
		report.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}

	return nil
}

// RecentRuns returns the latest run reports, newest first
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]contracts.RunReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT
			run_id::text, execute, strategy_version, config_hash, buys, sells,
			items, started_at, finished_at, error
		FROM strategy_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []contracts.RunReport{}
	for rows.Next() {
		var (
			run   contracts.RunReport
			items []byte
		)

		err := rows.Scan(
			&run.RunID,
			&run.Execute,
			&run.StrategyVersion,
			&run.ConfigHash,
			&run.Buys,
			&run.Sells,
			&items,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal(items, &run.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items for run %s: %w", run.RunID, err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
