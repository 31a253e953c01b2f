package ledger

import (
	"context"
	"fmt"
)

const dropSchema = `
	DROP TABLE IF EXISTS strategy_runs;
	DROP TABLE IF EXISTS transactions;
`

// Open positions per ticker are not unique: a symbol that dips again while
// held is bought again.
const createSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id                 BIGSERIAL PRIMARY KEY,
		tckr               VARCHAR(16)    NOT NULL,
		buy_date           TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
		average_cost       NUMERIC(12,4)  NOT NULL,
		quantity           BIGINT         NOT NULL,
		current_price      NUMERIC(12,4)  NOT NULL,
		target_price       NUMERIC(12,4)  NOT NULL,
		profit             NUMERIC(14,4),
		sell_date          TIMESTAMPTZ,
		sell_reason        VARCHAR(32),
		pre_dip_price      NUMERIC(12,4)  NOT NULL,
		week52_low         NUMERIC(12,4)  NOT NULL,
		week52_high        NUMERIC(12,4)  NOT NULL,
		pre_dip_percentile NUMERIC        NOT NULL,
		strategy_version   VARCHAR(32)    NOT NULL
	);

	-- ledgers created with a bounded percentile column
	ALTER TABLE transactions ALTER COLUMN pre_dip_percentile TYPE NUMERIC;

	CREATE INDEX IF NOT EXISTS idx_transactions_active
		ON transactions (tckr) WHERE sell_date IS NULL;

	CREATE TABLE IF NOT EXISTS strategy_runs (
		run_id           UUID PRIMARY KEY,
		execute          BOOLEAN      NOT NULL,
		strategy_version VARCHAR(32)  NOT NULL,
		config_hash      VARCHAR(64)  NOT NULL DEFAULT '',
		buys             TEXT[]       NOT NULL DEFAULT '{}',
		sells            TEXT[]       NOT NULL DEFAULT '{}',
		skipped          INTEGER      NOT NULL DEFAULT 0,
		items            JSONB        NOT NULL DEFAULT '[]',
		started_at       TIMESTAMPTZ  NOT NULL,
		finished_at      TIMESTAMPTZ  NOT NULL,
		error            TEXT         NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_strategy_runs_started
		ON strategy_runs (started_at DESC);
`

// Migrate creates the ledger tables. With reset=true existing tables are
// dropped first.
func (r *Repository) Migrate(ctx context.Context, reset bool) error {
	if reset {
		if _, err := r.pool.Exec(ctx, dropSchema); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	if _, err := r.pool.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
