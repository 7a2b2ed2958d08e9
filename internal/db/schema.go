package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Monetary columns are BIGINT at 1e6 fixed-point scale.
const schema = `
CREATE TABLE IF NOT EXISTS protocol_config (
	singleton              BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	admin                  TEXT NOT NULL,
	operator               TEXT NOT NULL,
	fee_recipient          TEXT NOT NULL,
	treasury_balance       BIGINT NOT NULL DEFAULT 0,
	total_shares           BIGINT NOT NULL DEFAULT 0,
	total_trading_deployed BIGINT NOT NULL DEFAULT 0,
	accumulated_fees       BIGINT NOT NULL DEFAULT 0,
	performance_fee_bps    SMALLINT NOT NULL,
	is_paused              BOOLEAN NOT NULL DEFAULT FALSE,
	deployed_current_value BIGINT NOT NULL DEFAULT 0,
	last_valuation_ts      BIGINT NOT NULL DEFAULT 0,
	pending_unrealized_fees BIGINT NOT NULL DEFAULT 0,
	last_fee_sweep         BIGINT NOT NULL DEFAULT 0,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_positions (
	owner            TEXT PRIMARY KEY,
	shares           BIGINT NOT NULL DEFAULT 0,
	deposited_amount BIGINT NOT NULL DEFAULT 0,
	withdrawn_amount BIGINT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS vault_events (
	id         UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	ts         BIGINT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS vault_events_type_ts_idx ON vault_events (event_type, ts DESC);
CREATE INDEX IF NOT EXISTS vault_events_ts_idx ON vault_events (ts DESC);
`

// Migrate creates the vault tables if they do not exist.
func Migrate(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
