package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lhermoso/grid-vault/internal/models"
	"github.com/lhermoso/grid-vault/internal/vault"
)

const configColumns = `admin, operator, fee_recipient, treasury_balance, total_shares,
	total_trading_deployed, accumulated_fees, performance_fee_bps, is_paused,
	deployed_current_value, last_valuation_ts, pending_unrealized_fees,
	last_fee_sweep, created_at, updated_at`

const positionColumns = `owner, shares, deposited_amount, withdrawn_amount, created_at, updated_at`

// VaultRepo is the transactional boundary around the accounting state
// machine. Every mutating operation locks the singleton config row (and the
// touched position row), applies a pure vault.Transition, and persists the
// result together with the emitted events in one transaction. The row lock
// is what serializes concurrent operations.
type VaultRepo struct {
	pool *pgxpool.Pool
}

func NewVaultRepo(pool *pgxpool.Pool) *VaultRepo {
	return &VaultRepo{pool: pool}
}

// Initialize creates the singleton config. A second call fails with
// vault.ErrAlreadyInitialized.
func (r *VaultRepo) Initialize(ctx context.Context, admin, operator, feeRecipient string, feeBps uint16, now time.Time) (*models.ProtocolConfig, []models.VaultEvent, error) {
	cfg, ev, err := vault.Initialize(admin, operator, feeRecipient, feeBps, now)
	if err != nil {
		return nil, nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO protocol_config
		 (singleton, admin, operator, fee_recipient, performance_fee_bps, created_at, updated_at)
		 VALUES (TRUE, $1, $2, $3, $4, $5, $5)`,
		cfg.Admin, cfg.Operator, cfg.FeeRecipient, int16(cfg.PerformanceFeeBps), now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, nil, vault.ErrAlreadyInitialized
		}
		return nil, nil, err
	}

	events := []models.VaultEvent{ev}
	if err := insertEvents(ctx, tx, events); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return cfg, events, nil
}

// CreatePosition registers an empty position for owner.
func (r *VaultRepo) CreatePosition(ctx context.Context, owner string, now time.Time) (*models.UserPosition, error) {
	if owner == "" {
		return nil, vault.ErrInvalidAmount
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_positions (owner, created_at, updated_at)
		 VALUES ($1, $2, $2)
		 ON CONFLICT (owner) DO NOTHING`,
		owner, now,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, vault.ErrPositionExists
	}
	return &models.UserPosition{Owner: owner, CreatedAt: now, UpdatedAt: now}, nil
}

// Mutate runs one atomic operation. owner names the position row the
// transition touches; pass "" for operations that only move aggregate state.
func (r *VaultRepo) Mutate(ctx context.Context, owner string, fn vault.Transition) ([]models.VaultEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cfg, err := lockConfig(ctx, tx)
	if err != nil {
		return nil, err
	}
	state := vault.NewState(cfg)

	if owner != "" {
		pos, err := lockPosition(ctx, tx, owner)
		if err != nil {
			return nil, err
		}
		if pos != nil {
			state.Positions[owner] = pos
		}
	}

	events, err := fn(state)
	if err != nil {
		return nil, err
	}

	if err := saveConfig(ctx, tx, state.Config); err != nil {
		return nil, err
	}
	for _, pos := range state.Positions {
		if err := upsertPosition(ctx, tx, pos); err != nil {
			return nil, err
		}
	}
	if err := insertEvents(ctx, tx, events); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

// View runs a read-only function against a consistent snapshot. owner may
// be "" when the read needs no position.
func (r *VaultRepo) View(ctx context.Context, owner string, fn func(*vault.State) error) error {
	cfg, err := r.GetConfig(ctx)
	if err != nil {
		return err
	}
	state := vault.NewState(cfg)
	if owner != "" {
		pos, err := r.GetPosition(ctx, owner)
		if err != nil {
			return err
		}
		if pos != nil {
			state.Positions[owner] = pos
		}
	}
	return fn(state)
}

func (r *VaultRepo) GetConfig(ctx context.Context) (*models.ProtocolConfig, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+configColumns+` FROM protocol_config WHERE singleton`)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, vault.ErrNotInitialized
	}
	return cfg, err
}

func (r *VaultRepo) GetPosition(ctx context.Context, owner string) (*models.UserPosition, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM user_positions WHERE owner = $1`, owner)
	pos, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

func (r *VaultRepo) ListPositions(ctx context.Context, limit int) ([]models.UserPosition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+positionColumns+` FROM user_positions ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserPosition
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pos)
	}
	return out, rows.Err()
}

// --- locked loads and writes ---

func lockConfig(ctx context.Context, tx pgx.Tx) (*models.ProtocolConfig, error) {
	row := tx.QueryRow(ctx, `SELECT `+configColumns+` FROM protocol_config WHERE singleton FOR UPDATE`)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, vault.ErrNotInitialized
	}
	return cfg, err
}

func lockPosition(ctx context.Context, tx pgx.Tx, owner string) (*models.UserPosition, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM user_positions WHERE owner = $1 FOR UPDATE`, owner)
	pos, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

func saveConfig(ctx context.Context, tx pgx.Tx, cfg *models.ProtocolConfig) error {
	_, err := tx.Exec(ctx,
		`UPDATE protocol_config SET
			treasury_balance = $1,
			total_shares = $2,
			total_trading_deployed = $3,
			accumulated_fees = $4,
			is_paused = $5,
			deployed_current_value = $6,
			last_valuation_ts = $7,
			pending_unrealized_fees = $8,
			last_fee_sweep = $9,
			updated_at = $10
		 WHERE singleton`,
		int64(cfg.TreasuryBalance),
		int64(cfg.TotalShares),
		int64(cfg.TotalTradingDeployed),
		int64(cfg.AccumulatedFees),
		cfg.IsPaused,
		int64(cfg.DeployedCurrentValue),
		cfg.LastValuationTimestamp,
		int64(cfg.PendingUnrealizedFees),
		cfg.LastFeeSweep,
		cfg.UpdatedAt,
	)
	return err
}

func upsertPosition(ctx context.Context, tx pgx.Tx, pos *models.UserPosition) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_positions (owner, shares, deposited_amount, withdrawn_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (owner) DO UPDATE SET
			shares = EXCLUDED.shares,
			deposited_amount = EXCLUDED.deposited_amount,
			withdrawn_amount = EXCLUDED.withdrawn_amount,
			updated_at = EXCLUDED.updated_at`,
		pos.Owner,
		int64(pos.Shares),
		int64(pos.DepositedAmount),
		int64(pos.WithdrawnAmount),
		pos.CreatedAt,
		pos.UpdatedAt,
	)
	return err
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanConfig(row scannable) (*models.ProtocolConfig, error) {
	var cfg models.ProtocolConfig
	var treasury, shares, deployed, fees, value, pending int64
	var bps int16
	err := row.Scan(
		&cfg.Admin, &cfg.Operator, &cfg.FeeRecipient,
		&treasury, &shares, &deployed, &fees, &bps, &cfg.IsPaused,
		&value, &cfg.LastValuationTimestamp, &pending,
		&cfg.LastFeeSweep, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.TreasuryBalance = uint64(treasury)
	cfg.TotalShares = uint64(shares)
	cfg.TotalTradingDeployed = uint64(deployed)
	cfg.AccumulatedFees = uint64(fees)
	cfg.PerformanceFeeBps = uint16(bps)
	cfg.DeployedCurrentValue = uint64(value)
	cfg.PendingUnrealizedFees = uint64(pending)
	return &cfg, nil
}

func scanPosition(row scannable) (*models.UserPosition, error) {
	var pos models.UserPosition
	var shares, deposited, withdrawn int64
	err := row.Scan(&pos.Owner, &shares, &deposited, &withdrawn, &pos.CreatedAt, &pos.UpdatedAt)
	if err != nil {
		return nil, err
	}
	pos.Shares = uint64(shares)
	pos.DepositedAmount = uint64(deposited)
	pos.WithdrawnAmount = uint64(withdrawn)
	return &pos, nil
}
