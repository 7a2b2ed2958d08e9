package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lhermoso/grid-vault/internal/models"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// List returns the most recent events, newest first.
// eventType filters by type; "" returns all.
func (r *EventRepo) List(ctx context.Context, limit int, eventType string) ([]models.VaultEvent, error) {
	query := `SELECT id, event_type, ts, payload, created_at FROM vault_events`
	args := []any{}
	if eventType != "" {
		args = append(args, eventType)
		query += fmt.Sprintf(" WHERE event_type = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VaultEvent
	for rows.Next() {
		var ev models.VaultEvent
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Timestamp, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// insertEvents appends emitted records inside the operation's transaction.
func insertEvents(ctx context.Context, tx pgx.Tx, events []models.VaultEvent) error {
	for _, ev := range events {
		_, err := tx.Exec(ctx,
			`INSERT INTO vault_events (id, event_type, ts, payload) VALUES ($1, $2, $3, $4)`,
			ev.ID, ev.Type, ev.Timestamp, ev.Payload,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
