package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateRepo stores one resume cursor per cadence.
type StateRepo struct {
	pool *pgxpool.Pool
}

func NewStateRepo(pool *pgxpool.Pool) *StateRepo {
	return &StateRepo{pool: pool}
}

// Get returns the cursor of a cadence; a missing row reads as a nil cursor and is not created.
func (r *StateRepo) Get(ctx context.Context, cadence string) (models.NotificationState, error) {
	state := models.NotificationState{Cadence: cadence}
	err := r.pool.QueryRow(ctx, `
		SELECT last_audit_notified, updated_at FROM notification_state WHERE cadence = $1
	`, cadence).Scan(&state.LastAuditNotified, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("get state %s: %w", cadence, err)
	}
	return state, nil
}

// Advance overwrites the cursor of a cadence.
func (r *StateRepo) Advance(ctx context.Context, cadence string, auditID int64) error {
	return advanceState(ctx, r.pool, cadence, auditID)
}

func advanceState(ctx context.Context, db execer, cadence string, auditID int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO notification_state (cadence, last_audit_notified, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (cadence) DO UPDATE SET
			last_audit_notified = EXCLUDED.last_audit_notified,
			updated_at = now()
	`, cadence, auditID)
	if err != nil {
		return fmt.Errorf("advance state %s: %w", cadence, err)
	}
	return nil
}

func (r *StateRepo) List(ctx context.Context) ([]models.NotificationState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cadence, last_audit_notified, updated_at FROM notification_state ORDER BY cadence
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []models.NotificationState
	for rows.Next() {
		var s models.NotificationState
		if err := rows.Scan(&s.Cadence, &s.LastAuditNotified, &s.UpdatedAt); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
