package repositories

import (
	"context"
	"fmt"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepo reads subscriptions owned by the registry. The notifier never writes them.
type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

func (r *SubscriptionRepo) ListByCadence(ctx context.Context, cadence string) ([]models.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_key, cadence, kind, target
		FROM notification WHERE cadence = $1
		ORDER BY recipient_key, created_at
	`, cadence)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions %s: %w", cadence, err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.RecipientKey, &s.Cadence, &s.Kind, &s.Target); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
