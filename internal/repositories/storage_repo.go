package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StorageRepo is the generic object store of the registry. Writes to tracked
// types are recorded in the audit log within the same transaction.
type StorageRepo struct {
	pool *pgxpool.Pool
}

func NewStorageRepo(pool *pgxpool.Pool) *StorageRepo {
	return &StorageRepo{pool: pool}
}

func (r *StorageRepo) Get(ctx context.Context, objectType, id string) (json.RawMessage, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `
		SELECT data FROM generic_storage WHERE type = $1 AND id = $2
	`, objectType, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", objectType, id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *StorageRepo) GetAll(ctx context.Context, objectType string) (map[string]json.RawMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, data FROM generic_storage WHERE type = $1 ORDER BY id
	`, objectType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, rows.Err()
}

// Save upserts an object and returns the audit entry it produced, nil for untracked types.
func (r *StorageRepo) Save(ctx context.Context, objectType, id string, data json.RawMessage, actor string) (*models.AuditEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO generic_storage (id, type, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (type, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
		RETURNING (xmax = 0)
	`, id, objectType, string(data)).Scan(&inserted)
	if err != nil {
		return nil, fmt.Errorf("save %s %s: %w", objectType, id, err)
	}

	var entry *models.AuditEntry
	if models.IsTrackedEntity(objectType) {
		action := models.ActionUpdate
		if inserted {
			action = models.ActionCreate
		}
		entry = &models.AuditEntry{
			Action:     action,
			EntityType: objectType,
			EntityID:   id,
			Actor:      actor,
			Payload:    data,
		}
		if err := insertAudit(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes an object. The audit DELETE entry carries the last payload.
func (r *StorageRepo) Delete(ctx context.Context, objectType, id, actor string) (*models.AuditEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var data []byte
	err = tx.QueryRow(ctx, `
		DELETE FROM generic_storage WHERE type = $1 AND id = $2 RETURNING data
	`, objectType, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", objectType, id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete %s %s: %w", objectType, id, err)
	}

	var entry *models.AuditEntry
	if models.IsTrackedEntity(objectType) {
		entry = &models.AuditEntry{
			Action:     models.ActionDelete,
			EntityType: objectType,
			EntityID:   id,
			Actor:      actor,
			Payload:    data,
		}
		if err := insertAudit(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}
