package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// auditAppendLockKey makes id order equal commit order: a reader that has seen
// id N can never later find a committed id below N.
const auditAppendLockKey = 7_310_002

const auditColumns = `id, action, table_name, table_id, time, actor, data`

// AuditRepo is the append-only audit log. It has no update or delete path.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Append(ctx context.Context, entry *models.AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertAudit(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertAudit(ctx context.Context, tx pgx.Tx, entry *models.AuditEntry) error {
	if !models.IsValidAction(entry.Action) {
		return fmt.Errorf("invalid audit action %q", entry.Action)
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", auditAppendLockKey); err != nil {
		return fmt.Errorf("lock audit log: %w", err)
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO audit_version (action, table_name, table_id, time, actor, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, entry.Action, entry.EntityType, entry.EntityID, entry.Time, entry.Actor, string(entry.Payload)).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Since returns entries with id > cursor, oldest first. limit <= 0 means no limit.
func (r *AuditRepo) Since(ctx context.Context, cursor int64, limit int) ([]models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_version WHERE id > $1 ORDER BY id`
	args := []any{cursor}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audits since %d: %w", cursor, err)
	}
	defer rows.Close()

	return scanAudits(rows)
}

// PreviousFor returns the id of the nearest older entry of the same target.
// CREATE entries have no predecessor and return nil.
func (r *AuditRepo) PreviousFor(ctx context.Context, entry models.AuditEntry) (*int64, error) {
	if entry.Action == models.ActionCreate {
		return nil, nil
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM audit_version
		WHERE table_name = $1 AND table_id = $2 AND id < $3
		ORDER BY id DESC LIMIT 1
	`, entry.EntityType, entry.EntityID, entry.ID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query previous audit for %d: %w", entry.ID, err)
	}
	return &id, nil
}

func (r *AuditRepo) Get(ctx context.Context, id int64) (*models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+auditColumns+` FROM audit_version WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanAudits(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("audit %d: %w", id, models.ErrNotFound)
	}
	return &entries[0], nil
}

// Latest returns the newest entry of the whole log, or nil when the log is empty.
func (r *AuditRepo) Latest(ctx context.Context) (*models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+auditColumns+` FROM audit_version ORDER BY id DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return firstAudit(rows)
}

// LatestFor returns the newest entry of one target, or nil when it has no history.
func (r *AuditRepo) LatestFor(ctx context.Context, entityType, entityID string) (*models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_version
		WHERE table_name = $1 AND table_id = $2
		ORDER BY id DESC LIMIT 1
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return firstAudit(rows)
}

func (r *AuditRepo) ListForEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_version
		WHERE table_name = $1 AND table_id = $2
		ORDER BY id DESC LIMIT $3 OFFSET $4
	`, entityType, entityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAudits(rows)
}

func firstAudit(rows pgx.Rows) (*models.AuditEntry, error) {
	entries, err := scanAudits(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func scanAudits(rows pgx.Rows) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var data []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.Time, &e.Actor, &data); err != nil {
			return nil, err
		}
		e.Payload = data
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
