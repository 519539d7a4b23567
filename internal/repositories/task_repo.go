package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepo is the notification task queue.
type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Save(ctx context.Context, task *models.NotificationTask) error {
	return insertTask(ctx, r.pool, task)
}

// Enqueue stores the tasks of one aggregation tick and moves the cadence
// cursor in the same transaction. Either all of it lands or none does.
func (r *TaskRepo) Enqueue(ctx context.Context, cadence string, tasks []models.NotificationTask, cursor int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range tasks {
		if err := insertTask(ctx, tx, &tasks[i]); err != nil {
			return err
		}
	}
	if err := advanceState(ctx, tx, cadence, cursor); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTask(ctx context.Context, db execer, task *models.NotificationTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	targets, err := json.Marshal(task.Targets)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO notification_task (id, recipient_key, cadence, targets, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET targets = EXCLUDED.targets
	`, task.ID, task.RecipientKey, task.Cadence, string(targets), task.CreatedAt)
	if err != nil {
		return fmt.Errorf("save task for %s: %w", task.RecipientKey, err)
	}
	return nil
}

// List returns every queued task, oldest first.
func (r *TaskRepo) List(ctx context.Context) ([]models.NotificationTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_key, cadence, targets, created_at
		FROM notification_task ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotificationTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Get(ctx context.Context, id uuid.UUID) (*models.NotificationTask, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, recipient_key, cadence, targets, created_at
		FROM notification_task WHERE id = $1
	`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notification_task WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func scanTask(row pgx.Row) (*models.NotificationTask, error) {
	var t models.NotificationTask
	var targets []byte
	if err := row.Scan(&t.ID, &t.RecipientKey, &t.Cadence, &targets, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(targets, &t.Targets); err != nil {
		return nil, fmt.Errorf("decode targets of task %s: %w", t.ID, err)
	}
	return &t, nil
}
