package services

import (
	"context"
	"encoding/json"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/google/uuid"
)

// AuditLog is the read side of the audit log, satisfied by repositories.AuditRepo.
type AuditLog interface {
	Since(ctx context.Context, cursor int64, limit int) ([]models.AuditEntry, error)
	PreviousFor(ctx context.Context, entry models.AuditEntry) (*int64, error)
	Get(ctx context.Context, id int64) (*models.AuditEntry, error)
	Latest(ctx context.Context) (*models.AuditEntry, error)
	LatestFor(ctx context.Context, entityType, entityID string) (*models.AuditEntry, error)
}

type CursorStore interface {
	Get(ctx context.Context, cadence string) (models.NotificationState, error)
	Advance(ctx context.Context, cadence string, auditID int64) error
}

type SubscriptionSource interface {
	ListByCadence(ctx context.Context, cadence string) ([]models.Subscription, error)
}

type TaskQueue interface {
	Save(ctx context.Context, task *models.NotificationTask) error
	List(ctx context.Context) ([]models.NotificationTask, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskWriter stores the tasks of a tick together with the advanced cursor.
type TaskWriter interface {
	Enqueue(ctx context.Context, cadence string, tasks []models.NotificationTask, cursor int64) error
}

// ObjectStore serves current snapshots of registry objects.
type ObjectStore interface {
	Get(ctx context.Context, objectType, id string) (json.RawMessage, error)
}
