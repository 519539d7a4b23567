package handlers

import (
	"context"
	"encoding/json"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/google/uuid"
)

type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	Get(ctx context.Context, id int64) (*models.AuditEntry, error)
	ListForEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditEntry, error)
}

type ObjectStore interface {
	Get(ctx context.Context, objectType, id string) (json.RawMessage, error)
	Save(ctx context.Context, objectType, id string, data json.RawMessage, actor string) (*models.AuditEntry, error)
	Delete(ctx context.Context, objectType, id, actor string) (*models.AuditEntry, error)
}

type CursorLister interface {
	List(ctx context.Context) ([]models.NotificationState, error)
}

type TaskStore interface {
	List(ctx context.Context) ([]models.NotificationTask, error)
	Get(ctx context.Context, id uuid.UUID) (*models.NotificationTask, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DigestBuilder interface {
	Build(ctx context.Context, task models.NotificationTask) (*models.Digest, error)
}
