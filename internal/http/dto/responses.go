package dto

import (
	"encoding/json"
	"time"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// TaskSummary is a queued task without its target list.
type TaskSummary struct {
	ID           uuid.UUID `json:"id"`
	RecipientKey string    `json:"recipient_key"`
	Cadence      string    `json:"cadence"`
	Targets      int       `json:"targets"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewTaskSummary(t models.NotificationTask) TaskSummary {
	return TaskSummary{
		ID:           t.ID,
		RecipientKey: t.RecipientKey,
		Cadence:      t.Cadence,
		Targets:      len(t.Targets),
		CreatedAt:    t.CreatedAt,
	}
}

type ObjectResponse struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// ObjectWriteResponse carries the audit version a write produced, if any.
type ObjectWriteResponse struct {
	Type  string             `json:"type"`
	ID    string             `json:"id"`
	Audit *models.AuditEntry `json:"audit,omitempty"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
