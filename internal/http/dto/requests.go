package dto

import (
	"encoding/json"
	"time"
)

// AppendAuditRequest is an audit entry written by an external writer.
// Actor defaults to the calling operator.
type AppendAuditRequest struct {
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Actor      string          `json:"actor,omitempty"`
	Time       *time.Time      `json:"time,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}
