package models

import (
	"encoding/json"
	"time"
)

// Audit actions
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Object types. Only teams and product areas are audited; resources are
// reference data for member names and recipient addresses.
const (
	EntityTeam        = "Team"
	EntityProductArea = "ProductArea"
	EntityResource    = "Resource"
)

// AuditEntry is one immutable version of a domain object. Payload holds the
// full snapshot of the object at this version.
type AuditEntry struct {
	ID         int64           `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Time       time.Time       `json:"time"`
	Actor      string          `json:"actor"`
	Payload    json.RawMessage `json:"payload"`
}

func IsValidAction(action string) bool {
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

func IsTrackedEntity(entityType string) bool {
	switch entityType {
	case EntityTeam, EntityProductArea:
		return true
	}
	return false
}
