package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification cadences
const (
	CadenceAll     = "ALL"
	CadenceDaily   = "DAILY"
	CadenceWeekly  = "WEEKLY"
	CadenceMonthly = "MONTHLY"
)

// Subscription kinds
const (
	SubscriptionAllEvents = "ALL_EVENTS"
	SubscriptionTargeted  = "TARGETED"
)

var AllCadences = []string{CadenceAll, CadenceDaily, CadenceWeekly, CadenceMonthly}

func IsValidCadence(cadence string) bool {
	for _, c := range AllCadences {
		if c == cadence {
			return true
		}
	}
	return false
}

// Subscription binds a recipient to a cadence and either one target or every event.
type Subscription struct {
	ID           uuid.UUID `json:"id"`
	RecipientKey string    `json:"recipient_key"`
	Cadence      string    `json:"cadence"`
	Kind         string    `json:"kind"`
	Target       *string   `json:"target,omitempty"` // set iff Kind == TARGETED
}

func (s Subscription) IsAllEvents() bool {
	return s.Kind == SubscriptionAllEvents
}

// NotificationState is the resume cursor of one cadence.
type NotificationState struct {
	Cadence           string     `json:"cadence"`
	LastAuditNotified *int64     `json:"last_audit_notified,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// AuditTarget is the audit boundary of one target inside a task.
// PrevAuditID == nil: created in the batch. CurrAuditID == nil: deleted in the batch.
// DeltaOnly marks a team carried into a targeted task only to render its move
// on the subscribed area; it never yields an item of its own.
type AuditTarget struct {
	TargetID    string `json:"target_id"`
	EntityType  string `json:"entity_type"`
	PrevAuditID *int64 `json:"prev_audit_id,omitempty"`
	CurrAuditID *int64 `json:"curr_audit_id,omitempty"`
	DeltaOnly   bool   `json:"delta_only,omitempty"`
}

type NotificationTask struct {
	ID           uuid.UUID     `json:"id"`
	RecipientKey string        `json:"recipient_key"`
	Cadence      string        `json:"cadence"`
	Targets      []AuditTarget `json:"targets"`
	CreatedAt    time.Time     `json:"created_at"`
}
