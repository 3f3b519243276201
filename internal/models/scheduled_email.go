package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduledEmail status values. A row is terminal once it leaves pending;
// recurrence produces a fresh pending row instead of rewriting the fired one.
const (
	ScheduleStatusPending = "pending"
	ScheduleStatusSent    = "sent"
	ScheduleStatusFailed  = "failed"
)

// ScheduledEmail is one persisted send due at ScheduledTime.
type ScheduledEmail struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	TemplateID        *uuid.UUID `json:"template_id,omitempty"`
	RecipientList     []string   `json:"recipient_list"`
	ScheduledTime     time.Time  `json:"scheduled_time"`
	RecurrencePattern string     `json:"recurrence_pattern,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
}
