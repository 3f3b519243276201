package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailLog direction values.
const (
	EmailDirectionSent     = "sent"
	EmailDirectionReceived = "received"
)

// EmailLog status values.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog is one append-only delivery record. Rows are never mutated after
// insert; statistics are recomputed from them by aggregation.
type EmailLog struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	AccountID    *uuid.UUID `json:"account_id,omitempty"`
	Direction    string     `json:"direction"`
	Recipient    string     `json:"recipient,omitempty"`
	Sender       string     `json:"sender,omitempty"`
	Subject      string     `json:"subject,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CampaignID   *uuid.UUID `json:"campaign_id,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
