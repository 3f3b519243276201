package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign status values. Only draft campaigns are editable or deletable;
// a finished campaign is completed when every recipient succeeded, partial otherwise.
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusSending   = "sending"
	CampaignStatusCompleted = "completed"
	CampaignStatusPartial   = "partial"
)

// Campaign tracks one batch send across many recipients.
// TotalRecipients is fixed once sending starts; SentCount only grows.
type Campaign struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Name            string     `json:"name"`
	TemplateID      *uuid.UUID `json:"template_id,omitempty"`
	ContactListID   *uuid.UUID `json:"contact_list_id,omitempty"`
	Status          string     `json:"status"`
	TotalRecipients int        `json:"total_recipients"`
	SentCount       int        `json:"sent_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CampaignStats is computed from email_logs rows, not from the campaign's
// own counters, so a lost bookkeeping write cannot skew reporting.
type CampaignStats struct {
	CampaignID      uuid.UUID  `json:"campaign_id"`
	Status          string     `json:"status"`
	TotalRecipients int        `json:"total_recipients"`
	SentCount       int        `json:"sent_count"`
	FailedCount     int        `json:"failed_count"`
	PendingCount    int        `json:"pending_count"`
	SuccessRate     float64    `json:"success_rate"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
