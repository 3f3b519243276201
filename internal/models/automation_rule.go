package models

import (
	"time"

	"github.com/google/uuid"
)

// Automation action types. Unknown types are skipped with a warning at
// execution time rather than failing the whole action set.
const (
	ActionAutoReply    = "auto_reply"
	ActionMarkAsRead   = "mark_as_read"
	ActionMoveToFolder = "move_to_folder"
)

// RuleConditions narrows a keyword-triggered rule. A non-matching sender
// pattern or an out-of-hours evaluation clears the trigger.
type RuleConditions struct {
	SenderPattern     string `json:"sender_pattern,omitempty"`
	BusinessHoursOnly bool   `json:"business_hours_only,omitempty"`
}

// RuleAction is one action contributed by a triggered rule.
type RuleAction struct {
	Type       string     `json:"type"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	Folder     string     `json:"folder,omitempty"`
}

// AutomationRule matches inbox messages by keyword and yields actions.
type AutomationRule struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	Name       string         `json:"name"`
	Keywords   []string       `json:"keywords"`
	Conditions RuleConditions `json:"conditions"`
	Actions    []RuleAction   `json:"actions"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
}
