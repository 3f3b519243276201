package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailTemplate holds a reusable subject/body pair. Subject and body may contain
// template placeholders resolved per recipient at send time.
type EmailTemplate struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
