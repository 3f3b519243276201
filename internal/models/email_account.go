package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailAccount is a user's mail account used for sending (SMTP) and watching (IMAP).
// The password is stored encrypted; decryption happens only at send/fetch time.
type EmailAccount struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	AccountName       string    `json:"account_name"`
	EmailAddress      string    `json:"email_address"`
	IMAPServer        string    `json:"imap_server,omitempty"`
	IMAPPort          int       `json:"imap_port,omitempty"`
	SMTPServer        string    `json:"smtp_server,omitempty"`
	SMTPPort          int       `json:"smtp_port,omitempty"`
	Username          string    `json:"username"`
	PasswordEncrypted string    `json:"-"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}
