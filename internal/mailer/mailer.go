// Package mailer abstracts the outbound mail transport. Engines depend on the
// Transport interface; tests substitute fakes, production uses SMTP.
package mailer

import (
	"context"

	"github.com/mailpilot/backend/internal/models"
)

// Transport sends one message through the owner's mail account.
type Transport interface {
	Send(ctx context.Context, account *models.EmailAccount, password string, msg *models.OutgoingMessage) error
}

// ConnectionTest reports the outcome of a transport connectivity probe.
type ConnectionTest struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
