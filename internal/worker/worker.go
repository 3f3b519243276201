// Package worker runs queued background jobs. Auto-replies produced by
// automation rules are sent here rather than inside the inbox sweep so a
// slow SMTP server cannot hold up rule evaluation.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/pkg/queue"
)

// AccountStore resolves the sending account for a job.
type AccountStore interface {
	GetByID(ctx context.Context, userID, accountID uuid.UUID) (*models.EmailAccount, error)
}

// CredentialDecrypter turns a stored credential into a usable password.
type CredentialDecrypter interface {
	Decrypt(encrypted string) (string, error)
}

// LogStore appends delivery records.
type LogStore interface {
	Insert(ctx context.Context, entry *models.EmailLog) error
}

// AutoReplyProcessor sends queued auto-reply emails.
type AutoReplyProcessor struct {
	accounts  AccountStore
	creds     CredentialDecrypter
	transport mailer.Transport
	logs      LogStore
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewAutoReplyProcessor creates an auto-reply processor.
func NewAutoReplyProcessor(accounts AccountStore, creds CredentialDecrypter, transport mailer.Transport, logs LogStore, q *queue.Queue, logger *zap.Logger) *AutoReplyProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoReplyProcessor{
		accounts:  accounts,
		creds:     creds,
		transport: transport,
		logs:      logs,
		queue:     q,
		logger:    logger,
	}
}

// Process executes one auto-reply job.
func (p *AutoReplyProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAutoReply {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AutoReplyPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	account, err := p.accounts.GetByID(ctx, payload.UserID, payload.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account not found: %s", payload.AccountID)
	}
	password, err := p.creds.Decrypt(account.PasswordEncrypted)
	if err != nil {
		return fmt.Errorf("decrypt credential: %w", err)
	}

	msg := &models.OutgoingMessage{
		To:      []string{payload.Recipient},
		Subject: payload.Subject,
		Body:    payload.Body,
	}
	sendErr := p.transport.Send(ctx, account, password, msg)
	p.record(ctx, account, payload, sendErr)
	if sendErr != nil {
		return fmt.Errorf("send auto-reply: %w", sendErr)
	}

	p.logger.Info("auto-reply sent",
		zap.String("job_id", job.ID),
		zap.String("recipient", payload.Recipient),
		zap.String("rule_id", payload.RuleID.String()))
	return nil
}

func (p *AutoReplyProcessor) record(ctx context.Context, account *models.EmailAccount, payload queue.AutoReplyPayload, sendErr error) {
	now := time.Now().UTC()
	entry := &models.EmailLog{
		UserID:    payload.UserID,
		AccountID: &account.ID,
		Direction: models.EmailDirectionSent,
		Recipient: payload.Recipient,
		Sender:    account.EmailAddress,
		Subject:   payload.Subject,
		Status:    models.EmailLogStatusSent,
		SentAt:    &now,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
		entry.SentAt = nil
	}
	if err := p.logs.Insert(ctx, entry); err != nil {
		p.logger.Error("insert auto-reply log failed",
			zap.String("recipient", payload.Recipient), zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AutoReplyProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("auto-reply worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
