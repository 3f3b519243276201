package automation

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/templates"
	"github.com/mailpilot/backend/pkg/queue"
)

// TemplateStore resolves reply templates.
type TemplateStore interface {
	GetByID(ctx context.Context, userID, templateID uuid.UUID) (*models.EmailTemplate, error)
}

// ReplyQueue hands auto-reply sends to the background worker.
type ReplyQueue interface {
	EnqueueAutoReply(ctx context.Context, payload queue.AutoReplyPayload) error
}

// Mailbox mutates messages on the account's IMAP server.
type Mailbox interface {
	MarkRead(ctx context.Context, account *models.EmailAccount, password string, uid uint32) error
	MoveToFolder(ctx context.Context, account *models.EmailAccount, password string, uid uint32, folder string) error
}

// Executor runs the actions of triggered rules. Each action is isolated:
// one failure is logged and the rest still run. Unknown action types are
// skipped with a warning.
type Executor struct {
	templates TemplateStore
	replies   ReplyQueue
	mailbox   Mailbox
	renderer  templates.Renderer
	logger    *zap.Logger
}

// NewExecutor creates an action executor.
func NewExecutor(tmpl TemplateStore, replies ReplyQueue, mailbox Mailbox, renderer templates.Renderer, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{templates: tmpl, replies: replies, mailbox: mailbox, renderer: renderer, logger: logger}
}

// Execute runs every action in set against msg on the given account.
func (e *Executor) Execute(ctx context.Context, account *models.EmailAccount, password string, msg *models.InboxMessage, set ActionSet) {
	for _, action := range set.Actions {
		var err error
		switch action.Type {
		case models.ActionAutoReply:
			err = e.autoReply(ctx, account, msg, set, action)
		case models.ActionMarkAsRead:
			err = e.mailbox.MarkRead(ctx, account, password, msg.UID)
		case models.ActionMoveToFolder:
			if action.Folder == "" {
				e.logger.Warn("move action without folder skipped",
					zap.String("rule", set.RuleName))
				continue
			}
			err = e.mailbox.MoveToFolder(ctx, account, password, msg.UID, action.Folder)
		default:
			e.logger.Warn("unknown action type skipped",
				zap.String("rule", set.RuleName),
				zap.String("type", action.Type))
			continue
		}
		if err != nil {
			e.logger.Error("rule action failed",
				zap.String("rule", set.RuleName),
				zap.String("type", action.Type),
				zap.Uint32("uid", msg.UID),
				zap.Error(err))
			continue
		}
		e.logger.Info("rule action executed",
			zap.String("rule", set.RuleName),
			zap.String("type", action.Type),
			zap.Uint32("uid", msg.UID))
	}
}

func (e *Executor) autoReply(ctx context.Context, account *models.EmailAccount, msg *models.InboxMessage, set ActionSet, action models.RuleAction) error {
	recipient := ExtractAddress(msg.Sender)
	subject := "Re: " + msg.Subject
	body := "Thank you for your message. We will get back to you shortly."

	if action.TemplateID != nil {
		tmpl, err := e.templates.GetByID(ctx, account.UserID, *action.TemplateID)
		if err != nil {
			return err
		}
		if tmpl != nil {
			renderCtx := templates.BuildContext(recipient, nil)
			if tmpl.Subject != "" {
				subject = e.renderer.Render(tmpl.Subject, renderCtx)
			}
			if tmpl.Body != "" {
				body = e.renderer.Render(tmpl.Body, renderCtx)
			}
		}
	}

	return e.replies.EnqueueAutoReply(ctx, queue.AutoReplyPayload{
		UserID:     account.UserID,
		AccountID:  account.ID,
		RuleID:     set.RuleID,
		TemplateID: action.TemplateID,
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
	})
}
