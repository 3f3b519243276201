// Package schedule implements the scheduled-email engine: a polling loop
// that fires due items, records per-recipient delivery logs and re-arms
// recurring items as fresh pending rows.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/templates"
)

// Store is the scheduled-email persistence surface the scheduler needs.
type Store interface {
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledEmail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Create(ctx context.Context, item *models.ScheduledEmail) error
}

// TemplateStore resolves owned templates.
type TemplateStore interface {
	GetByID(ctx context.Context, userID, templateID uuid.UUID) (*models.EmailTemplate, error)
}

// AccountResolver yields the owner's active account with a usable password.
type AccountResolver interface {
	ActiveSendAccount(ctx context.Context, userID uuid.UUID) (*models.EmailAccount, string, error)
}

// LogStore appends delivery records.
type LogStore interface {
	Insert(ctx context.Context, entry *models.EmailLog) error
}

// Scheduler polls for due scheduled emails and dispatches them. Start is
// idempotent: a second call while running is a no-op.
type Scheduler struct {
	store     Store
	templates TemplateStore
	accounts  AccountResolver
	transport mailer.Transport
	renderer  templates.Renderer
	logs      LogStore
	logger    *zap.Logger
	interval  time.Duration
	sendDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler polling at interval with sendDelay between
// recipients of one item.
func NewScheduler(store Store, tmpl TemplateStore, accounts AccountResolver, transport mailer.Transport, renderer templates.Renderer, logs LogStore, interval, sendDelay time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:     store,
		templates: tmpl,
		accounts:  accounts,
		transport: transport,
		renderer:  renderer,
		logs:      logs,
		logger:    logger,
		interval:  interval,
		sendDelay: sendDelay,
	}
}

// Start launches the polling loop. Calling Start on a running scheduler does
// not spawn a second poller.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Debug("scheduler already running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
}

// Stop signals the loop and waits for it to exit. The in-flight batch, if
// any, finishes first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			// Cancellation is only observed between ticks; the batch
			// runs to completion once started.
			s.processDue(context.WithoutCancel(ctx), now.UTC())
		}
	}
}

func (s *Scheduler) processDue(ctx context.Context, now time.Time) {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("list due scheduled emails failed", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Info("processing due scheduled emails", zap.Int("count", len(due)))
	for _, item := range due {
		s.dispatch(ctx, item)
	}
}

// dispatch fires one due item and settles its terminal status. A resolution
// failure (account, credential, template) marks the item failed; individual
// recipient send failures are logged per recipient but the item is still sent.
func (s *Scheduler) dispatch(ctx context.Context, item *models.ScheduledEmail) {
	if err := s.send(ctx, item); err != nil {
		s.logger.Error("scheduled email failed",
			zap.String("id", item.ID.String()), zap.Error(err))
		if uerr := s.store.UpdateStatus(ctx, item.ID, models.ScheduleStatusFailed); uerr != nil {
			s.logger.Error("mark failed status failed", zap.String("id", item.ID.String()), zap.Error(uerr))
		}
		return
	}

	if err := s.store.UpdateStatus(ctx, item.ID, models.ScheduleStatusSent); err != nil {
		s.logger.Error("mark sent status failed", zap.String("id", item.ID.String()), zap.Error(err))
	}

	if item.RecurrencePattern == "" {
		return
	}
	next, err := NextOccurrence(item.RecurrencePattern, item.ScheduledTime)
	if err != nil {
		s.logger.Error("compute next occurrence failed",
			zap.String("id", item.ID.String()),
			zap.String("pattern", item.RecurrencePattern), zap.Error(err))
		return
	}
	successor := &models.ScheduledEmail{
		UserID:            item.UserID,
		TemplateID:        item.TemplateID,
		RecipientList:     item.RecipientList,
		ScheduledTime:     next,
		RecurrencePattern: item.RecurrencePattern,
		Status:            models.ScheduleStatusPending,
	}
	if err := s.store.Create(ctx, successor); err != nil {
		s.logger.Error("create recurrence successor failed",
			zap.String("id", item.ID.String()), zap.Error(err))
		return
	}
	s.logger.Info("recurrence scheduled",
		zap.String("id", item.ID.String()),
		zap.String("next_id", successor.ID.String()),
		zap.Time("next_at", next))
}

func (s *Scheduler) send(ctx context.Context, item *models.ScheduledEmail) error {
	account, password, err := s.accounts.ActiveSendAccount(ctx, item.UserID)
	if err != nil {
		return err
	}
	if item.TemplateID == nil {
		return apperr.Validation("scheduled email %s has no template", item.ID)
	}
	tmpl, err := s.templates.GetByID(ctx, item.UserID, *item.TemplateID)
	if err != nil {
		return apperr.Persistence("load template", err)
	}
	if tmpl == nil {
		return apperr.NotFound("email template")
	}

	for i, recipient := range item.RecipientList {
		if i > 0 && s.sendDelay > 0 {
			time.Sleep(s.sendDelay)
		}
		renderCtx := templates.BuildContext(recipient, nil)
		msg := &models.OutgoingMessage{
			To:      []string{recipient},
			Subject: s.renderer.Render(tmpl.Subject, renderCtx),
			Body:    s.renderer.Render(tmpl.Body, renderCtx),
		}
		sendErr := s.transport.Send(ctx, account, password, msg)
		s.record(ctx, item, account, recipient, msg.Subject, sendErr)
		if sendErr != nil {
			s.logger.Warn("scheduled recipient send failed",
				zap.String("id", item.ID.String()),
				zap.String("recipient", recipient), zap.Error(sendErr))
		}
	}
	return nil
}

func (s *Scheduler) record(ctx context.Context, item *models.ScheduledEmail, account *models.EmailAccount, recipient, subject string, sendErr error) {
	now := time.Now().UTC()
	entry := &models.EmailLog{
		UserID:    item.UserID,
		AccountID: &account.ID,
		Direction: models.EmailDirectionSent,
		Recipient: recipient,
		Sender:    account.EmailAddress,
		Subject:   subject,
		Status:    models.EmailLogStatusSent,
		SentAt:    &now,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
		entry.SentAt = nil
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Error("insert email log failed",
			zap.String("id", item.ID.String()),
			zap.String("recipient", recipient), zap.Error(err))
	}
}
