// Package campaigns implements batch email dispatch: a campaign fans one
// template out to many recipients sequentially, with progress persisted after
// every recipient so an interrupted run leaves an accurate sent count behind.
package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/templates"
)

// Store is the campaign persistence surface the dispatcher needs.
type Store interface {
	Create(ctx context.Context, cp *models.Campaign) error
	GetByID(ctx context.Context, userID, campaignID uuid.UUID) (*models.Campaign, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Campaign, error)
	MarkSending(ctx context.Context, campaignID uuid.UUID, totalRecipients int) error
	UpdateSentCount(ctx context.Context, campaignID uuid.UUID, sentCount int) error
	Finalize(ctx context.Context, campaignID uuid.UUID, status string) error
}

// TemplateStore resolves owned templates.
type TemplateStore interface {
	GetByID(ctx context.Context, userID, templateID uuid.UUID) (*models.EmailTemplate, error)
}

// AccountResolver yields the owner's active account with a usable password.
type AccountResolver interface {
	ActiveSendAccount(ctx context.Context, userID uuid.UUID) (*models.EmailAccount, string, error)
}

// LogStore appends delivery records and aggregates them per campaign.
type LogStore interface {
	Insert(ctx context.Context, entry *models.EmailLog) error
	CountByCampaign(ctx context.Context, userID, campaignID uuid.UUID) (map[string]int, error)
	CountByUserCampaigns(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]map[string]int, error)
}

// DispatchRequest describes one batch send.
type DispatchRequest struct {
	TemplateID uuid.UUID
	Recipients []models.Recipient
	CampaignID *uuid.UUID // existing campaign to dispatch; nil creates an ad-hoc one
}

// Dispatcher runs campaign sends to completion in the calling goroutine.
// There is no cancellation mid-campaign; once started a dispatch always
// settles the campaign in a terminal status.
type Dispatcher struct {
	store     Store
	templates TemplateStore
	accounts  AccountResolver
	transport mailer.Transport
	renderer  templates.Renderer
	logs      LogStore
	logger    *zap.Logger
	sendDelay time.Duration
}

// NewDispatcher creates a dispatcher pausing sendDelay between recipients.
func NewDispatcher(store Store, tmpl TemplateStore, accounts AccountResolver, transport mailer.Transport, renderer templates.Renderer, logs LogStore, sendDelay time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		templates: tmpl,
		accounts:  accounts,
		transport: transport,
		renderer:  renderer,
		logs:      logs,
		logger:    logger,
		sendDelay: sendDelay,
	}
}

// Dispatch sends the template to every recipient in order. Validation and
// resolution failures abort before any send or campaign row change; once the
// first recipient is attempted the campaign always ends completed or partial.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID uuid.UUID, req DispatchRequest) (*models.Campaign, error) {
	if len(req.Recipients) == 0 {
		return nil, apperr.Validation("no recipients provided")
	}

	tmpl, err := d.templates.GetByID(ctx, ownerID, req.TemplateID)
	if err != nil {
		return nil, apperr.Persistence("load template", err)
	}
	if tmpl == nil {
		return nil, apperr.NotFound("email template")
	}
	account, password, err := d.accounts.ActiveSendAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	campaign, err := d.resolveCampaign(ctx, ownerID, req, tmpl)
	if err != nil {
		return nil, err
	}

	d.logger.Info("campaign dispatch started",
		zap.String("campaign_id", campaign.ID.String()),
		zap.Int("recipients", len(req.Recipients)))

	sent := 0
	for i, recipient := range req.Recipients {
		if i > 0 && d.sendDelay > 0 {
			time.Sleep(d.sendDelay)
		}
		renderCtx := templates.BuildContext(recipient.Email, recipient.Variables)
		msg := &models.OutgoingMessage{
			To:      []string{recipient.Email},
			Subject: d.renderer.Render(tmpl.Subject, renderCtx),
			Body:    d.renderer.Render(tmpl.Body, renderCtx),
		}
		sendErr := d.transport.Send(ctx, account, password, msg)
		d.record(ctx, campaign, account, recipient.Email, msg.Subject, sendErr)
		if sendErr != nil {
			d.logger.Warn("campaign recipient send failed",
				zap.String("campaign_id", campaign.ID.String()),
				zap.String("recipient", recipient.Email), zap.Error(sendErr))
			continue
		}
		sent++
		if err := d.store.UpdateSentCount(ctx, campaign.ID, sent); err != nil {
			d.logger.Error("persist sent count failed",
				zap.String("campaign_id", campaign.ID.String()), zap.Error(err))
		}
	}

	status := models.CampaignStatusCompleted
	if sent < len(req.Recipients) {
		status = models.CampaignStatusPartial
	}
	if err := d.store.Finalize(ctx, campaign.ID, status); err != nil {
		d.logger.Error("finalize campaign failed",
			zap.String("campaign_id", campaign.ID.String()), zap.Error(err))
	}
	campaign.SentCount = sent
	campaign.Status = status

	d.logger.Info("campaign dispatch finished",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("status", status),
		zap.Int("sent", sent),
		zap.Int("total", len(req.Recipients)))
	return campaign, nil
}

func (d *Dispatcher) resolveCampaign(ctx context.Context, ownerID uuid.UUID, req DispatchRequest, tmpl *models.EmailTemplate) (*models.Campaign, error) {
	if req.CampaignID != nil {
		campaign, err := d.store.GetByID(ctx, ownerID, *req.CampaignID)
		if err != nil {
			return nil, apperr.Persistence("load campaign", err)
		}
		if campaign == nil {
			return nil, apperr.NotFound("campaign")
		}
		if err := d.store.MarkSending(ctx, campaign.ID, len(req.Recipients)); err != nil {
			return nil, apperr.Persistence("mark campaign sending", err)
		}
		campaign.Status = models.CampaignStatusSending
		campaign.TotalRecipients = len(req.Recipients)
		return campaign, nil
	}

	campaign := &models.Campaign{
		UserID:          ownerID,
		Name:            "Batch Email - " + time.Now().UTC().Format("2006-01-02 15:04"),
		TemplateID:      &tmpl.ID,
		Status:          models.CampaignStatusSending,
		TotalRecipients: len(req.Recipients),
	}
	if err := d.store.Create(ctx, campaign); err != nil {
		return nil, apperr.Persistence("create campaign", err)
	}
	return campaign, nil
}

func (d *Dispatcher) record(ctx context.Context, campaign *models.Campaign, account *models.EmailAccount, recipient, subject string, sendErr error) {
	now := time.Now().UTC()
	entry := &models.EmailLog{
		UserID:     campaign.UserID,
		AccountID:  &account.ID,
		Direction:  models.EmailDirectionSent,
		Recipient:  recipient,
		Sender:     account.EmailAddress,
		Subject:    subject,
		Status:     models.EmailLogStatusSent,
		CampaignID: &campaign.ID,
		SentAt:     &now,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
		entry.SentAt = nil
	}
	if err := d.logs.Insert(ctx, entry); err != nil {
		d.logger.Error("insert email log failed",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("recipient", recipient), zap.Error(err))
	}
}

// Stats aggregates a campaign's delivery outcomes from its log rows.
func (d *Dispatcher) Stats(ctx context.Context, ownerID, campaignID uuid.UUID) (*models.CampaignStats, error) {
	campaign, err := d.store.GetByID(ctx, ownerID, campaignID)
	if err != nil {
		return nil, apperr.Persistence("load campaign", err)
	}
	if campaign == nil {
		return nil, apperr.NotFound("campaign")
	}
	counts, err := d.logs.CountByCampaign(ctx, ownerID, campaignID)
	if err != nil {
		return nil, apperr.Persistence("aggregate campaign logs", err)
	}
	return buildStats(campaign, counts), nil
}

// StatsList aggregates delivery outcomes for every campaign the user owns,
// newest first. One grouped log query serves the whole list.
func (d *Dispatcher) StatsList(ctx context.Context, ownerID uuid.UUID) ([]*models.CampaignStats, error) {
	list, err := d.store.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, apperr.Persistence("list campaigns", err)
	}
	counts, err := d.logs.CountByUserCampaigns(ctx, ownerID)
	if err != nil {
		return nil, apperr.Persistence("aggregate campaign logs", err)
	}
	stats := make([]*models.CampaignStats, 0, len(list))
	for _, campaign := range list {
		stats = append(stats, buildStats(campaign, counts[campaign.ID]))
	}
	return stats, nil
}

func buildStats(campaign *models.Campaign, counts map[string]int) *models.CampaignStats {
	sent := counts[models.EmailLogStatusSent]
	failed := counts[models.EmailLogStatusFailed]
	pending := campaign.TotalRecipients - sent - failed
	if pending < 0 {
		pending = 0
	}
	rate := 0.0
	if sent+failed > 0 {
		rate = float64(sent) / float64(sent+failed) * 100
	}

	stats := &models.CampaignStats{
		CampaignID:      campaign.ID,
		Status:          campaign.Status,
		TotalRecipients: campaign.TotalRecipients,
		SentCount:       sent,
		FailedCount:     failed,
		PendingCount:    pending,
		SuccessRate:     rate,
		CreatedAt:       campaign.CreatedAt,
	}
	if campaign.Status == models.CampaignStatusCompleted || campaign.Status == models.CampaignStatusPartial {
		completedAt := campaign.UpdatedAt
		stats.CompletedAt = &completedAt
	}
	return stats
}
