package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailpilot/backend/internal/automation"
	"github.com/mailpilot/backend/internal/models"
)

// AccountStore lists the accounts to sweep and supplies credentials.
type AccountStore interface {
	ListActiveWithIMAP(ctx context.Context) ([]*models.EmailAccount, error)
}

// CredentialDecrypter turns a stored credential into a usable password.
type CredentialDecrypter interface {
	Decrypt(encrypted string) (string, error)
}

// RuleStore loads the active rules to evaluate.
type RuleStore interface {
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.AutomationRule, error)
}

// Fetcher retrieves unseen messages for an account.
type Fetcher interface {
	FetchUnseen(ctx context.Context, account *models.EmailAccount, password string, limit int) ([]*models.InboxMessage, error)
}

// ActionExecutor runs the actions of a triggered rule.
type ActionExecutor interface {
	Execute(ctx context.Context, account *models.EmailAccount, password string, msg *models.InboxMessage, set automation.ActionSet)
}

// LogStore appends received-message records.
type LogStore interface {
	Insert(ctx context.Context, entry *models.EmailLog) error
}

// Watcher periodically sweeps every watched account: fetch unseen messages,
// log them, evaluate the owner's rules and execute whatever triggers.
// Failures are contained per account and per message; one broken mailbox
// never stalls the sweep.
type Watcher struct {
	accounts   AccountStore
	creds      CredentialDecrypter
	rules      RuleStore
	fetcher    Fetcher
	executor   ActionExecutor
	logs       LogStore
	logger     *zap.Logger
	interval   time.Duration
	fetchLimit int
}

// NewWatcher creates an inbox watcher.
func NewWatcher(accounts AccountStore, creds CredentialDecrypter, rules RuleStore, fetcher Fetcher, executor ActionExecutor, logs LogStore, interval time.Duration, fetchLimit int, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		accounts:   accounts,
		creds:      creds,
		rules:      rules,
		fetcher:    fetcher,
		executor:   executor,
		logs:       logs,
		logger:     logger,
		interval:   interval,
		fetchLimit: fetchLimit,
	}
}

// Run sweeps until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("inbox watcher started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep checks every watched account once.
func (w *Watcher) Sweep(ctx context.Context) {
	accounts, err := w.accounts.ListActiveWithIMAP(ctx)
	if err != nil {
		w.logger.Error("list watched accounts failed", zap.Error(err))
		return
	}
	for _, account := range accounts {
		if err := w.sweepAccount(ctx, account); err != nil {
			w.logger.Error("account sweep failed",
				zap.String("account_id", account.ID.String()),
				zap.String("address", account.EmailAddress),
				zap.Error(err))
		}
	}
}

func (w *Watcher) sweepAccount(ctx context.Context, account *models.EmailAccount) error {
	password, err := w.creds.Decrypt(account.PasswordEncrypted)
	if err != nil {
		return err
	}
	messages, err := w.fetcher.FetchUnseen(ctx, account, password, w.fetchLimit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	rules, err := w.rules.ListActiveByUser(ctx, account.UserID)
	if err != nil {
		return err
	}
	w.logger.Info("unseen messages fetched",
		zap.String("account_id", account.ID.String()),
		zap.Int("count", len(messages)),
		zap.Int("rules", len(rules)))

	for _, msg := range messages {
		w.recordReceived(ctx, account, msg)
		for _, set := range automation.Evaluate(msg, rules, time.Now().UTC()) {
			w.executor.Execute(ctx, account, password, msg, set)
		}
	}
	return nil
}

func (w *Watcher) recordReceived(ctx context.Context, account *models.EmailAccount, msg *models.InboxMessage) {
	entry := &models.EmailLog{
		UserID:    account.UserID,
		AccountID: &account.ID,
		Direction: models.EmailDirectionReceived,
		Sender:    automation.ExtractAddress(msg.Sender),
		Recipient: account.EmailAddress,
		Subject:   msg.Subject,
		Status:    models.EmailLogStatusSent,
	}
	if err := w.logs.Insert(ctx, entry); err != nil {
		w.logger.Error("insert received log failed",
			zap.String("account_id", account.ID.String()),
			zap.Uint32("uid", msg.UID), zap.Error(err))
	}
}
