package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/pkg/crypto"
)

// Store is the account lookup surface the resolver needs.
type Store interface {
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.EmailAccount, error)
}

// Resolver pairs account lookup with credential decryption so engines get a
// ready-to-use account and plaintext password in one call.
type Resolver struct {
	store  Store
	cipher *crypto.Cipher
}

// NewResolver creates a resolver.
func NewResolver(store Store, cipher *crypto.Cipher) *Resolver {
	return &Resolver{store: store, cipher: cipher}
}

// ActiveSendAccount resolves the user's active account and decrypts its
// password. Fails with NotFoundError when the user has no active account and
// ConfigError when the stored credential cannot be decrypted.
func (r *Resolver) ActiveSendAccount(ctx context.Context, userID uuid.UUID) (*models.EmailAccount, string, error) {
	account, err := r.store.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, "", apperr.Persistence("load account", err)
	}
	if account == nil {
		return nil, "", apperr.NotFound("active email account")
	}
	password, err := r.cipher.Decrypt(account.PasswordEncrypted)
	if err != nil {
		return nil, "", apperr.Config("decrypt account credential", err)
	}
	return account, password, nil
}

// Decrypt exposes credential decryption for callers that already hold an
// account row (the inbox watcher).
func (r *Resolver) Decrypt(encrypted string) (string, error) {
	password, err := r.cipher.Decrypt(encrypted)
	if err != nil {
		return "", apperr.Config("decrypt account credential", err)
	}
	return password, nil
}
