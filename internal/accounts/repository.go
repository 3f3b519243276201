package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailpilot/backend/internal/models"
)

// Repository handles email_accounts persistence. Account CRUD belongs to the
// management API; the engines only resolve accounts for sending and watching.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email accounts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, user_id, account_name, email_address,
	COALESCE(imap_server, ''), COALESCE(imap_port, 0),
	COALESCE(smtp_server, ''), COALESCE(smtp_port, 0),
	username, password_encrypted, is_active, created_at`

func scanAccount(row pgx.Row) (*models.EmailAccount, error) {
	var a models.EmailAccount
	err := row.Scan(&a.ID, &a.UserID, &a.AccountName, &a.EmailAddress,
		&a.IMAPServer, &a.IMAPPort, &a.SMTPServer, &a.SMTPPort,
		&a.Username, &a.PasswordEncrypted, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveByUser returns the user's active send account, or nil if none.
func (r *Repository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.EmailAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM email_accounts
		WHERE user_id = $1 AND is_active ORDER BY created_at LIMIT 1`
	a, err := scanAccount(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// GetByID returns an account owned by the user, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, userID, accountID uuid.UUID) (*models.EmailAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM email_accounts WHERE id = $1 AND user_id = $2`
	a, err := scanAccount(r.pool.QueryRow(ctx, q, accountID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ListActiveWithIMAP returns every active account with an IMAP server
// configured, across all users. Used by the inbox watcher sweep.
func (r *Repository) ListActiveWithIMAP(ctx context.Context) ([]*models.EmailAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM email_accounts
		WHERE is_active AND imap_server IS NOT NULL AND imap_server <> ''
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
