// Package emaillogs persists the append-only delivery history. Rows are
// inserted by the engines and aggregated for statistics; nothing updates them.
package emaillogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailpilot/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one delivery record.
func (r *Repository) Insert(ctx context.Context, entry *models.EmailLog) error {
	const q = `INSERT INTO email_logs (user_id, account_id, direction, recipient, sender, subject, status, error_message, campaign_id, sent_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		entry.UserID, entry.AccountID, entry.Direction,
		entry.Recipient, entry.Sender, entry.Subject,
		entry.Status, entry.ErrorMessage, entry.CampaignID, entry.SentAt,
	).Scan(&entry.ID, &entry.CreatedAt)
}

const logColumns = `id, user_id, account_id, direction,
	COALESCE(recipient, ''), COALESCE(sender, ''), COALESCE(subject, ''),
	status, COALESCE(error_message, ''), campaign_id, sent_at, created_at`

// ListByUser returns the user's log rows, newest first, capped at limit.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.EmailLog, error) {
	const q = `SELECT ` + logColumns + ` FROM email_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.UserID, &el.AccountID, &el.Direction,
			&el.Recipient, &el.Sender, &el.Subject,
			&el.Status, &el.ErrorMessage, &el.CampaignID, &el.SentAt, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}

// CountByCampaign aggregates a campaign's log rows by status.
func (r *Repository) CountByCampaign(ctx context.Context, userID, campaignID uuid.UUID) (map[string]int, error) {
	const q = `SELECT status, COUNT(*) FROM email_logs
		WHERE campaign_id = $1 AND user_id = $2 GROUP BY status`
	rows, err := r.pool.Query(ctx, q, campaignID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountByUserCampaigns aggregates every campaign-linked log row the user owns,
// keyed by campaign and then by status.
func (r *Repository) CountByUserCampaigns(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]map[string]int, error) {
	const q = `SELECT campaign_id, status, COUNT(*) FROM email_logs
		WHERE user_id = $1 AND campaign_id IS NOT NULL GROUP BY campaign_id, status`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]map[string]int)
	for rows.Next() {
		var campaignID uuid.UUID
		var status string
		var n int
		if err := rows.Scan(&campaignID, &status, &n); err != nil {
			return nil, err
		}
		if counts[campaignID] == nil {
			counts[campaignID] = make(map[string]int)
		}
		counts[campaignID][status] = n
	}
	return counts, rows.Err()
}

// Totals is the user-wide delivery summary.
type Totals struct {
	TotalSent     int `json:"total_sent"`
	TotalFailed   int `json:"total_failed"`
	TotalReceived int `json:"total_received"`
}

// TotalsByUser aggregates the user's full history.
func (r *Repository) TotalsByUser(ctx context.Context, userID uuid.UUID) (*Totals, error) {
	const q = `SELECT
		COUNT(*) FILTER (WHERE direction = 'sent' AND status = 'sent'),
		COUNT(*) FILTER (WHERE direction = 'sent' AND status = 'failed'),
		COUNT(*) FILTER (WHERE direction = 'received')
		FROM email_logs WHERE user_id = $1`
	var t Totals
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&t.TotalSent, &t.TotalFailed, &t.TotalReceived); err != nil {
		return nil, err
	}
	return &t, nil
}
