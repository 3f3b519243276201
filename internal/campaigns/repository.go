package campaigns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailpilot/backend/internal/models"
)

// Repository handles campaigns persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a campaigns repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const campaignColumns = `id, user_id, name, template_id, contact_list_id,
	status, total_recipients, sent_count, created_at, updated_at`

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var cp models.Campaign
	err := row.Scan(&cp.ID, &cp.UserID, &cp.Name, &cp.TemplateID, &cp.ContactListID,
		&cp.Status, &cp.TotalRecipients, &cp.SentCount, &cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Create inserts a campaign.
func (r *Repository) Create(ctx context.Context, cp *models.Campaign) error {
	const q = `INSERT INTO campaigns (user_id, name, template_id, contact_list_id, status, total_recipients, sent_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	if cp.Status == "" {
		cp.Status = models.CampaignStatusDraft
	}
	return r.pool.QueryRow(ctx, q,
		cp.UserID, cp.Name, cp.TemplateID, cp.ContactListID,
		cp.Status, cp.TotalRecipients, cp.SentCount,
	).Scan(&cp.ID, &cp.CreatedAt, &cp.UpdatedAt)
}

// GetByID returns a campaign owned by the user, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, userID, campaignID uuid.UUID) (*models.Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND user_id = $2`
	cp, err := scanCampaign(r.pool.QueryRow(ctx, q, campaignID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cp, err
}

// ListByUser returns the user's campaigns, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Campaign
	for rows.Next() {
		cp, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, cp)
	}
	return list, rows.Err()
}

// UpdateDraft edits a draft campaign's name, template and contact list.
// Returns false when the campaign is absent or no longer a draft.
func (r *Repository) UpdateDraft(ctx context.Context, userID, campaignID uuid.UUID, name string, templateID, contactListID *uuid.UUID) (bool, error) {
	const q = `UPDATE campaigns
		SET name = $3, template_id = $4, contact_list_id = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'draft'`
	tag, err := r.pool.Exec(ctx, q, campaignID, userID, name, templateID, contactListID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteDraft removes a draft campaign. Returns false when the campaign is
// absent or has started sending.
func (r *Repository) DeleteDraft(ctx context.Context, userID, campaignID uuid.UUID) (bool, error) {
	const q = `DELETE FROM campaigns WHERE id = $1 AND user_id = $2 AND status = 'draft'`
	tag, err := r.pool.Exec(ctx, q, campaignID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSending transitions a campaign to sending and pins its recipient total.
func (r *Repository) MarkSending(ctx context.Context, campaignID uuid.UUID, totalRecipients int) error {
	const q = `UPDATE campaigns
		SET status = 'sending', total_recipients = $2, updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, campaignID, totalRecipients)
	return err
}

// UpdateSentCount persists the running sent counter mid-dispatch.
func (r *Repository) UpdateSentCount(ctx context.Context, campaignID uuid.UUID, sentCount int) error {
	const q = `UPDATE campaigns SET sent_count = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, campaignID, sentCount)
	return err
}

// Finalize settles a finished campaign's terminal status.
func (r *Repository) Finalize(ctx context.Context, campaignID uuid.UUID, status string) error {
	const q = `UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, campaignID, status)
	return err
}
