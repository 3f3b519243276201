package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailpilot/backend/internal/models"
)

// Repository handles scheduled_emails persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a scheduled emails repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const scheduledColumns = `id, user_id, template_id, recipient_list,
	scheduled_time, COALESCE(recurrence_pattern, ''), status, created_at`

func scanScheduled(row pgx.Row) (*models.ScheduledEmail, error) {
	var s models.ScheduledEmail
	err := row.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.RecipientList,
		&s.ScheduledTime, &s.RecurrencePattern, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new pending scheduled email.
func (r *Repository) Create(ctx context.Context, item *models.ScheduledEmail) error {
	const q = `INSERT INTO scheduled_emails (user_id, template_id, recipient_list, scheduled_time, recurrence_pattern, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at`
	if item.Status == "" {
		item.Status = models.ScheduleStatusPending
	}
	return r.pool.QueryRow(ctx, q,
		item.UserID, item.TemplateID, item.RecipientList,
		item.ScheduledTime, item.RecurrencePattern, item.Status,
	).Scan(&item.ID, &item.CreatedAt)
}

// ListDue returns pending items whose scheduled time is at or before now,
// oldest first.
func (r *Repository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledEmail, error) {
	const q = `SELECT ` + scheduledColumns + ` FROM scheduled_emails
		WHERE status = 'pending' AND scheduled_time <= $1
		ORDER BY scheduled_time`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ScheduledEmail
	for rows.Next() {
		s, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdateStatus moves an item to a terminal status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE scheduled_emails SET status = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, status)
	return err
}

// ListByUser returns the user's scheduled emails, soonest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ScheduledEmail, error) {
	const q = `SELECT ` + scheduledColumns + ` FROM scheduled_emails
		WHERE user_id = $1 ORDER BY scheduled_time`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ScheduledEmail
	for rows.Next() {
		s, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetByID returns a scheduled email owned by the user, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.ScheduledEmail, error) {
	const q = `SELECT ` + scheduledColumns + ` FROM scheduled_emails WHERE id = $1 AND user_id = $2`
	s, err := scanScheduled(r.pool.QueryRow(ctx, q, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}
