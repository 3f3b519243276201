package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailpilot/backend/internal/models"
)

// Repository handles email_templates persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a templates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a template owned by the user, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, userID, templateID uuid.UUID) (*models.EmailTemplate, error) {
	const q = `SELECT id, user_id, name, COALESCE(subject, ''), COALESCE(body, ''), created_at, updated_at
		FROM email_templates WHERE id = $1 AND user_id = $2`
	var t models.EmailTemplate
	err := r.pool.QueryRow(ctx, q, templateID, userID).
		Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
