package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailpilot/backend/internal/models"
)

// Repository handles automation_rules persistence. Keywords, conditions and
// actions live in JSONB columns and are decoded into typed structs on read,
// so malformed rows surface here instead of inside the engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an automation rules repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `id, user_id, name, keywords, conditions, actions, is_active, created_at`

func scanRule(row pgx.Row) (*models.AutomationRule, error) {
	var r models.AutomationRule
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Keywords, &r.Conditions, &r.Actions, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// encodeRule marshals the JSONB columns. Parameters are passed as JSON text
// and cast in SQL so pgx does not guess an array type for the keyword slice.
func encodeRule(rule *models.AutomationRule) (keywords, conditions, actions string, err error) {
	kw, err := json.Marshal(rule.Keywords)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal keywords: %w", err)
	}
	cond, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal conditions: %w", err)
	}
	act, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(kw), string(cond), string(act), nil
}

// Create inserts a rule.
func (r *Repository) Create(ctx context.Context, rule *models.AutomationRule) error {
	const q = `INSERT INTO automation_rules (user_id, name, keywords, conditions, actions, is_active)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5::jsonb, $6)
		RETURNING id, created_at`
	keywords, conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, q,
		rule.UserID, rule.Name, keywords, conditions, actions, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt)
}

// GetByID returns a rule owned by the user, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, userID, ruleID uuid.UUID) (*models.AutomationRule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1 AND user_id = $2`
	rule, err := scanRule(r.pool.QueryRow(ctx, q, ruleID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rule, err
}

// ListByUser returns all of the user's rules, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AutomationRule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE user_id = $1 ORDER BY created_at`
	return r.queryRules(ctx, q, userID)
}

// ListActiveByUser returns the user's active rules, oldest first. This is
// what the inbox watcher evaluates against.
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.AutomationRule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE user_id = $1 AND is_active ORDER BY created_at`
	return r.queryRules(ctx, q, userID)
}

func (r *Repository) queryRules(ctx context.Context, q string, userID uuid.UUID) ([]*models.AutomationRule, error) {
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rule)
	}
	return list, rows.Err()
}

// Update replaces a rule's definition. Returns false when the rule is absent.
func (r *Repository) Update(ctx context.Context, rule *models.AutomationRule) (bool, error) {
	const q = `UPDATE automation_rules
		SET name = $3, keywords = $4::jsonb, conditions = $5::jsonb, actions = $6::jsonb, is_active = $7
		WHERE id = $1 AND user_id = $2`
	keywords, conditions, actions, err := encodeRule(rule)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, q,
		rule.ID, rule.UserID, rule.Name, keywords, conditions, actions, rule.IsActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetActive toggles a rule. Returns false when the rule is absent.
func (r *Repository) SetActive(ctx context.Context, userID, ruleID uuid.UUID, active bool) (bool, error) {
	const q = `UPDATE automation_rules SET is_active = $3 WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, ruleID, userID, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a rule. Returns false when the rule is absent.
func (r *Repository) Delete(ctx context.Context, userID, ruleID uuid.UUID) (bool, error) {
	const q = `DELETE FROM automation_rules WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, ruleID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
