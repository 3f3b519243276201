package automation

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/middleware"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/pkg/response"
)

// Handler handles automation rule HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an automation rules handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// RuleRequest is the body for rule create and update.
type RuleRequest struct {
	Name       string                `json:"name" binding:"required"`
	Keywords   []string              `json:"keywords" binding:"required,min=1"`
	Conditions models.RuleConditions `json:"conditions"`
	Actions    []models.RuleAction   `json:"actions" binding:"required,min=1"`
	IsActive   *bool                 `json:"is_active"`
}

// Create handles POST /automation-rules.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body RuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name, keywords and actions required")
		return
	}
	for _, a := range body.Actions {
		if a.Type == "" {
			response.BadRequest(c, "action type required")
			return
		}
	}
	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	rule := &models.AutomationRule{
		UserID:     userID,
		Name:       body.Name,
		Keywords:   body.Keywords,
		Conditions: body.Conditions,
		Actions:    body.Actions,
		IsActive:   active,
	}
	if err := h.repo.Create(c.Request.Context(), rule); err != nil {
		response.Internal(c, "failed to create rule")
		return
	}
	response.Created(c, rule)
}

// List handles GET /automation-rules.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	rules, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load rules")
		return
	}
	response.OK(c, rules)
}

// Update handles PUT /automation-rules/:id.
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid rule id")
		return
	}
	var body RuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name, keywords and actions required")
		return
	}
	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	rule := &models.AutomationRule{
		ID:         id,
		UserID:     userID,
		Name:       body.Name,
		Keywords:   body.Keywords,
		Conditions: body.Conditions,
		Actions:    body.Actions,
		IsActive:   active,
	}
	updated, err := h.repo.Update(c.Request.Context(), rule)
	if err != nil {
		response.Internal(c, "failed to update rule")
		return
	}
	if !updated {
		response.NotFound(c, "rule not found")
		return
	}
	response.OK(c, rule)
}

// ToggleRequest is the body for PATCH /automation-rules/:id/toggle.
type ToggleRequest struct {
	IsActive bool `json:"is_active"`
}

// Toggle handles PATCH /automation-rules/:id/toggle.
func (h *Handler) Toggle(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid rule id")
		return
	}
	var body ToggleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "is_active required")
		return
	}
	updated, err := h.repo.SetActive(c.Request.Context(), userID, id, body.IsActive)
	if err != nil {
		response.Internal(c, "failed to toggle rule")
		return
	}
	if !updated {
		response.NotFound(c, "rule not found")
		return
	}
	response.OK(c, gin.H{"id": id, "is_active": body.IsActive})
}

// Delete handles DELETE /automation-rules/:id.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid rule id")
		return
	}
	deleted, err := h.repo.Delete(c.Request.Context(), userID, id)
	if err != nil {
		response.Internal(c, "failed to delete rule")
		return
	}
	if !deleted {
		response.NotFound(c, "rule not found")
		return
	}
	response.NoContent(c)
}

// PreviewRequest is the body for POST /automation-rules/preview: a sample
// message matched against the user's active rules without executing anything.
type PreviewRequest struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

// PreviewResult is one triggered rule in a preview response.
type PreviewResult struct {
	RuleID   uuid.UUID           `json:"rule_id"`
	RuleName string              `json:"rule_name"`
	Actions  []models.RuleAction `json:"actions"`
}

// Preview handles POST /automation-rules/preview.
func (h *Handler) Preview(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body PreviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid message")
		return
	}
	rules, err := h.repo.ListActiveByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load rules")
		return
	}
	msg := &models.InboxMessage{Subject: body.Subject, Sender: body.Sender, Body: body.Body}
	sets := Evaluate(msg, rules, time.Now().UTC())
	results := make([]PreviewResult, 0, len(sets))
	for _, set := range sets {
		results = append(results, PreviewResult{RuleID: set.RuleID, RuleName: set.RuleName, Actions: set.Actions})
	}
	response.OK(c, gin.H{"triggered": results})
}
