package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/middleware"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/pkg/response"
)

// ScheduleStore defers a dispatch by persisting it as a pending scheduled email.
type ScheduleStore interface {
	Create(ctx context.Context, item *models.ScheduledEmail) error
}

// Handler handles campaign HTTP endpoints.
type Handler struct {
	repo       *Repository
	dispatcher *Dispatcher
	schedules  ScheduleStore
}

// NewHandler creates a campaigns handler.
func NewHandler(repo *Repository, dispatcher *Dispatcher, schedules ScheduleStore) *Handler {
	return &Handler{repo: repo, dispatcher: dispatcher, schedules: schedules}
}

// CreateRequest is the body for POST /campaigns.
type CreateRequest struct {
	Name          string  `json:"name" binding:"required"`
	TemplateID    *string `json:"template_id"`
	ContactListID *string `json:"contact_list_id"`
}

// Create handles POST /campaigns. New campaigns start as drafts.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	templateID, ok := parseOptionalUUID(body.TemplateID)
	if !ok {
		response.BadRequest(c, "invalid template id")
		return
	}
	contactListID, ok := parseOptionalUUID(body.ContactListID)
	if !ok {
		response.BadRequest(c, "invalid contact list id")
		return
	}
	campaign := &models.Campaign{
		UserID:        userID,
		Name:          body.Name,
		TemplateID:    templateID,
		ContactListID: contactListID,
		Status:        models.CampaignStatusDraft,
	}
	if err := h.repo.Create(c.Request.Context(), campaign); err != nil {
		response.Internal(c, "failed to create campaign")
		return
	}
	response.Created(c, campaign)
}

// List handles GET /campaigns.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load campaigns")
		return
	}
	response.OK(c, list)
}

// Get handles GET /campaigns/:id.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid campaign id")
		return
	}
	campaign, err := h.repo.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		response.Internal(c, "failed to load campaign")
		return
	}
	if campaign == nil {
		response.NotFound(c, "campaign not found")
		return
	}
	response.OK(c, campaign)
}

// UpdateRequest is the body for PUT /campaigns/:id.
type UpdateRequest struct {
	Name          string  `json:"name" binding:"required"`
	TemplateID    *string `json:"template_id"`
	ContactListID *string `json:"contact_list_id"`
}

// Update handles PUT /campaigns/:id. Only drafts are editable.
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid campaign id")
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	templateID, ok := parseOptionalUUID(body.TemplateID)
	if !ok {
		response.BadRequest(c, "invalid template id")
		return
	}
	contactListID, ok := parseOptionalUUID(body.ContactListID)
	if !ok {
		response.BadRequest(c, "invalid contact list id")
		return
	}
	updated, err := h.repo.UpdateDraft(c.Request.Context(), userID, id, body.Name, templateID, contactListID)
	if err != nil {
		response.Internal(c, "failed to update campaign")
		return
	}
	if !updated {
		response.Conflict(c, "only draft campaigns can be edited")
		return
	}
	response.OK(c, gin.H{"message": "campaign updated"})
}

// Delete handles DELETE /campaigns/:id. Only drafts are deletable.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid campaign id")
		return
	}
	deleted, err := h.repo.DeleteDraft(c.Request.Context(), userID, id)
	if err != nil {
		response.Internal(c, "failed to delete campaign")
		return
	}
	if !deleted {
		response.Conflict(c, "only draft campaigns can be deleted")
		return
	}
	response.NoContent(c)
}

// DispatchHTTPRequest is the body for POST /campaigns/dispatch.
type DispatchHTTPRequest struct {
	TemplateID   string             `json:"template_id" binding:"required,uuid"`
	Recipients   []models.Recipient `json:"recipients" binding:"required"`
	CampaignID   *string            `json:"campaign_id"`
	ScheduleTime *time.Time         `json:"schedule_time"`
}

// Dispatch handles POST /campaigns/dispatch. With schedule_time set the batch
// is stored as a pending scheduled email instead of being sent now; otherwise
// the send runs synchronously and the response carries the settled campaign.
func (h *Handler) Dispatch(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body DispatchHTTPRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "template_id and recipients required")
		return
	}
	templateID, err := uuid.Parse(body.TemplateID)
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	campaignID, ok := parseOptionalUUID(body.CampaignID)
	if !ok {
		response.BadRequest(c, "invalid campaign id")
		return
	}

	if body.ScheduleTime != nil {
		if len(body.Recipients) == 0 {
			response.BadRequest(c, "no recipients provided")
			return
		}
		emails := make([]string, len(body.Recipients))
		for i, r := range body.Recipients {
			emails[i] = r.Email
		}
		item := &models.ScheduledEmail{
			UserID:        userID,
			TemplateID:    &templateID,
			RecipientList: emails,
			ScheduledTime: body.ScheduleTime.UTC(),
			Status:        models.ScheduleStatusPending,
		}
		if err := h.schedules.Create(c.Request.Context(), item); err != nil {
			response.Internal(c, "failed to schedule campaign")
			return
		}
		response.Created(c, item)
		return
	}

	campaign, err := h.dispatcher.Dispatch(c.Request.Context(), userID, DispatchRequest{
		TemplateID: templateID,
		Recipients: body.Recipients,
		CampaignID: campaignID,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	response.OK(c, campaign)
}

// StatsList handles GET /campaigns/stats.
func (h *Handler) StatsList(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	stats, err := h.dispatcher.StatsList(c.Request.Context(), userID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	response.OK(c, stats)
}

// Stats handles GET /campaigns/:id/stats.
func (h *Handler) Stats(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid campaign id")
		return
	}
	stats, err := h.dispatcher.Stats(c.Request.Context(), userID, id)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	response.OK(c, stats)
}

func writeEngineError(c *gin.Context, err error) {
	var vErr *apperr.ValidationError
	var nfErr *apperr.NotFoundError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(c, vErr.Error())
	case errors.As(err, &nfErr):
		response.NotFound(c, nfErr.Error())
	default:
		response.Internal(c, "internal error")
	}
}

func parseOptionalUUID(s *string) (*uuid.UUID, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &id, true
}
