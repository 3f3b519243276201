package schedule

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/middleware"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/pkg/response"
)

// Handler handles scheduled email HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a scheduled emails handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateRequest is the body for POST /scheduled-emails.
type CreateRequest struct {
	TemplateID        string    `json:"template_id" binding:"required,uuid"`
	RecipientList     []string  `json:"recipient_list" binding:"required,min=1"`
	ScheduledTime     time.Time `json:"scheduled_time" binding:"required"`
	RecurrencePattern string    `json:"recurrence_pattern"`
}

// Create handles POST /scheduled-emails.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "template_id, recipient_list and scheduled_time required")
		return
	}
	templateID, err := uuid.Parse(body.TemplateID)
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	if body.RecurrencePattern != "" && !ValidPattern(body.RecurrencePattern) {
		response.BadRequest(c, "invalid recurrence pattern")
		return
	}
	item := &models.ScheduledEmail{
		UserID:            userID,
		TemplateID:        &templateID,
		RecipientList:     body.RecipientList,
		ScheduledTime:     body.ScheduledTime.UTC(),
		RecurrencePattern: body.RecurrencePattern,
		Status:            models.ScheduleStatusPending,
	}
	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		response.Internal(c, "failed to create scheduled email")
		return
	}
	response.Created(c, item)
}

// List handles GET /scheduled-emails.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	items, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load scheduled emails")
		return
	}
	response.OK(c, items)
}

// Get handles GET /scheduled-emails/:id.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scheduled email id")
		return
	}
	item, err := h.repo.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		response.Internal(c, "failed to load scheduled email")
		return
	}
	if item == nil {
		response.NotFound(c, "scheduled email not found")
		return
	}
	response.OK(c, item)
}

// UpcomingOccurrences handles GET /recurrence/upcoming?pattern=...&count=n.
// Previews when a recurrence pattern would fire next.
func (h *Handler) UpcomingOccurrences(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		response.BadRequest(c, "pattern required")
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", "5"))
	if err != nil || count < 1 || count > 50 {
		response.BadRequest(c, "count must be between 1 and 50")
		return
	}
	occurrences, err := Upcoming(pattern, count)
	if err != nil {
		response.BadRequest(c, "invalid recurrence pattern")
		return
	}
	response.OK(c, gin.H{"pattern": pattern, "occurrences": occurrences})
}
