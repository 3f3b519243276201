package emaillogs

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/middleware"
	"github.com/mailpilot/backend/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /email-logs?limit=n. Returns the user's delivery history,
// newest first.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		response.BadRequest(c, "limit must be between 1 and 1000")
		return
	}
	logs, err := h.repo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// Stats handles GET /email-logs/stats. Returns user-wide delivery totals.
func (h *Handler) Stats(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	totals, err := h.repo.TotalsByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load email stats")
		return
	}
	response.OK(c, totals)
}
