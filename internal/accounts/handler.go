package accounts

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/middleware"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/pkg/response"
)

// Prober checks connectivity to one of an account's mail servers.
type Prober interface {
	TestConnection(ctx context.Context, account *models.EmailAccount, password string) mailer.ConnectionTest
}

// Handler handles email account HTTP endpoints.
type Handler struct {
	repo     *Repository
	resolver *Resolver
	smtp     Prober
	imap     Prober
}

// NewHandler creates an accounts handler.
func NewHandler(repo *Repository, resolver *Resolver, smtp, imap Prober) *Handler {
	return &Handler{repo: repo, resolver: resolver, smtp: smtp, imap: imap}
}

// TestConnection handles POST /email-accounts/:id/test-connection. Both
// probes always run; an unconfigured server reports as a failed probe rather
// than an error so the response shape stays uniform.
func (h *Handler) TestConnection(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}
	account, err := h.repo.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		response.Internal(c, "failed to load account")
		return
	}
	if account == nil {
		response.NotFound(c, "account not found")
		return
	}
	password, err := h.resolver.Decrypt(account.PasswordEncrypted)
	if err != nil {
		response.Internal(c, "failed to decrypt account credential")
		return
	}
	response.OK(c, gin.H{
		"smtp": h.smtp.TestConnection(c.Request.Context(), account, password),
		"imap": h.imap.TestConnection(c.Request.Context(), account, password),
	})
}
