package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/templates"
	"github.com/mailpilot/backend/pkg/queue"
)

type fakeTemplates struct {
	tmpl *models.EmailTemplate
}

func (f *fakeTemplates) GetByID(_ context.Context, _, _ uuid.UUID) (*models.EmailTemplate, error) {
	return f.tmpl, nil
}

type fakeReplyQueue struct {
	payloads []queue.AutoReplyPayload
	err      error
}

func (f *fakeReplyQueue) EnqueueAutoReply(_ context.Context, payload queue.AutoReplyPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeMailbox struct {
	read  []uint32
	moved map[uint32]string
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{moved: make(map[uint32]string)}
}

func (f *fakeMailbox) MarkRead(_ context.Context, _ *models.EmailAccount, _ string, uid uint32) error {
	f.read = append(f.read, uid)
	return nil
}

func (f *fakeMailbox) MoveToFolder(_ context.Context, _ *models.EmailAccount, _ string, uid uint32, folder string) error {
	f.moved[uid] = folder
	return nil
}

func executorAccount() *models.EmailAccount {
	return &models.EmailAccount{ID: uuid.New(), UserID: uuid.New(), EmailAddress: "me@example.com"}
}

func inboxMsg() *models.InboxMessage {
	return &models.InboxMessage{UID: 42, Subject: "invoice overdue", Sender: "Billing <billing@vendor.com>"}
}

func TestExecuteAutoReplyDefaultSubject(t *testing.T) {
	replies := &fakeReplyQueue{}
	e := NewExecutor(&fakeTemplates{}, replies, newFakeMailbox(), templates.NewTextRenderer(), nil)
	account := executorAccount()
	set := ActionSet{RuleID: uuid.New(), RuleName: "r", Actions: []models.RuleAction{{Type: models.ActionAutoReply}}}

	e.Execute(context.Background(), account, "pw", inboxMsg(), set)

	require.Len(t, replies.payloads, 1)
	p := replies.payloads[0]
	assert.Equal(t, "billing@vendor.com", p.Recipient)
	assert.Equal(t, "Re: invoice overdue", p.Subject)
	assert.Equal(t, account.ID, p.AccountID)
	assert.Equal(t, set.RuleID, p.RuleID)
}

func TestExecuteAutoReplyWithTemplate(t *testing.T) {
	tmplID := uuid.New()
	replies := &fakeReplyQueue{}
	e := NewExecutor(&fakeTemplates{tmpl: &models.EmailTemplate{
		ID:      tmplID,
		Subject: "We received your message",
		Body:    "Hello {{.email}}, thanks for reaching out.",
	}}, replies, newFakeMailbox(), templates.NewTextRenderer(), nil)
	set := ActionSet{RuleID: uuid.New(), Actions: []models.RuleAction{{Type: models.ActionAutoReply, TemplateID: &tmplID}}}

	e.Execute(context.Background(), executorAccount(), "pw", inboxMsg(), set)

	require.Len(t, replies.payloads, 1)
	assert.Equal(t, "We received your message", replies.payloads[0].Subject)
	assert.Equal(t, "Hello billing@vendor.com, thanks for reaching out.", replies.payloads[0].Body)
}

func TestExecuteMarkReadAndMove(t *testing.T) {
	mailbox := newFakeMailbox()
	e := NewExecutor(&fakeTemplates{}, &fakeReplyQueue{}, mailbox, templates.NewTextRenderer(), nil)
	set := ActionSet{Actions: []models.RuleAction{
		{Type: models.ActionMarkAsRead},
		{Type: models.ActionMoveToFolder, Folder: "Archive"},
	}}

	e.Execute(context.Background(), executorAccount(), "pw", inboxMsg(), set)

	assert.Equal(t, []uint32{42}, mailbox.read)
	assert.Equal(t, "Archive", mailbox.moved[42])
}

func TestExecuteUnknownActionSkipped(t *testing.T) {
	mailbox := newFakeMailbox()
	replies := &fakeReplyQueue{}
	e := NewExecutor(&fakeTemplates{}, replies, mailbox, templates.NewTextRenderer(), nil)
	set := ActionSet{Actions: []models.RuleAction{
		{Type: "teleport"},
		{Type: models.ActionMarkAsRead},
	}}

	e.Execute(context.Background(), executorAccount(), "pw", inboxMsg(), set)

	// the unknown action never blocks the rest of the set
	assert.Equal(t, []uint32{42}, mailbox.read)
	assert.Empty(t, replies.payloads)
}

func TestExecuteMoveWithoutFolderSkipped(t *testing.T) {
	mailbox := newFakeMailbox()
	e := NewExecutor(&fakeTemplates{}, &fakeReplyQueue{}, mailbox, templates.NewTextRenderer(), nil)
	set := ActionSet{Actions: []models.RuleAction{{Type: models.ActionMoveToFolder}}}

	e.Execute(context.Background(), executorAccount(), "pw", inboxMsg(), set)

	assert.Empty(t, mailbox.moved)
}

func TestExecuteActionFailureIsolated(t *testing.T) {
	mailbox := newFakeMailbox()
	replies := &fakeReplyQueue{err: errors.New("redis down")}
	e := NewExecutor(&fakeTemplates{}, replies, mailbox, templates.NewTextRenderer(), nil)
	set := ActionSet{Actions: []models.RuleAction{
		{Type: models.ActionAutoReply},
		{Type: models.ActionMarkAsRead},
	}}

	e.Execute(context.Background(), executorAccount(), "pw", inboxMsg(), set)

	assert.Equal(t, []uint32{42}, mailbox.read)
}
