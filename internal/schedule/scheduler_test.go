package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/templates"
)

type fakeStore struct {
	mu        sync.Mutex
	due       []*models.ScheduledEmail
	statuses  map[uuid.UUID]string
	created   []*models.ScheduledEmail
	listCalls int
}

func newFakeStore(due ...*models.ScheduledEmail) *fakeStore {
	return &fakeStore{due: due, statuses: make(map[uuid.UUID]string)}
}

func (f *fakeStore) ListDue(_ context.Context, _ time.Time) ([]*models.ScheduledEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	due := f.due
	f.due = nil
	return due, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeStore) Create(_ context.Context, item *models.ScheduledEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = uuid.New()
	f.created = append(f.created, item)
	return nil
}

type fakeTemplates struct {
	tmpl *models.EmailTemplate
}

func (f *fakeTemplates) GetByID(_ context.Context, _, _ uuid.UUID) (*models.EmailTemplate, error) {
	return f.tmpl, nil
}

type fakeResolver struct {
	account *models.EmailAccount
	err     error
}

func (f *fakeResolver) ActiveSendAccount(_ context.Context, _ uuid.UUID) (*models.EmailAccount, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.account, "secret", nil
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []*models.OutgoingMessage
	failFor map[string]error
}

func (f *fakeTransport) Send(_ context.Context, _ *models.EmailAccount, _ string, msg *models.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[msg.To[0]]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []*models.EmailLog
}

func (f *fakeLogs) Insert(_ context.Context, entry *models.EmailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func testTemplate(userID uuid.UUID) *models.EmailTemplate {
	return &models.EmailTemplate{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    "welcome",
		Subject: "Hello {{.email}}",
		Body:    "Sent on {{.date}}",
	}
}

func testAccount(userID uuid.UUID) *models.EmailAccount {
	return &models.EmailAccount{
		ID:           uuid.New(),
		UserID:       userID,
		AccountName:  "Support",
		EmailAddress: "support@example.com",
		SMTPServer:   "smtp.example.com",
		Username:     "support@example.com",
		IsActive:     true,
	}
}

func newTestScheduler(store *fakeStore, tmpl *models.EmailTemplate, resolver *fakeResolver, transport *fakeTransport, logs *fakeLogs) *Scheduler {
	return NewScheduler(store, &fakeTemplates{tmpl: tmpl}, resolver, transport,
		templates.NewTextRenderer(), logs, time.Minute, 0, nil)
}

func dueItem(userID uuid.UUID, templateID *uuid.UUID, recipients []string, pattern string) *models.ScheduledEmail {
	return &models.ScheduledEmail{
		ID:                uuid.New(),
		UserID:            userID,
		TemplateID:        templateID,
		RecipientList:     recipients,
		ScheduledTime:     time.Now().UTC().Add(-time.Minute),
		RecurrencePattern: pattern,
		Status:            models.ScheduleStatusPending,
	}
}

func TestDispatchMarksSentAndLogsEveryRecipient(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	item := dueItem(userID, &tmpl.ID, []string{"a@example.com", "b@example.com"}, "")

	store := newFakeStore(item)
	transport := &fakeTransport{}
	logs := &fakeLogs{}
	s := newTestScheduler(store, tmpl, &fakeResolver{account: testAccount(userID)}, transport, logs)

	s.processDue(context.Background(), time.Now().UTC())

	assert.Equal(t, models.ScheduleStatusSent, store.statuses[item.ID])
	require.Len(t, transport.sent, 2)
	assert.Equal(t, "Hello a@example.com", transport.sent[0].Subject)
	require.Len(t, logs.entries, 2)
	assert.Equal(t, "a@example.com", logs.entries[0].Recipient)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[0].Status)
	assert.Equal(t, models.EmailDirectionSent, logs.entries[0].Direction)
	assert.Empty(t, store.created)
}

func TestDispatchWeeklyRecurrenceCreatesSuccessor(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	item := dueItem(userID, &tmpl.ID, []string{"a@example.com"}, PatternWeekly)

	store := newFakeStore(item)
	s := newTestScheduler(store, tmpl, &fakeResolver{account: testAccount(userID)}, &fakeTransport{}, &fakeLogs{})

	s.processDue(context.Background(), time.Now().UTC())

	assert.Equal(t, models.ScheduleStatusSent, store.statuses[item.ID])
	require.Len(t, store.created, 1)
	next := store.created[0]
	assert.Equal(t, models.ScheduleStatusPending, next.Status)
	assert.Equal(t, item.ScheduledTime.Add(7*24*time.Hour), next.ScheduledTime)
	assert.Equal(t, item.TemplateID, next.TemplateID)
	assert.Equal(t, item.RecipientList, next.RecipientList)
	assert.Equal(t, PatternWeekly, next.RecurrencePattern)
}

func TestDispatchMissingTemplateMarksFailed(t *testing.T) {
	userID := uuid.New()
	item := dueItem(userID, nil, []string{"a@example.com"}, PatternDaily)

	store := newFakeStore(item)
	transport := &fakeTransport{}
	logs := &fakeLogs{}
	s := newTestScheduler(store, nil, &fakeResolver{account: testAccount(userID)}, transport, logs)

	s.processDue(context.Background(), time.Now().UTC())

	assert.Equal(t, models.ScheduleStatusFailed, store.statuses[item.ID])
	assert.Empty(t, transport.sent)
	assert.Empty(t, logs.entries)
	// failed items never recur
	assert.Empty(t, store.created)
}

func TestDispatchAccountResolutionFailureMarksFailed(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	item := dueItem(userID, &tmpl.ID, []string{"a@example.com"}, "")

	store := newFakeStore(item)
	s := newTestScheduler(store, tmpl, &fakeResolver{err: errors.New("no active account")}, &fakeTransport{}, &fakeLogs{})

	s.processDue(context.Background(), time.Now().UTC())

	assert.Equal(t, models.ScheduleStatusFailed, store.statuses[item.ID])
}

func TestDispatchRecipientFailureStillMarksSent(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	item := dueItem(userID, &tmpl.ID, []string{"ok@example.com", "bad@example.com"}, "")

	store := newFakeStore(item)
	transport := &fakeTransport{failFor: map[string]error{"bad@example.com": errors.New("mailbox unavailable")}}
	logs := &fakeLogs{}
	s := newTestScheduler(store, tmpl, &fakeResolver{account: testAccount(userID)}, transport, logs)

	s.processDue(context.Background(), time.Now().UTC())

	assert.Equal(t, models.ScheduleStatusSent, store.statuses[item.ID])
	require.Len(t, logs.entries, 2)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[0].Status)
	assert.Equal(t, models.EmailLogStatusFailed, logs.entries[1].Status)
	assert.Equal(t, "mailbox unavailable", logs.entries[1].ErrorMessage)
	assert.Nil(t, logs.entries[1].SentAt)
}

func TestStartIsIdempotent(t *testing.T) {
	store := newFakeStore()
	s := newTestScheduler(store, nil, &fakeResolver{}, &fakeTransport{}, &fakeLogs{})
	s.interval = 10 * time.Millisecond

	s.Start(context.Background())
	s.Start(context.Background())
	time.Sleep(55 * time.Millisecond)
	s.Stop()

	store.mu.Lock()
	calls := store.listCalls
	store.mu.Unlock()
	// a duplicate poller would roughly double the poll count
	assert.GreaterOrEqual(t, calls, 3)
	assert.LessOrEqual(t, calls, 7)
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestScheduler(newFakeStore(), nil, &fakeResolver{}, &fakeTransport{}, &fakeLogs{})
	s.Stop()
}
