package campaigns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/backend/internal/apperr"
	"github.com/mailpilot/backend/internal/models"
	"github.com/mailpilot/backend/internal/templates"
)

type fakeStore struct {
	mu         sync.Mutex
	campaigns  map[uuid.UUID]*models.Campaign
	sentCounts []int
	finalized  map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns: make(map[uuid.UUID]*models.Campaign),
		finalized: make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) Create(_ context.Context, cp *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	f.campaigns[cp.ID] = cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, userID, campaignID uuid.UUID) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.campaigns[campaignID]
	if !ok || cp.UserID != userID {
		return nil, nil
	}
	clone := *cp
	return &clone, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*models.Campaign
	for _, cp := range f.campaigns {
		if cp.UserID == userID {
			clone := *cp
			list = append(list, &clone)
		}
	}
	return list, nil
}

func (f *fakeStore) MarkSending(_ context.Context, campaignID uuid.UUID, totalRecipients int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.campaigns[campaignID]
	cp.Status = models.CampaignStatusSending
	cp.TotalRecipients = totalRecipients
	return nil
}

func (f *fakeStore) UpdateSentCount(_ context.Context, campaignID uuid.UUID, sentCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[campaignID].SentCount = sentCount
	f.sentCounts = append(f.sentCounts, sentCount)
	return nil
}

func (f *fakeStore) Finalize(_ context.Context, campaignID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[campaignID].Status = status
	f.finalized[campaignID] = status
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
}

func (f *fakeResolver) ActiveSendAccount(_ context.Context, _ uuid.UUID) (*models.EmailAccount, string, error) {
	if f.account == nil {
		return nil, "", apperr.NotFound("active email account")
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

func (f *fakeLogs) CountByCampaign(_ context.Context, _, campaignID uuid.UUID) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range f.entries {
		if e.CampaignID != nil && *e.CampaignID == campaignID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (f *fakeLogs) CountByUserCampaigns(_ context.Context, userID uuid.UUID) (map[uuid.UUID]map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[uuid.UUID]map[string]int)
	for _, e := range f.entries {
		if e.UserID != userID || e.CampaignID == nil {
			continue
		}
		if counts[*e.CampaignID] == nil {
			counts[*e.CampaignID] = make(map[string]int)
		}
		counts[*e.CampaignID][e.Status]++
	}
	return counts, nil
}

func testTemplate(userID uuid.UUID) *models.EmailTemplate {
	return &models.EmailTemplate{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    "newsletter",
		Subject: "Hi {{.name}}",
		Body:    "News for {{.email}}",
	}
}

func testAccount(userID uuid.UUID) *models.EmailAccount {
	return &models.EmailAccount{
		ID:           uuid.New(),
		UserID:       userID,
		AccountName:  "Newsletter",
		EmailAddress: "news@example.com",
		SMTPServer:   "smtp.example.com",
		Username:     "news@example.com",
		IsActive:     true,
	}
}

func newTestDispatcher(store *fakeStore, tmpl *models.EmailTemplate, account *models.EmailAccount, transport *fakeTransport, logs *fakeLogs) *Dispatcher {
	return NewDispatcher(store, &fakeTemplates{tmpl: tmpl}, &fakeResolver{account: account},
		transport, templates.NewTextRenderer(), logs, 0, nil)
}

func TestDispatchEmptyRecipients(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store, nil, nil, &fakeTransport{}, &fakeLogs{})

	_, err := d.Dispatch(context.Background(), uuid.New(), DispatchRequest{TemplateID: uuid.New()})

	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, store.campaigns, "no campaign row before validation passes")
}

func TestDispatchMissingTemplate(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	d := newTestDispatcher(store, nil, testAccount(userID), &fakeTransport{}, &fakeLogs{})

	_, err := d.Dispatch(context.Background(), userID, DispatchRequest{
		TemplateID: uuid.New(),
		Recipients: []models.Recipient{{Email: "a@example.com"}},
	})

	var nfErr *apperr.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Empty(t, store.campaigns)
}

func TestDispatchAllSucceedCompletes(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	store := newFakeStore()
	transport := &fakeTransport{}
	logs := &fakeLogs{}
	d := newTestDispatcher(store, tmpl, testAccount(userID), transport, logs)

	campaign, err := d.Dispatch(context.Background(), userID, DispatchRequest{
		TemplateID: tmpl.ID,
		Recipients: []models.Recipient{
			{Email: "a@example.com", Variables: map[string]string{"name": "Ann"}},
			{Email: "b@example.com", Variables: map[string]string{"name": "Bob"}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, campaign.Status)
	assert.Equal(t, 2, campaign.SentCount)
	require.Len(t, transport.sent, 2)
	assert.Equal(t, "Hi Ann", transport.sent[0].Subject)
	assert.Equal(t, "News for b@example.com", transport.sent[1].Body)
	// the counter is persisted after every successful recipient
	assert.Equal(t, []int{1, 2}, store.sentCounts)
	require.Len(t, logs.entries, 2)
	assert.Equal(t, campaign.ID, *logs.entries[0].CampaignID)
}

func TestDispatchPartialFailure(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	store := newFakeStore()
	transport := &fakeTransport{failFor: map[string]error{"b@example.com": errors.New("mailbox full")}}
	logs := &fakeLogs{}
	d := newTestDispatcher(store, tmpl, testAccount(userID), transport, logs)

	campaign, err := d.Dispatch(context.Background(), userID, DispatchRequest{
		TemplateID: tmpl.ID,
		Recipients: []models.Recipient{{Email: "a@example.com"}, {Email: "b@example.com"}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPartial, campaign.Status)
	assert.Equal(t, 1, campaign.SentCount)
	assert.Equal(t, []int{1}, store.sentCounts)
	require.Len(t, logs.entries, 2)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[0].Status)
	assert.Equal(t, models.EmailLogStatusFailed, logs.entries[1].Status)
	assert.Equal(t, "mailbox full", logs.entries[1].ErrorMessage)
}

func TestDispatchExistingCampaignTransitions(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	store := newFakeStore()
	draft := &models.Campaign{UserID: userID, Name: "spring launch", Status: models.CampaignStatusDraft}
	require.NoError(t, store.Create(context.Background(), draft))

	d := newTestDispatcher(store, tmpl, testAccount(userID), &fakeTransport{}, &fakeLogs{})
	campaign, err := d.Dispatch(context.Background(), userID, DispatchRequest{
		TemplateID: tmpl.ID,
		Recipients: []models.Recipient{{Email: "a@example.com"}},
		CampaignID: &draft.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, draft.ID, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, store.finalized[draft.ID])
	assert.Equal(t, 1, store.campaigns[draft.ID].TotalRecipients)
}

func TestStatsFromLogs(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	store := newFakeStore()
	transport := &fakeTransport{failFor: map[string]error{"b@example.com": errors.New("rejected")}}
	logs := &fakeLogs{}
	d := newTestDispatcher(store, tmpl, testAccount(userID), transport, logs)

	campaign, err := d.Dispatch(context.Background(), userID, DispatchRequest{
		TemplateID: tmpl.ID,
		Recipients: []models.Recipient{{Email: "a@example.com"}, {Email: "b@example.com"}},
	})
	require.NoError(t, err)

	stats, err := d.Stats(context.Background(), userID, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SentCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 0, stats.PendingCount)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
	assert.Equal(t, models.CampaignStatusPartial, stats.Status)
	require.NotNil(t, stats.CompletedAt)
}

func TestStatsNoLogs(t *testing.T) {
	userID := uuid.New()
	store := newFakeStore()
	draft := &models.Campaign{UserID: userID, Name: "empty", Status: models.CampaignStatusDraft, TotalRecipients: 3}
	require.NoError(t, store.Create(context.Background(), draft))

	d := newTestDispatcher(store, nil, nil, &fakeTransport{}, &fakeLogs{})
	stats, err := d.Stats(context.Background(), userID, draft.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.SuccessRate)
	assert.Equal(t, 3, stats.PendingCount)
	assert.Nil(t, stats.CompletedAt)
}

func TestStatsListCoversEveryCampaign(t *testing.T) {
	userID := uuid.New()
	tmpl := testTemplate(userID)
	store := newFakeStore()
	transport := &fakeTransport{failFor: map[string]error{"b@example.com": errors.New("rejected")}}
	logs := &fakeLogs{}
	d := newTestDispatcher(store, tmpl, testAccount(userID), transport, logs)

	dispatched, err := d.Dispatch(context.Background(), userID, DispatchRequest{
		TemplateID: tmpl.ID,
		Recipients: []models.Recipient{{Email: "a@example.com"}, {Email: "b@example.com"}},
	})
	require.NoError(t, err)
	draft := &models.Campaign{UserID: userID, Name: "untouched draft", Status: models.CampaignStatusDraft, TotalRecipients: 4}
	require.NoError(t, store.Create(context.Background(), draft))
	other := &models.Campaign{UserID: uuid.New(), Name: "someone else", Status: models.CampaignStatusDraft}
	require.NoError(t, store.Create(context.Background(), other))

	list, err := d.StatsList(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := make(map[uuid.UUID]*models.CampaignStats, len(list))
	for _, s := range list {
		byID[s.CampaignID] = s
	}
	sent := byID[dispatched.ID]
	require.NotNil(t, sent)
	assert.Equal(t, models.CampaignStatusPartial, sent.Status)
	assert.Equal(t, 1, sent.SentCount)
	assert.Equal(t, 1, sent.FailedCount)
	assert.InDelta(t, 50.0, sent.SuccessRate, 0.001)

	idle := byID[draft.ID]
	require.NotNil(t, idle)
	assert.Zero(t, idle.SuccessRate)
	assert.Equal(t, 4, idle.PendingCount)
	assert.Nil(t, idle.CompletedAt)
}
