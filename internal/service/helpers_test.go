package service

import (
	"context"
	"time"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

// Configurable fakes shared by the scheduler tests. Unset fields fall back
// to empty results so each test only wires what it cares about.

type fakeMessages struct {
	countByMailbox func(mailboxID int, since time.Time) (int, error)
	countByDomain  func(domainID int, since time.Time) (int, error)
	pendingInitial func(campaignID, limit int) ([]*model.OutboundMessage, error)
	readyFollowUps func(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error)
	countPending   func(campaignID int) (int, error)

	markSentErr error

	markedSent   []sentRecord
	markedFailed []failedRecord
}

type sentRecord struct {
	MessageID         int
	MailboxID         int
	ProviderMessageID string
	SentAt            time.Time
}

type failedRecord struct {
	MessageID int
	Reason    string
}

func (f *fakeMessages) CountSentByMailboxSince(mailboxID int, since time.Time) (int, error) {
	if f.countByMailbox == nil {
		return 0, nil
	}
	return f.countByMailbox(mailboxID, since)
}

func (f *fakeMessages) CountSentByDomainSince(domainID int, since time.Time) (int, error) {
	if f.countByDomain == nil {
		return 0, nil
	}
	return f.countByDomain(domainID, since)
}

func (f *fakeMessages) ListPendingInitial(campaignID, limit int) ([]*model.OutboundMessage, error) {
	if f.pendingInitial == nil {
		return nil, nil
	}
	return f.pendingInitial(campaignID, limit)
}

func (f *fakeMessages) ListReadyFollowUps(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error) {
	if f.readyFollowUps == nil {
		return nil, nil
	}
	return f.readyFollowUps(campaignID, step, sentBefore, limit)
}

func (f *fakeMessages) CountPending(campaignID int) (int, error) {
	if f.countPending == nil {
		return 0, nil
	}
	return f.countPending(campaignID)
}

func (f *fakeMessages) Create(msg *model.OutboundMessage) error { return nil }

func (f *fakeMessages) MarkSent(id, mailboxID int, providerMessageID string, sentAt time.Time) error {
	if f.markSentErr != nil {
		return f.markSentErr
	}
	f.markedSent = append(f.markedSent, sentRecord{id, mailboxID, providerMessageID, sentAt})
	return nil
}

func (f *fakeMessages) MarkFailed(id int, reason string) error {
	f.markedFailed = append(f.markedFailed, failedRecord{id, reason})
	return nil
}

var _ repository.MessageRepositoryInterface = (*fakeMessages)(nil)

type fakeMailboxes struct {
	byID    map[int]*model.Mailbox
	active  []*model.Mailbox
	listErr error
	calls   int
}

func (f *fakeMailboxes) GetByID(id int) (*model.Mailbox, error) {
	f.calls++
	if m, ok := f.byID[id]; ok {
		return m, nil
	}
	return nil, errMailboxMissing(id)
}

func (f *fakeMailboxes) ListActiveByIDs(tenantID int, ids []int) ([]*model.Mailbox, error) {
	f.calls++
	return f.active, f.listErr
}

var _ repository.MailboxRepositoryInterface = (*fakeMailboxes)(nil)

type fakeCampaigns struct {
	byID          map[int]*model.Campaign
	statusUpdates []string
	calls         int
}

func (f *fakeCampaigns) GetByID(id int) (*model.Campaign, error) {
	f.calls++
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, errCampaignMissing(id)
}

func (f *fakeCampaigns) UpdateStatus(campaignID int, status string) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeCampaigns) Create(c *model.Campaign) error { return nil }

func (f *fakeCampaigns) ListCampaigns(offset, limit int, tenantID int, status string) ([]*model.Campaign, int, error) {
	return nil, 0, nil
}

func (f *fakeCampaigns) GetCampaignStats(campaignID int) (map[string]int, error) {
	return map[string]int{}, nil
}

var _ repository.CampaignRepositoryInterface = (*fakeCampaigns)(nil)

type fakeLedger struct {
	consume func(tenantID int, req CreditRequest) error
	calls   []CreditRequest
}

func (f *fakeLedger) Consume(ctx context.Context, tenantID int, req CreditRequest) error {
	f.calls = append(f.calls, req)
	if f.consume == nil {
		return nil
	}
	return f.consume(tenantID, req)
}

type fakeTransport struct {
	send  func(req SendRequest, messageID int) (SendResult, error)
	calls []SendRequest
}

func (f *fakeTransport) SendWithTracking(ctx context.Context, req SendRequest, messageID int, trackingBaseURL string) (SendResult, error) {
	f.calls = append(f.calls, req)
	if f.send == nil {
		return SendResult{MessageID: "prov-1"}, nil
	}
	return f.send(req, messageID)
}

type fakeMetrics struct {
	updated   []int
	completed []int
}

func (f *fakeMetrics) UpdateMetrics(campaignID int) error {
	f.updated = append(f.updated, campaignID)
	return nil
}

func (f *fakeMetrics) MarkCompleted(campaignID int) error {
	f.completed = append(f.completed, campaignID)
	return nil
}

func intPtr(v int) *int { return &v }

func errMailboxMissing(id int) error  { return appErrors.NewMailboxNotFound(id) }
func errCampaignMissing(id int) error { return appErrors.NewCampaignNotFound(id) }
