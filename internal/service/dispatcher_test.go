package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/model"
)

func testCampaign() *model.Campaign {
	return &model.Campaign{ID: 10, TenantID: 1, Status: model.CampaignStatusRunning}
}

func testMailbox() *model.Mailbox {
	return &model.Mailbox{ID: 3, TenantID: 1, Email: "sara@agency-one.com", Status: model.MailboxStatusActive}
}

func pendingMsg(id int) *model.OutboundMessage {
	return &model.OutboundMessage{
		ID:             id,
		CampaignID:     10,
		TenantID:       1,
		RecipientEmail: fmt.Sprintf("lead%d@prospect.com", id),
		SequenceStep:   1,
		Subject:        "hello",
		BodyHTML:       "<p>hi</p>",
		Status:         model.MessageStatusPending,
	}
}

func newDispatcher(msgs *fakeMessages, ledger *fakeLedger, tp *fakeTransport) (*Dispatcher, *[]time.Duration) {
	slept := &[]time.Duration{}
	d := &Dispatcher{
		Messages:        msgs,
		Credits:         ledger,
		Transport:       tp,
		TrackingBaseURL: "https://track.example.com",
		Log:             logrus.New(),
		Now:             func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) },
		Sleep:           func(d time.Duration) { *slept = append(*slept, d) },
	}
	return d, slept
}

func TestJitterDelayRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d := JitterDelay()
		require.GreaterOrEqual(t, d, 1000*time.Millisecond)
		require.Less(t, d, 3000*time.Millisecond)
	}
}

func TestDispatchSuccess(t *testing.T) {
	msgs := &fakeMessages{}
	ledger := &fakeLedger{}
	tp := &fakeTransport{send: func(req SendRequest, messageID int) (SendResult, error) {
		return SendResult{MessageID: "prov-42"}, nil
	}}
	d, slept := newDispatcher(msgs, ledger, tp)

	stats := d.Dispatch(context.Background(), testCampaign(), testMailbox(), []*model.OutboundMessage{pendingMsg(1)})

	assert.Equal(t, DispatchStats{Attempted: 1, Sent: 1}, stats)
	require.Len(t, msgs.markedSent, 1)
	assert.Equal(t, 1, msgs.markedSent[0].MessageID)
	assert.Equal(t, 3, msgs.markedSent[0].MailboxID)
	assert.Equal(t, "prov-42", msgs.markedSent[0].ProviderMessageID)
	assert.Equal(t, d.Now(), msgs.markedSent[0].SentAt)
	require.Len(t, *slept, 1, "jitter sleep after the attempt")
}

func TestDispatchBuildsComplianceHeaders(t *testing.T) {
	tp := &fakeTransport{}
	d, _ := newDispatcher(&fakeMessages{}, &fakeLedger{}, tp)

	d.Dispatch(context.Background(), testCampaign(), testMailbox(), []*model.OutboundMessage{pendingMsg(7)})

	require.Len(t, tp.calls, 1)
	req := tp.calls[0]
	assert.Equal(t, "sara@agency-one.com", req.FromEmail)
	assert.Contains(t, req.Headers["List-Unsubscribe"], "https://track.example.com/unsubscribe/one-click?c=10&m=7")
	assert.Contains(t, req.Headers["List-Unsubscribe"], "<mailto:unsubscribe@agency-one.com>")
	assert.Equal(t, "List-Unsubscribe=One-Click", req.Headers["List-Unsubscribe-Post"])
	assert.Equal(t, SendTags{CampaignID: 10, EmailID: 7, TenantID: 1}, req.Tags)
}

func TestDispatchInsufficientCreditsContinues(t *testing.T) {
	msgs := &fakeMessages{}
	calls := 0
	ledger := &fakeLedger{consume: func(tenantID int, req CreditRequest) error {
		calls++
		if calls == 1 {
			return appErrors.NewInsufficientCredits(tenantID)
		}
		return nil
	}}
	tp := &fakeTransport{}
	d, slept := newDispatcher(msgs, ledger, tp)

	stats := d.Dispatch(context.Background(), testCampaign(), testMailbox(),
		[]*model.OutboundMessage{pendingMsg(1), pendingMsg(2)})

	assert.Equal(t, DispatchStats{Attempted: 1, Sent: 1, Failed: 1}, stats)
	require.Len(t, msgs.markedFailed, 1)
	assert.Equal(t, 1, msgs.markedFailed[0].MessageID)
	assert.Contains(t, msgs.markedFailed[0].Reason, "insufficient credits")
	assert.Len(t, tp.calls, 1, "credit-denied message never reaches the transport")
	assert.Len(t, *slept, 1, "no pacing sleep for a message that was never attempted")
}

func TestDispatchTransportFailureContinues(t *testing.T) {
	msgs := &fakeMessages{}
	tp := &fakeTransport{send: func(req SendRequest, messageID int) (SendResult, error) {
		if messageID == 1 {
			return SendResult{}, fmt.Errorf("provider rejected message: bad recipient")
		}
		return SendResult{MessageID: "prov-2"}, nil
	}}
	d, slept := newDispatcher(msgs, &fakeLedger{}, tp)

	stats := d.Dispatch(context.Background(), testCampaign(), testMailbox(),
		[]*model.OutboundMessage{pendingMsg(1), pendingMsg(2)})

	assert.Equal(t, DispatchStats{Attempted: 2, Sent: 1, Failed: 1}, stats)
	require.Len(t, msgs.markedFailed, 1)
	assert.Contains(t, msgs.markedFailed[0].Reason, "bad recipient")
	require.Len(t, msgs.markedSent, 1)
	assert.Equal(t, 2, msgs.markedSent[0].MessageID)
	assert.Len(t, *slept, 2, "failed-but-attempted messages still pace")
}

func TestDispatchSentStampFailureParksMessage(t *testing.T) {
	msgs := &fakeMessages{markSentErr: fmt.Errorf("pq: connection reset")}
	tp := &fakeTransport{send: func(req SendRequest, messageID int) (SendResult, error) {
		return SendResult{MessageID: "prov-42"}, nil
	}}
	d, _ := newDispatcher(msgs, &fakeLedger{}, tp)

	msg := pendingMsg(1)
	stats := d.Dispatch(context.Background(), testCampaign(), testMailbox(),
		[]*model.OutboundMessage{msg})

	// The provider accepted the email, so the row must not stay pending:
	// a later pass would deliver it a second time. It parks as failed with
	// the persistence error instead.
	assert.Equal(t, DispatchStats{Attempted: 1, Failed: 1}, stats)
	require.Len(t, msgs.markedFailed, 1)
	assert.Equal(t, 1, msgs.markedFailed[0].MessageID)
	assert.Contains(t, msgs.markedFailed[0].Reason, "delivered but not recorded")
	assert.Contains(t, msgs.markedFailed[0].Reason, "connection reset")
	assert.Equal(t, model.MessageStatusFailed, msg.Status)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	msgs := &fakeMessages{}
	tp := &fakeTransport{send: func(req SendRequest, messageID int) (SendResult, error) {
		if messageID == 1 {
			panic("boom")
		}
		return SendResult{MessageID: "prov-2"}, nil
	}}
	d, _ := newDispatcher(msgs, &fakeLedger{}, tp)

	stats := d.Dispatch(context.Background(), testCampaign(), testMailbox(),
		[]*model.OutboundMessage{pendingMsg(1), pendingMsg(2)})

	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, msgs.markedFailed, 1)
	assert.Contains(t, msgs.markedFailed[0].Reason, "dispatch panic")
}

func TestDispatchMetersOneCreditPerMessage(t *testing.T) {
	ledger := &fakeLedger{}
	d, _ := newDispatcher(&fakeMessages{}, ledger, &fakeTransport{})

	d.Dispatch(context.Background(), testCampaign(), testMailbox(),
		[]*model.OutboundMessage{pendingMsg(1), pendingMsg(2), pendingMsg(3)})

	require.Len(t, ledger.calls, 3)
	for _, call := range ledger.calls {
		assert.Equal(t, 1, call.Credits)
		assert.Equal(t, "campaign_email", call.ActionType)
	}
	assert.Equal(t, "10", ledger.calls[0].Metadata["campaign_id"])
}
