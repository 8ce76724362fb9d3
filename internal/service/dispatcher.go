// internal/service/dispatcher.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

// CreditLedger is the billing collaborator. Consume deducts credits for the
// tenant or returns ErrInsufficientCredits.
type CreditLedger interface {
	Consume(ctx context.Context, tenantID int, req CreditRequest) error
}

type CreditRequest struct {
	Credits    int               `json:"credits"`
	ActionType string            `json:"action_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// MessageTransport hands a built email to the delivery provider. A
// provider-reported failure comes back as an error carrying the provider's
// message.
type MessageTransport interface {
	SendWithTracking(ctx context.Context, req SendRequest, messageID int, trackingBaseURL string) (SendResult, error)
}

type SendRequest struct {
	FromEmail string            `json:"from_email"`
	To        string            `json:"to"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Subject   string            `json:"subject"`
	HTMLBody  string            `json:"html_body"`
	Headers   map[string]string `json:"headers,omitempty"`
	Tags      SendTags          `json:"tags"`
}

type SendTags struct {
	CampaignID int `json:"campaignId"`
	EmailID    int `json:"emailId"`
	TenantID   int `json:"tenantId"`
}

type SendResult struct {
	MessageID string `json:"message_id"`
}

// Dispatcher walks the eligible batch strictly sequentially: one credit
// deduction, one transport call, one jitter sleep per message. No message
// failure aborts the batch; every error lands in that message's row.
type Dispatcher struct {
	Messages        repository.MessageRepositoryInterface
	Credits         CreditLedger
	Transport       MessageTransport
	TrackingBaseURL string
	Log             *logrus.Logger

	Now   func() time.Time
	Sleep func(time.Duration)
}

type DispatchStats struct {
	Attempted int
	Sent      int
	Failed    int
}

func (d *Dispatcher) Dispatch(ctx context.Context, campaign *model.Campaign, mailbox *model.Mailbox, batch []*model.OutboundMessage) DispatchStats {
	stats := DispatchStats{}
	for _, msg := range batch {
		attempted, sent := d.dispatchOne(ctx, campaign, mailbox, msg)
		if sent {
			stats.Sent++
		} else {
			stats.Failed++
		}
		if attempted {
			stats.Attempted++
			// Human-like pacing between sends.
			d.sleep(JitterDelay())
		}
	}
	return stats
}

// dispatchOne resolves a single message to sent or failed. attempted is true
// once the message reached the transport handoff.
func (d *Dispatcher) dispatchOne(ctx context.Context, campaign *model.Campaign, mailbox *model.Mailbox, msg *model.OutboundMessage) (attempted, sent bool) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.WithFields(logrus.Fields{"message_id": msg.ID, "panic": r}).Error("dispatch panicked")
			d.fail(msg, fmt.Sprintf("dispatch panic: %v", r))
			sent = false
		}
	}()

	err := d.Credits.Consume(ctx, campaign.TenantID, CreditRequest{
		Credits:    1,
		ActionType: "campaign_email",
		Metadata: map[string]string{
			"campaign_id": strconv.Itoa(campaign.ID),
			"email_id":    strconv.Itoa(msg.ID),
		},
	})
	if err != nil {
		var insufficient *appErrors.ErrInsufficientCredits
		if errors.As(err, &insufficient) {
			d.fail(msg, "insufficient credits to send campaign email")
		} else {
			d.fail(msg, err.Error())
		}
		return false, false
	}

	req := d.buildSendRequest(campaign, mailbox, msg)

	attempted = true
	res, err := d.Transport.SendWithTracking(ctx, req, msg.ID, d.TrackingBaseURL)
	if err != nil {
		d.fail(msg, err.Error())
		return attempted, false
	}

	now := d.now()
	if err := d.Messages.MarkSent(msg.ID, mailbox.ID, res.MessageID, now); err != nil {
		// The provider accepted the email but the sent stamp didn't land.
		// Leaving the row pending would re-send it on the next pass, so
		// park it as failed with the persistence error instead.
		d.Log.WithField("message_id", msg.ID).WithError(err).Error("failed to record sent message")
		d.fail(msg, fmt.Sprintf("delivered but not recorded: %v", err))
		return attempted, false
	}
	msg.Status = model.MessageStatusSent
	msg.SentAt = &now
	return attempted, true
}

func (d *Dispatcher) buildSendRequest(campaign *model.Campaign, mailbox *model.Mailbox, msg *model.OutboundMessage) SendRequest {
	unsubURL := fmt.Sprintf("%s/unsubscribe/one-click?c=%d&m=%d", d.TrackingBaseURL, campaign.ID, msg.ID)
	return SendRequest{
		FromEmail: mailbox.Email,
		To:        msg.RecipientEmail,
		ReplyTo:   mailbox.Email,
		Subject:   msg.Subject,
		HTMLBody:  msg.BodyHTML,
		Headers: map[string]string{
			"List-Unsubscribe":      fmt.Sprintf("<%s>, <mailto:unsubscribe@%s>", unsubURL, mailbox.Domain()),
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		},
		Tags: SendTags{
			CampaignID: campaign.ID,
			EmailID:    msg.ID,
			TenantID:   campaign.TenantID,
		},
	}
}

func (d *Dispatcher) fail(msg *model.OutboundMessage, reason string) {
	if err := d.Messages.MarkFailed(msg.ID, reason); err != nil {
		d.Log.WithField("message_id", msg.ID).WithError(err).Error("failed to record message failure")
	}
	msg.Status = model.MessageStatusFailed
	msg.LastError = reason
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) sleep(delay time.Duration) {
	if d.Sleep != nil {
		d.Sleep(delay)
		return
	}
	time.Sleep(delay)
}

// JitterDelay returns a pseudo-random pause in [1000ms, 3000ms) so batches
// don't burst with a robotic cadence.
func JitterDelay() time.Duration {
	return time.Duration(1000+rand.Intn(2000)) * time.Millisecond
}
