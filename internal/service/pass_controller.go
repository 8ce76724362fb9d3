// internal/service/pass_controller.go
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/locks"
	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

const (
	// RetryDelay re-triggers a pass blocked by the send window or an empty
	// allowance.
	RetryDelay = time.Hour
	// NextBatchDelay spaces out daily batches while pending work remains.
	NextBatchDelay = 24 * time.Hour
)

// PassTrigger is the payload the external scheduler delivers per pass.
type PassTrigger struct {
	CampaignID int `json:"campaign_id"`
	TenantID   int `json:"tenant_id"`
}

// PassResult is what one pass decided. RescheduleAfter > 0 asks the task
// runner to re-enqueue the same trigger after that delay; zero means no
// further pass is wanted.
type PassResult struct {
	Skipped         bool
	Reason          string
	Attempted       int
	Sent            int
	Failed          int
	Completed       bool
	RescheduleAfter time.Duration
}

// CampaignMetrics is the reporting collaborator, refreshed after each batch.
type CampaignMetrics interface {
	UpdateMetrics(campaignID int) error
	MarkCompleted(campaignID int) error
}

// PassController runs one scheduling pass for one campaign: state gate,
// send-window gate, budget computation, mailbox selection, eligibility,
// dispatch, then completion-or-reschedule.
type PassController struct {
	Campaigns   repository.CampaignRepositoryInterface
	Mailboxes   repository.MailboxRepositoryInterface
	Messages    repository.MessageRepositoryInterface
	Selector    *MailboxSelector
	Eligibility *EligibilitySelector
	Dispatcher  *Dispatcher
	Metrics     CampaignMetrics
	Locks       *locks.KeyedMutex
	Log         *logrus.Logger

	Now func() time.Time
}

// RunPass executes one pass. Benign outcomes (campaign gone, not running,
// overlapping pass) come back as a skipped result with nil error; real
// infrastructure failures are logged and returned for the caller's retry
// policy.
func (p *PassController) RunPass(ctx context.Context, trigger PassTrigger) (*PassResult, error) {
	log := p.Log.WithFields(logrus.Fields{"campaign_id": trigger.CampaignID, "tenant_id": trigger.TenantID})

	key := strconv.Itoa(trigger.CampaignID)
	if !p.Locks.TryLock(key) {
		// An earlier pass for this campaign is still in flight. Running two
		// would compute budgets against stale counts and double-dispatch.
		log.Warn("pass already in flight, skipping")
		return &PassResult{Skipped: true, Reason: "pass already in flight"}, nil
	}
	defer p.Locks.Unlock(key)

	result, err := p.runLocked(ctx, trigger, log)
	if err != nil {
		log.WithError(err).Error("campaign pass failed")
		return nil, err
	}
	return result, nil
}

func (p *PassController) runLocked(ctx context.Context, trigger PassTrigger, log *logrus.Entry) (*PassResult, error) {
	now := p.now()

	campaign, err := p.Campaigns.GetByID(trigger.CampaignID)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			log.Warn("campaign not found, dropping pass")
			return &PassResult{Skipped: true, Reason: "campaign not found"}, nil
		}
		return nil, err
	}

	if campaign.Status != model.CampaignStatusRunning {
		log.WithField("status", campaign.Status).Debug("campaign not running, skipping pass")
		return &PassResult{Skipped: true, Reason: "campaign status " + campaign.Status}, nil
	}

	if !WithinSendWindow(campaign.Schedule, now) {
		log.Debug("outside send window, retrying in an hour")
		return &PassResult{Reason: "outside send window", RescheduleAfter: RetryDelay}, nil
	}

	defaultMailbox, err := p.Mailboxes.GetByID(campaign.DefaultMailboxID)
	if err != nil {
		var notFound *appErrors.ErrMailboxNotFound
		if errors.As(err, &notFound) {
			log.Warn("default mailbox not found, dropping pass")
			return &PassResult{Skipped: true, Reason: "default mailbox not found"}, nil
		}
		return nil, err
	}

	mailbox, budget, err := p.Selector.Select(campaign, defaultMailbox, now)
	if err != nil {
		return nil, err
	}
	if budget.Allowed <= 0 {
		log.WithField("mailbox_id", mailbox.ID).Debug("no send allowance, retrying in an hour")
		return &PassResult{Reason: "no send allowance", RescheduleAfter: RetryDelay}, nil
	}

	batch, err := p.Eligibility.SelectEligible(campaign, now, budget.Allowed)
	if err != nil {
		return nil, err
	}

	stats := p.Dispatcher.Dispatch(ctx, campaign, mailbox, batch)
	log.WithFields(logrus.Fields{
		"mailbox_id": mailbox.ID,
		"allowed":    budget.Allowed,
		"sent":       stats.Sent,
		"failed":     stats.Failed,
	}).Info("dispatch batch done")

	if err := p.Metrics.UpdateMetrics(campaign.ID); err != nil {
		return nil, err
	}

	pending, err := p.Messages.CountPending(campaign.ID)
	if err != nil {
		return nil, err
	}

	result := &PassResult{Attempted: stats.Attempted, Sent: stats.Sent, Failed: stats.Failed}
	if pending == 0 {
		if err := p.Campaigns.UpdateStatus(campaign.ID, model.CampaignStatusCompleted); err != nil {
			return nil, err
		}
		if err := p.Metrics.MarkCompleted(campaign.ID); err != nil {
			return nil, err
		}
		log.Info("campaign completed")
		result.Completed = true
		return result, nil
	}

	result.RescheduleAfter = NextBatchDelay
	return result, nil
}

func (p *PassController) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
