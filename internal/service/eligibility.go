// internal/service/eligibility.go
package service

import (
	"time"

	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

// followUpStepLimit bounds the follow-up query per sequence step. Anything
// past the window is picked up on a later pass.
const followUpStepLimit = 100

type EligibilitySelector struct {
	Messages repository.MessageRepositoryInterface
}

// SelectEligible builds the send batch for one pass: pending initial
// messages first, then, per sequence step, follow-ups whose prior touch was
// sent at least delayDays ago (inclusive at the boundary). The combined list
// is truncated to the allowance; no priority beyond concatenation order.
func (s *EligibilitySelector) SelectEligible(campaign *model.Campaign, now time.Time, allowed int) ([]*model.OutboundMessage, error) {
	if allowed <= 0 {
		return nil, nil
	}

	batch, err := s.Messages.ListPendingInitial(campaign.ID, allowed)
	if err != nil {
		return nil, err
	}

	for _, step := range campaign.Sequence {
		if step.Step <= 1 {
			continue
		}
		cutoff := now.Add(-time.Duration(step.DelayDays) * 24 * time.Hour)
		ready, err := s.Messages.ListReadyFollowUps(campaign.ID, step.Step, cutoff, followUpStepLimit)
		if err != nil {
			return nil, err
		}
		batch = append(batch, ready...)
	}

	if len(batch) > allowed {
		batch = batch[:allowed]
	}
	return batch, nil
}
