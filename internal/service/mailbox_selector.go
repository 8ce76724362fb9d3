// internal/service/mailbox_selector.go
package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

type MailboxSelector struct {
	Budgets   *BudgetCalculator
	Mailboxes repository.MailboxRepositoryInterface
	Log       *logrus.Logger
}

// Select picks the sending mailbox for this pass: the default mailbox, or
// whichever pool candidate has a strictly greater remaining allowance. Ties
// keep the earlier-evaluated mailbox, so the default wins against equal pool
// members. The selection is greedy and stateless; no round-robin memory is
// kept between passes.
func (s *MailboxSelector) Select(campaign *model.Campaign, def *model.Mailbox, now time.Time) (*model.Mailbox, *RateBudget, error) {
	best := def
	bestBudget, err := s.Budgets.Compute(def, now)
	if err != nil {
		return nil, nil, err
	}

	pool := campaign.Schedule.MailboxPool
	if len(pool) == 0 {
		return best, bestBudget, nil
	}

	candidates, err := s.Mailboxes.ListActiveByIDs(campaign.TenantID, pool)
	if err != nil {
		return nil, nil, err
	}

	for _, mb := range candidates {
		if mb.ID == def.ID {
			continue
		}
		budget, err := s.Budgets.Compute(mb, now)
		if err != nil {
			return nil, nil, err
		}
		if budget.Allowed > bestBudget.Allowed {
			best = mb
			bestBudget = budget
		}
	}

	if best.ID != def.ID {
		s.Log.WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"mailbox_id":  best.ID,
			"allowed":     bestBudget.Allowed,
		}).Debug("pool mailbox outranked default")
	}
	return best, bestBudget, nil
}
