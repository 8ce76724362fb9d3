// internal/service/rate_budget.go
package service

import (
	"time"

	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/repository"
)

const (
	// Fallback when a mailbox has no daily or warmup limit configured.
	defaultDailyLimit = 10
	// Floor for the derived hourly limit.
	minHourlyLimit = 10
	// Floor for the shared per-domain daily ceiling.
	minDomainDailyCap = 50
)

// RateBudget is the remaining send allowance for one mailbox at one instant.
// Each budget term is floored at zero independently, so an exhausted budget
// cannot go negative and offset another.
type RateBudget struct {
	SentLastHour      int
	SentToday         int
	SentTodayByDomain int

	HourlyLimit    int
	WarmupCap      int
	DomainDailyCap int // 0 means unbounded (mailbox has no domain)

	Allowed int
}

type BudgetCalculator struct {
	Messages repository.MessageRepositoryInterface
}

// Compute derives the mailbox's remaining allowance from its send history.
// Read-only: budgets are recomputed from message rows every pass rather than
// kept as mutable counters.
func (c *BudgetCalculator) Compute(mailbox *model.Mailbox, now time.Time) (*RateBudget, error) {
	daily := intOr(mailbox.DailySendLimit, defaultDailyLimit)
	warmup := intOr(mailbox.WarmupCurrentLimit, defaultDailyLimit)

	b := &RateBudget{
		WarmupCap: min(warmup, daily),
	}
	if mailbox.HourlyLimit != nil {
		b.HourlyLimit = *mailbox.HourlyLimit
	} else {
		b.HourlyLimit = max(minHourlyLimit, daily/8)
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var err error
	b.SentLastHour, err = c.Messages.CountSentByMailboxSince(mailbox.ID, now.Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	b.SentToday, err = c.Messages.CountSentByMailboxSince(mailbox.ID, midnight)
	if err != nil {
		return nil, err
	}

	b.Allowed = min(
		clampZero(b.HourlyLimit-b.SentLastHour),
		clampZero(b.WarmupCap-b.SentToday),
	)

	if mailbox.DomainID != nil {
		b.DomainDailyCap = max(daily*2, minDomainDailyCap)
		b.SentTodayByDomain, err = c.Messages.CountSentByDomainSince(*mailbox.DomainID, midnight)
		if err != nil {
			return nil, err
		}
		b.Allowed = min(b.Allowed, clampZero(b.DomainDailyCap-b.SentTodayByDomain))
	}

	return b, nil
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
