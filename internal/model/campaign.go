// internal/model/campaign.go
package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusRunning   = "running"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

type Campaign struct {
	ID               int            `db:"id" json:"id"`
	TenantID         int            `db:"tenant_id" json:"tenant_id"`
	Name             string         `db:"name" json:"name"`
	Status           string         `db:"status" json:"status"`
	DefaultMailboxID int            `db:"default_mailbox_id" json:"default_mailbox_id"`
	Schedule         ScheduleConfig `db:"schedule_config" json:"schedule"`
	Sequence         []SequenceStep `db:"sequence_config" json:"sequence"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// ScheduleConfig is stored as JSONB on the campaign row and decoded when the
// campaign is loaded. Times are wall-clock "HH:MM" strings; Timezone, when
// set and resolvable, shifts the send-window check into that zone.
type ScheduleConfig struct {
	SendDays      []string `json:"sendDays"`
	SendTimeStart string   `json:"sendTimeStart"`
	SendTimeEnd   string   `json:"sendTimeEnd"`
	Timezone      string   `json:"timezone,omitempty"`
	MailboxPool   []int    `json:"mailboxPool,omitempty"`
}

// SequenceStep describes one touch of the outreach cadence. Step 1 is the
// initial email; step n > 1 becomes eligible DelayDays after step n-1 was
// sent to the same recipient.
type SequenceStep struct {
	Step      int `json:"step"`
	DelayDays int `json:"delayDays"`
}

func (sc ScheduleConfig) Validate() error {
	if len(sc.SendDays) == 0 {
		return fmt.Errorf("schedule: sendDays cannot be empty")
	}
	for _, d := range sc.SendDays {
		if !validWeekday(d) {
			return fmt.Errorf("schedule: unknown weekday %q", d)
		}
	}
	if _, err := ParseClock(sc.SendTimeStart); err != nil {
		return fmt.Errorf("schedule: bad sendTimeStart: %w", err)
	}
	if _, err := ParseClock(sc.SendTimeEnd); err != nil {
		return fmt.Errorf("schedule: bad sendTimeEnd: %w", err)
	}
	return nil
}

func ValidateSequence(steps []SequenceStep) error {
	seen := map[int]bool{}
	for _, s := range steps {
		if s.Step < 1 {
			return fmt.Errorf("sequence: step must be >= 1, got %d", s.Step)
		}
		if s.DelayDays < 0 {
			return fmt.Errorf("sequence: negative delayDays on step %d", s.Step)
		}
		if seen[s.Step] {
			return fmt.Errorf("sequence: duplicate step %d", s.Step)
		}
		seen[s.Step] = true
	}
	return nil
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock out of range: %q", s)
	}
	return h*60 + m, nil
}

func validWeekday(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}
