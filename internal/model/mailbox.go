// internal/model/mailbox.go
package model

import (
	"strings"
	"time"
)

const MailboxStatusActive = "ACTIVE"

// Mailbox is a sending identity. The limit fields are nullable: an unset
// hourly limit is derived from the daily limit, and warmup/daily both
// default to 10 when missing.
type Mailbox struct {
	ID                 int       `db:"id" json:"id"`
	TenantID           int       `db:"tenant_id" json:"tenant_id"`
	Email              string    `db:"email" json:"email"`
	DomainID           *int      `db:"domain_id" json:"domain_id,omitempty"`
	Status             string    `db:"status" json:"status"`
	HourlyLimit        *int      `db:"hourly_limit" json:"hourly_limit,omitempty"`
	DailySendLimit     *int      `db:"daily_send_limit" json:"daily_send_limit,omitempty"`
	WarmupCurrentLimit *int      `db:"warmup_current_limit" json:"warmup_current_limit,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

func (m *Mailbox) Active() bool {
	return m.Status == MailboxStatusActive
}

// Domain returns the part of the mailbox address after the "@", used for the
// mailto: unsubscribe fallback.
func (m *Mailbox) Domain() string {
	if i := strings.LastIndex(m.Email, "@"); i >= 0 {
		return m.Email[i+1:]
	}
	return ""
}
