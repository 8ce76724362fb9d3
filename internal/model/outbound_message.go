// internal/model/outbound_message.go
package model

import "time"

type OutboundMessage struct {
	ID                int        `db:"id" json:"id"`
	CampaignID        int        `db:"campaign_id" json:"campaign_id"`
	TenantID          int        `db:"tenant_id" json:"tenant_id"`
	RecipientEmail    string     `db:"recipient_email" json:"recipient_email"`
	SequenceStep      int        `db:"sequence_step" json:"sequence_step"`
	Subject           string     `db:"subject" json:"subject"`
	BodyHTML          string     `db:"body_html" json:"body_html"`
	Status            string     `db:"status" json:"status"` // pending, sent, failed
	LastError         string     `db:"last_error" json:"last_error,omitempty"`
	MailboxID         *int       `db:"mailbox_id" json:"mailbox_id,omitempty"`
	ProviderMessageID string     `db:"provider_message_id" json:"provider_message_id,omitempty"`
	SentAt            *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)
