package repository

import (
	"database/sql"
	"time"

	"github.com/agencyflow/outreach-backend/internal/model"
)

// MessageRepositoryInterface is the persistence surface the send scheduler
// depends on: window counts for rate budgets, eligibility listings, and the
// two terminal status transitions.
type MessageRepositoryInterface interface {
	CountSentByMailboxSince(mailboxID int, since time.Time) (int, error)
	CountSentByDomainSince(domainID int, since time.Time) (int, error)
	ListPendingInitial(campaignID, limit int) ([]*model.OutboundMessage, error)
	ListReadyFollowUps(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error)
	CountPending(campaignID int) (int, error)
	Create(msg *model.OutboundMessage) error
	MarkSent(id, mailboxID int, providerMessageID string, sentAt time.Time) error
	MarkFailed(id int, reason string) error
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `id, campaign_id, tenant_id, recipient_email, sequence_step, subject, body_html, status, last_error, mailbox_id, provider_message_id, sent_at, created_at, updated_at`

func (r *MessageRepository) Create(msg *model.OutboundMessage) error {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = model.MessageStatusPending
	}

	query := `
        INSERT INTO outbound_messages
        (campaign_id, tenant_id, recipient_email, sequence_step, subject, body_html, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		msg.CampaignID,
		msg.TenantID,
		msg.RecipientEmail,
		msg.SequenceStep,
		msg.Subject,
		msg.BodyHTML,
		msg.Status,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Scan(&msg.ID)
}

// CountSentByMailboxSince counts this mailbox's delivered messages since the
// given instant. Only rows carrying a sent_at stamp count against the budget;
// MarkFailed never writes one, so failed attempts do not consume it.
func (r *MessageRepository) CountSentByMailboxSince(mailboxID int, since time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM outbound_messages
        WHERE mailbox_id=$1 AND status <> 'pending' AND sent_at IS NOT NULL AND sent_at >= $2
    `
	var count int
	err := r.DB.QueryRow(query, mailboxID, since).Scan(&count)
	return count, err
}

func (r *MessageRepository) CountSentByDomainSince(domainID int, since time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM outbound_messages m
        JOIN mailboxes b ON b.id = m.mailbox_id
        WHERE b.domain_id=$1 AND m.status <> 'pending' AND m.sent_at IS NOT NULL AND m.sent_at >= $2
    `
	var count int
	err := r.DB.QueryRow(query, domainID, since).Scan(&count)
	return count, err
}

func (r *MessageRepository) ListPendingInitial(campaignID, limit int) ([]*model.OutboundMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM outbound_messages
        WHERE campaign_id=$1 AND status='pending' AND sequence_step=1
        ORDER BY id
        LIMIT $2
    `
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListReadyFollowUps returns pending step-n messages whose recipient already
// received the step n-1 email no later than sentBefore. The bound is
// inclusive: a prior touch sent exactly at the cutoff qualifies.
func (r *MessageRepository) ListReadyFollowUps(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM outbound_messages m
        WHERE m.campaign_id=$1 AND m.status='pending' AND m.sequence_step=$2
          AND EXISTS (
            SELECT 1 FROM outbound_messages prev
            WHERE prev.campaign_id = m.campaign_id
              AND prev.recipient_email = m.recipient_email
              AND prev.sequence_step = $2 - 1
              AND prev.status = 'sent'
              AND prev.sent_at <= $3
          )
        ORDER BY m.id
        LIMIT $4
    `
	rows, err := r.DB.Query(query, campaignID, step, sentBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *MessageRepository) CountPending(campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM outbound_messages WHERE campaign_id=$1 AND status='pending'`,
		campaignID,
	).Scan(&count)
	return count, err
}

// MarkSent records the terminal sent state. The sent_at IS NULL guard keeps
// the stamp immutable if the transition somehow races.
func (r *MessageRepository) MarkSent(id, mailboxID int, providerMessageID string, sentAt time.Time) error {
	query := `
        UPDATE outbound_messages
        SET status='sent', mailbox_id=$1, provider_message_id=$2, sent_at=$3, last_error='', updated_at=NOW()
        WHERE id=$4 AND sent_at IS NULL
    `
	_, err := r.DB.Exec(query, mailboxID, providerMessageID, sentAt, id)
	return err
}

func (r *MessageRepository) MarkFailed(id int, reason string) error {
	query := `
        UPDATE outbound_messages
        SET status='failed', last_error=$1, updated_at=NOW()
        WHERE id=$2 AND status <> 'sent'
    `
	_, err := r.DB.Exec(query, reason, id)
	return err
}

func scanMessages(rows *sql.Rows) ([]*model.OutboundMessage, error) {
	msgs := []*model.OutboundMessage{}
	for rows.Next() {
		var m model.OutboundMessage
		var lastError, providerID sql.NullString
		if err := rows.Scan(
			&m.ID, &m.CampaignID, &m.TenantID, &m.RecipientEmail, &m.SequenceStep,
			&m.Subject, &m.BodyHTML, &m.Status, &lastError, &m.MailboxID,
			&providerID, &m.SentAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.LastError = lastError.String
		m.ProviderMessageID = providerID.String
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
