package repository

import (
	"database/sql"

	"github.com/lib/pq"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/model"
)

type MailboxRepositoryInterface interface {
	GetByID(id int) (*model.Mailbox, error)
	ListActiveByIDs(tenantID int, ids []int) ([]*model.Mailbox, error)
}

type MailboxRepository struct {
	DB *sql.DB
}

const mailboxColumns = `id, tenant_id, email, domain_id, status, hourly_limit, daily_send_limit, warmup_current_limit, created_at`

func (r *MailboxRepository) GetByID(id int) (*model.Mailbox, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailboxes WHERE id=$1`
	m, err := scanMailbox(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewMailboxNotFound(id)
		}
		return nil, err
	}
	return m, nil
}

// ListActiveByIDs returns the ACTIVE mailboxes among ids that belong to the
// tenant, in the order the database returns them. Inactive or foreign ids
// are silently dropped.
func (r *MailboxRepository) ListActiveByIDs(tenantID int, ids []int) ([]*model.Mailbox, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + mailboxColumns + `
              FROM mailboxes
              WHERE tenant_id=$1 AND status=$2 AND id = ANY($3)
              ORDER BY id`
	rows, err := r.DB.Query(query, tenantID, model.MailboxStatusActive, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mailboxes := []*model.Mailbox{}
	for rows.Next() {
		m, err := scanMailbox(rows)
		if err != nil {
			return nil, err
		}
		mailboxes = append(mailboxes, m)
	}
	return mailboxes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMailbox(row rowScanner) (*model.Mailbox, error) {
	var m model.Mailbox
	err := row.Scan(
		&m.ID, &m.TenantID, &m.Email, &m.DomainID, &m.Status,
		&m.HourlyLimit, &m.DailySendLimit, &m.WarmupCurrentLimit, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

var _ MailboxRepositoryInterface = (*MailboxRepository)(nil)
