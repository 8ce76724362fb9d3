// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrMailboxNotFound struct {
	MailboxID int
}

func (e *ErrMailboxNotFound) Error() string {
	return fmt.Sprintf("mailbox with ID %d not found", e.MailboxID)
}

func NewMailboxNotFound(id int) error {
	return &ErrMailboxNotFound{MailboxID: id}
}

// ErrInsufficientCredits means the tenant's credit balance could not cover
// the send. Per-message recoverable: the message is failed, the pass goes on.
type ErrInsufficientCredits struct {
	TenantID int
}

func (e *ErrInsufficientCredits) Error() string {
	return fmt.Sprintf("insufficient credits for tenant %d", e.TenantID)
}

func NewInsufficientCredits(tenantID int) error {
	return &ErrInsufficientCredits{TenantID: tenantID}
}
