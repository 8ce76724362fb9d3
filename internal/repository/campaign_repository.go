package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	ListCampaigns(offset, limit int, tenantID int, status string) ([]*model.Campaign, int, error)
	GetByID(id int) (*model.Campaign, error)
	UpdateStatus(campaignID int, status string) error
	Create(c *model.Campaign) error

	// Message rollups
	GetCampaignStats(campaignID int) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if err := model.ValidateSequence(c.Sequence); err != nil {
		return err
	}

	scheduleJSON, err := json.Marshal(c.Schedule)
	if err != nil {
		return err
	}
	sequenceJSON, err := json.Marshal(c.Sequence)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO campaigns (tenant_id, name, status, default_mailbox_id, schedule_config, sequence_config, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.TenantID, c.Name, c.Status, c.DefaultMailboxID, scheduleJSON, sequenceJSON, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

// GetByID loads a campaign and decodes its schedule and sequence config.
// Config is validated here, at the load boundary, so the scheduler can trust
// the typed structs it receives.
func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `
        SELECT id, tenant_id, name, status, default_mailbox_id, schedule_config, sequence_config, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	var scheduleJSON, sequenceJSON []byte
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Status, &c.DefaultMailboxID,
		&scheduleJSON, &sequenceJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}

	if err := json.Unmarshal(scheduleJSON, &c.Schedule); err != nil {
		return nil, fmt.Errorf("campaign %d: bad schedule_config: %w", id, err)
	}
	if err := json.Unmarshal(sequenceJSON, &c.Sequence); err != nil {
		return nil, fmt.Errorf("campaign %d: bad sequence_config: %w", id, err)
	}
	if err := c.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("campaign %d: %w", id, err)
	}
	if err := model.ValidateSequence(c.Sequence); err != nil {
		return nil, fmt.Errorf("campaign %d: %w", id, err)
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, tenantID int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, tenant_id, name, status, default_mailbox_id, schedule_config, sequence_config, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if tenantID > 0 {
		query += fmt.Sprintf(" AND tenant_id=$%d", argPos)
		args = append(args, tenantID)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		var scheduleJSON, sequenceJSON []byte
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Status, &c.DefaultMailboxID, &scheduleJSON, &sequenceJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(scheduleJSON, &c.Schedule); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(sequenceJSON, &c.Sequence); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	// Count total
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if tenantID > 0 {
		countQuery += fmt.Sprintf(" AND tenant_id=$%d", argPosCount)
		argsCount = append(argsCount, tenantID)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) GetCampaignStats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM outbound_messages WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
