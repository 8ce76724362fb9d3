// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/model"
	"github.com/agencyflow/outreach-backend/internal/queue"
	"github.com/agencyflow/outreach-backend/internal/repository"
	"github.com/agencyflow/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Scheduler    queue.Scheduler
	Log          *logrus.Logger
}

type campaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID         int                  `json:"tenant_id"`
		Name             string               `json:"name"`
		DefaultMailboxID int                  `json:"default_mailbox_id"`
		Schedule         model.ScheduleConfig `json:"schedule"`
		Sequence         []model.SequenceStep `json:"sequence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign := &model.Campaign{
		TenantID:         body.TenantID,
		Name:             body.Name,
		Status:           model.CampaignStatusDraft,
		DefaultMailboxID: body.DefaultMailboxID,
		Schedule:         body.Schedule,
		Sequence:         body.Sequence,
	}
	if err := campaign.Schedule.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := model.ValidateSequence(campaign.Sequence); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := c.CampaignRepo.Create(campaign); err != nil {
		http.Error(w, "failed to create campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	tenantID, _ := strconv.Atoi(r.URL.Query().Get("tenant_id"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	campaigns, total, err := c.CampaignRepo.ListCampaigns(offset, pageSize, tenantID, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": campaigns,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := c.loadCampaign(w, r)
	if !ok {
		return
	}

	stats, err := c.CampaignRepo.GetCampaignStats(campaign.ID)
	if err != nil {
		http.Error(w, "failed to fetch campaign stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaignDetails{Campaign: campaign, Stats: stats})
}

// StartCampaign flips a draft or paused campaign to running and enqueues its
// first pass.
func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := c.loadCampaign(w, r)
	if !ok {
		return
	}

	switch campaign.Status {
	case model.CampaignStatusDraft, model.CampaignStatusPaused:
	case model.CampaignStatusRunning:
		http.Error(w, "campaign already running", http.StatusConflict)
		return
	default:
		http.Error(w, "campaign cannot be started in status: "+campaign.Status, http.StatusConflict)
		return
	}

	if err := c.CampaignRepo.UpdateStatus(campaign.ID, model.CampaignStatusRunning); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	trigger := service.PassTrigger{CampaignID: campaign.ID, TenantID: campaign.TenantID}
	if err := c.Scheduler.Schedule(trigger, 0); err != nil {
		c.Log.WithField("campaign_id", campaign.ID).WithError(err).Error("failed to enqueue first pass")
		http.Error(w, "campaign started but pass could not be enqueued", http.StatusInternalServerError)
		return
	}

	c.Log.WithField("campaign_id", campaign.ID).Info("campaign started")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": model.CampaignStatusRunning})
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := c.loadCampaign(w, r)
	if !ok {
		return
	}

	if campaign.Status != model.CampaignStatusRunning {
		http.Error(w, "only running campaigns can be paused", http.StatusConflict)
		return
	}
	if err := c.CampaignRepo.UpdateStatus(campaign.ID, model.CampaignStatusPaused); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": model.CampaignStatusPaused})
}

// TriggerPass enqueues an immediate pass for a campaign. The pass controller
// itself re-checks status, window, and the in-flight lock, so a stray manual
// trigger is harmless.
func (c *CampaignController) TriggerPass(w http.ResponseWriter, r *http.Request) {
	campaign, ok := c.loadCampaign(w, r)
	if !ok {
		return
	}

	trigger := service.PassTrigger{CampaignID: campaign.ID, TenantID: campaign.TenantID}
	if err := c.Scheduler.Schedule(trigger, 0); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}

func (c *CampaignController) loadCampaign(w http.ResponseWriter, r *http.Request) (*model.Campaign, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return nil, false
	}

	campaign, err := c.CampaignRepo.GetByID(id)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return campaign, true
}
