// internal/metrics/metrics.go
package metrics

import (
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agencyflow/outreach-backend/internal/service"
)

// Recorder rolls message outcomes up into the denormalized counters on the
// campaigns row so dashboards don't aggregate outbound_messages on read.
type Recorder struct {
	DB  *sql.DB
	Log *logrus.Logger
}

func (r *Recorder) UpdateMetrics(campaignID int) error {
	query := `
        UPDATE campaigns c SET
            sent_count    = s.sent,
            failed_count  = s.failed,
            pending_count = s.pending,
            updated_at    = NOW()
        FROM (
            SELECT
                COUNT(*) FILTER (WHERE status = 'sent')    AS sent,
                COUNT(*) FILTER (WHERE status = 'failed')  AS failed,
                COUNT(*) FILTER (WHERE status = 'pending') AS pending
            FROM outbound_messages
            WHERE campaign_id = $1
        ) s
        WHERE c.id = $1
    `
	_, err := r.DB.Exec(query, campaignID)
	if err != nil {
		r.Log.WithField("campaign_id", campaignID).WithError(err).Error("failed to refresh campaign metrics")
	}
	return err
}

func (r *Recorder) MarkCompleted(campaignID int) error {
	_, err := r.DB.Exec(`UPDATE campaigns SET completed_at=$1, updated_at=NOW() WHERE id=$2`, time.Now(), campaignID)
	return err
}

var _ service.CampaignMetrics = (*Recorder)(nil)
