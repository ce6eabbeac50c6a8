package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID, status string) error
	Reschedule(campaignID string, next time.Time) error
	UpdateCounts(campaignID string, sent, failed int) error
	Delete(campaignID string) error

	// FirstDue returns the oldest campaign that is scheduled and due at
	// now, or nil when none is.
	FirstDue(now time.Time) (*model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, instance, message, recipients, media_url, media_name, media_mime,
       scheduled_at, repeat, status, sent_count, failed_count, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Instance, &c.Message, pq.Array(&c.Recipients),
		&c.MediaURL, &c.MediaName, &c.MediaMime,
		&c.ScheduledAt, &c.Repeat, &c.Status,
		&c.SentCount, &c.FailedCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignScheduled
	}
	if c.Repeat == "" {
		c.Repeat = model.RepeatNone
	}
	query := `
        INSERT INTO campaigns (id, name, instance, message, recipients, media_url, media_name, media_mime,
                               scheduled_at, repeat, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.DB.Exec(query,
		c.ID, c.Name, c.Instance, c.Message, pq.Array(c.Recipients),
		c.MediaURL, c.MediaName, c.MediaMime,
		c.ScheduledAt, c.Repeat, c.Status, c.CreatedAt,
	)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status=$1 ORDER BY scheduled_at LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY scheduled_at LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += ` WHERE status=$1`
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

// Reschedule moves a completed repeating campaign back to scheduled at its
// next occurrence.
func (r *CampaignRepository) Reschedule(campaignID string, next time.Time) error {
	query := `UPDATE campaigns SET status=$1, scheduled_at=$2, updated_at=$3 WHERE id=$4`
	_, err := r.DB.Exec(query, model.CampaignScheduled, next, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) UpdateCounts(campaignID string, sent, failed int) error {
	query := `UPDATE campaigns SET sent_count=$1, failed_count=$2, updated_at=$3 WHERE id=$4`
	_, err := r.DB.Exec(query, sent, failed, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) Delete(campaignID string) error {
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, campaignID)
	return err
}

func (r *CampaignRepository) FirstDue(now time.Time) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
              WHERE status=$1 AND scheduled_at <= $2
              ORDER BY scheduled_at LIMIT 1`
	c, err := scanCampaign(r.DB.QueryRow(query, model.CampaignScheduled, now))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
