// internal/model/campaign.go
package model

import "time"

// Campaign statuses
const (
	CampaignScheduled  = "scheduled"
	CampaignProcessing = "processing"
	CampaignPaused     = "paused"
	CampaignCompleted  = "completed"
)

// Repeat rules
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

type Campaign struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Instance    string     `db:"instance" json:"instance"`
	Message     string     `db:"message" json:"message"`
	Recipients  []string   `db:"recipients" json:"recipients"`
	MediaURL    string     `db:"media_url" json:"media_url,omitempty"`
	MediaName   string     `db:"media_name" json:"media_name,omitempty"`
	MediaMime   string     `db:"media_mime" json:"media_mime,omitempty"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Repeat      string     `db:"repeat" json:"repeat"`
	Status      string     `db:"status" json:"status"`
	SentCount   int        `db:"sent_count" json:"sent_count"`
	FailedCount int        `db:"failed_count" json:"failed_count"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// NextOccurrence returns the next scheduled time for a repeating campaign,
// preserving time-of-day. daily=+1 day, weekly=+7 days, monthly=+1 calendar month.
func (c *Campaign) NextOccurrence() time.Time {
	switch c.Repeat {
	case RepeatDaily:
		return c.ScheduledAt.AddDate(0, 0, 1)
	case RepeatWeekly:
		return c.ScheduledAt.AddDate(0, 0, 7)
	case RepeatMonthly:
		return c.ScheduledAt.AddDate(0, 1, 0)
	}
	return c.ScheduledAt
}

// Repeats reports whether the campaign has a recurrence rule.
func (c *Campaign) Repeats() bool {
	return c.Repeat != "" && c.Repeat != RepeatNone
}

// Attachment returns the campaign media as a dispatchable attachment, or nil
// for text-only campaigns.
func (c *Campaign) Attachment() *Attachment {
	if c.MediaURL == "" {
		return nil
	}
	return &Attachment{
		Media:    c.MediaURL,
		FileName: c.MediaName,
		MimeType: c.MediaMime,
	}
}
