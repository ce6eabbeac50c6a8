// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evoflow/backend/internal/analytics"
	"github.com/evoflow/backend/internal/dispatch"
	"github.com/evoflow/backend/internal/model"
	"github.com/evoflow/backend/internal/repository"
)

// DispatchPublisher hands a campaign to the dispatch worker.
type DispatchPublisher interface {
	PublishCampaign(campaignID string) error
}

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Dispatcher   *dispatch.Dispatcher
	Publisher    DispatchPublisher
	Analytics    *analytics.Service
}

type CreateCampaignInput struct {
	Name        string `json:"name"`
	Instance    string `json:"instance"`
	Message     string `json:"message"`
	Numbers     string `json:"numbers"`
	MediaURL    string `json:"media_url"`
	MediaName   string `json:"media_name"`
	MediaMime   string `json:"media_mime"`
	ScheduledAt string `json:"scheduled_at"`
	Repeat      string `json:"repeat"`
}

// SanitizeRecipients extracts sendable numbers from a newline-separated
// list: everything but digits and '+' is stripped, entries shorter than 10
// characters are dropped, duplicates are removed preserving order.
func SanitizeRecipients(raw string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		var b strings.Builder
		for _, r := range line {
			if r == '+' || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		n := b.String()
		if len(n) < 10 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func validRepeat(repeat string) bool {
	switch repeat {
	case "", model.RepeatNone, model.RepeatDaily, model.RepeatWeekly, model.RepeatMonthly:
		return true
	}
	return false
}

func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	recipients := SanitizeRecipients(in.Numbers)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no valid recipients")
	}
	if in.Instance == "" {
		return nil, fmt.Errorf("instance is required")
	}
	if in.Message == "" && in.MediaURL == "" {
		return nil, fmt.Errorf("message or media is required")
	}
	if !validRepeat(in.Repeat) {
		return nil, fmt.Errorf("invalid repeat rule: %s", in.Repeat)
	}

	scheduledAt := time.Now()
	if in.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, in.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduled_at: %w", err)
		}
		scheduledAt = t
	}

	c := &model.Campaign{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Instance:    in.Instance,
		Message:     in.Message,
		Recipients:  recipients,
		MediaURL:    in.MediaURL,
		MediaName:   in.MediaName,
		MediaMime:   in.MediaMime,
		ScheduledAt: scheduledAt,
		Repeat:      in.Repeat,
		Status:      model.CampaignScheduled,
	}
	if c.Repeat == "" {
		c.Repeat = model.RepeatNone
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
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

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// PauseCampaign pauses a scheduled or processing campaign. An in-flight run
// observes the pause at its next per-recipient check.
func (s *CampaignService) PauseCampaign(id string) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status != model.CampaignScheduled && c.Status != model.CampaignProcessing {
		return fmt.Errorf("campaign cannot be paused in status: %s", c.Status)
	}
	return s.CampaignRepo.UpdateStatus(id, model.CampaignPaused)
}

// ResumeCampaign puts a paused campaign back on the schedule.
func (s *CampaignService) ResumeCampaign(id string) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status != model.CampaignPaused {
		return fmt.Errorf("campaign cannot be resumed in status: %s", c.Status)
	}
	return s.CampaignRepo.UpdateStatus(id, model.CampaignScheduled)
}

func (s *CampaignService) DeleteCampaign(id string) error {
	return s.CampaignRepo.Delete(id)
}

func (s *CampaignService) GetCampaign(id string) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(id)
}

// SendNow hands the campaign to the dispatch worker over the queue.
func (s *CampaignService) SendNow(id string) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if s.Publisher == nil {
		return fmt.Errorf("no dispatch worker configured")
	}
	if err := s.Publisher.PublishCampaign(c.ID); err != nil {
		return err
	}
	log.Println("📤 Campaign queued for dispatch:", c.Name)
	return nil
}

// BulkSend runs a one-off dispatch without a campaign record. It blocks
// until done or the context is cancelled; the partial result is returned
// either way.
func (s *CampaignService) BulkSend(
	ctx context.Context,
	instance, numbers, message string,
	att *model.Attachment,
	minDelaySec, maxDelaySec int,
) (model.DispatchResult, error) {
	recipients := SanitizeRecipients(numbers)
	if len(recipients) == 0 {
		return model.DispatchResult{}, fmt.Errorf("no valid recipients")
	}

	s.Analytics.AddActivity("Bulk Send Started", fmt.Sprintf("%d recipients on %s", len(recipients), instance), "info")
	result := s.Dispatcher.Send(ctx, instance, recipients, message, att, minDelaySec, maxDelaySec, nil, nil)
	s.Analytics.AddActivity("Bulk Send Finished", fmt.Sprintf("Sent: %d, Failed: %d", result.Sent, result.Failed), "success")
	return result, nil
}

// RenderPreview personalizes a message for one recipient from the contact
// book: {name}, {phone} and {tag} placeholders.
func (s *CampaignService) RenderPreview(message, phone string) (string, error) {
	contact, err := s.ContactRepo.GetByPhone(phone)
	if err != nil {
		return "", err
	}

	data := map[string]string{"phone": phone}
	if contact != nil {
		data["name"] = contact.Name
		data["tag"] = contact.Tag
	} else {
		data["name"] = ""
		data["tag"] = ""
	}
	return RenderTemplate(message, data), nil
}

// ExpandContacts returns every contact phone number, for "send to all
// contacts" campaigns.
func (s *CampaignService) ExpandContacts() ([]string, error) {
	contacts, err := s.ContactRepo.ListAll()
	if err != nil {
		return nil, err
	}
	phones := make([]string, 0, len(contacts))
	for _, c := range contacts {
		phones = append(phones, c.Phone)
	}
	return phones, nil
}
