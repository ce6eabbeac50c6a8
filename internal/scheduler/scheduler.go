// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/evoflow/backend/internal/analytics"
	"github.com/evoflow/backend/internal/dispatch"
	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/model"
	"github.com/evoflow/backend/internal/repository"
)

const (
	// DefaultInterval is how often the campaign list is scanned.
	DefaultInterval = 10 * time.Second
	// Scheduled campaigns pace their sends inside these bounds.
	defaultMinDelaySec = 10
	defaultMaxDelaySec = 20
)

// Scheduler advances due campaigns: scheduled -> processing -> completed,
// or back to scheduled at the next occurrence for repeating campaigns. One
// campaign is advanced per tick; due campaigns queue rather than run in
// parallel.
type Scheduler struct {
	Repo       repository.CampaignRepositoryInterface
	Dispatcher *dispatch.Dispatcher
	Analytics  *analytics.Service
	Interval   time.Duration

	// MinDelaySec/MaxDelaySec bound the inter-send pause.
	MinDelaySec int
	MaxDelaySec int

	// Now is the clock, swappable in tests.
	Now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(repo repository.CampaignRepositoryInterface, d *dispatch.Dispatcher, an *analytics.Service) *Scheduler {
	return &Scheduler{
		Repo:        repo,
		Dispatcher:  d,
		Analytics:   an,
		Interval:    DefaultInterval,
		MinDelaySec: defaultMinDelaySec,
		MaxDelaySec: defaultMaxDelaySec,
		Now:         time.Now,
	}
}

// Start begins the scan loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx)
	log.Println("⏰ Campaign scheduler started")
}

// Stop halts the scan loop. A campaign run already in flight finishes on
// its own terms (or aborts at its next per-recipient check).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	log.Println("⏰ Campaign scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs the first due campaign, if any.
func (s *Scheduler) tick(ctx context.Context) {
	c, err := s.Repo.FirstDue(s.Now())
	if err != nil {
		log.Println("⚠️ Due-campaign scan failed:", err)
		return
	}
	if c == nil {
		return
	}
	s.process(ctx, c)
}

// RunCampaign dispatches one campaign by id immediately, with the same
// lifecycle handling as a scheduled run. Used by the dispatch worker.
func (s *Scheduler) RunCampaign(ctx context.Context, id string) error {
	c, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	s.process(ctx, c)
	return nil
}

// process dispatches one campaign. Before every recipient the campaign is
// re-read from the store; a pause or delete aborts the run immediately
// without a completed transition and without rewriting the status the user
// set. A shutdown (cancelled context) also aborts, requeueing the campaign
// as scheduled.
func (s *Scheduler) process(ctx context.Context, c *model.Campaign) {
	log.Println("🚀 Starting scheduled campaign:", c.Name)
	s.Analytics.AddActivity("Campaign Started", c.Name, "info")

	if err := s.Repo.UpdateStatus(c.ID, model.CampaignProcessing); err != nil {
		log.Println("⚠️ Could not mark campaign processing:", err)
		return
	}

	aborted := false
	isCancelled := func() bool {
		current, err := s.Repo.GetByID(c.ID)
		if err != nil {
			var notFound *appErrors.ErrCampaignNotFound
			if errors.As(err, &notFound) {
				aborted = true
				return true
			}
			// transient store error: keep sending, check again next recipient
			log.Println("⚠️ Campaign re-read failed:", err)
			return false
		}
		if current.Status == model.CampaignPaused {
			aborted = true
			return true
		}
		return false
	}

	result := s.Dispatcher.Send(
		ctx, c.Instance, c.Recipients, c.Message, c.Attachment(),
		s.MinDelaySec, s.MaxDelaySec, nil, isCancelled,
	)

	if aborted {
		log.Printf("⏸️ Campaign %s stopped by user (sent %d of %d)", c.Name, result.Sent, result.Total)
		s.Analytics.AddActivity("Campaign Stopped", fmt.Sprintf("%s stopped by user", c.Name), "error")
		return
	}

	// A cancelled context means the run was cut short by shutdown, not that
	// it finished. Put the campaign back on the schedule for the next scan
	// instead of recording a completion it never reached.
	if ctx.Err() != nil {
		log.Printf("⏹️ Campaign %s interrupted by shutdown (sent %d of %d)", c.Name, result.Sent, result.Total)
		s.Analytics.AddActivity("Campaign Interrupted", fmt.Sprintf("%s interrupted by shutdown", c.Name), "warning")
		if err := s.Repo.UpdateStatus(c.ID, model.CampaignScheduled); err != nil {
			log.Println("⚠️ Could not requeue interrupted campaign:", err)
		}
		return
	}

	if err := s.Repo.UpdateCounts(c.ID, result.Sent, result.Failed); err != nil {
		log.Println("⚠️ Could not persist campaign counts:", err)
	}

	s.Analytics.TrackCampaignCompleted()
	s.Analytics.AddActivity("Campaign Completed", fmt.Sprintf("%s (Sent: %d)", c.Name, result.Sent), "success")

	if c.Repeats() {
		next := c.NextOccurrence()
		if err := s.Repo.Reschedule(c.ID, next); err != nil {
			log.Println("⚠️ Could not reschedule campaign:", err)
		} else {
			log.Printf("🔁 Campaign %s rescheduled for %s", c.Name, next.Format(time.RFC3339))
		}
	} else {
		if err := s.Repo.UpdateStatus(c.ID, model.CampaignCompleted); err != nil {
			log.Println("⚠️ Could not mark campaign completed:", err)
		}
	}

	log.Printf("🏁 Campaign %s finished. Sent: %d, Failed: %d", c.Name, result.Sent, result.Failed)
}
