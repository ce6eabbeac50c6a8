// internal/analytics/analytics.go
package analytics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// maxActivities bounds the in-memory activity feed.
const maxActivities = 50

// Activity is one entry of the recent-activity feed shown in the dashboard.
type Activity struct {
	Time     time.Time `json:"time"`
	Title    string    `json:"title"`
	Detail   string    `json:"detail"`
	Severity string    `json:"severity"`
}

// Service tracks message, campaign and trigger counters and keeps a bounded
// recent-activity feed. Counters are exported through prometheus. All
// methods are safe on a nil receiver so collaborators can treat it as
// optional.
type Service struct {
	mu         sync.Mutex
	activities []Activity

	messages           *prometheus.CounterVec
	campaignsCompleted prometheus.Counter
	triggerMatches     prometheus.Counter
	flowRuns           prometheus.Counter
}

// New registers the counters with reg and returns the service.
func New(reg prometheus.Registerer) *Service {
	s := &Service{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evoflow_messages_total",
				Help: "Messages attempted, by instance and outcome.",
			},
			[]string{"instance", "status"},
		),
		campaignsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evoflow_campaigns_completed_total",
			Help: "Campaigns that ran to natural completion.",
		}),
		triggerMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evoflow_trigger_matches_total",
			Help: "Inbound messages that matched a trigger keyword.",
		}),
		flowRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evoflow_flow_runs_total",
			Help: "Flow executions launched.",
		}),
	}
	reg.MustRegister(s.messages, s.campaignsCompleted, s.triggerMatches, s.flowRuns)
	return s
}

// TrackMessage records one send attempt; status is "sent" or "failed".
func (s *Service) TrackMessage(instance, status string) {
	if s == nil {
		return
	}
	s.messages.WithLabelValues(instance, status).Inc()
}

func (s *Service) TrackCampaignCompleted() {
	if s == nil {
		return
	}
	s.campaignsCompleted.Inc()
}

func (s *Service) TrackTriggerMatch() {
	if s == nil {
		return
	}
	s.triggerMatches.Inc()
}

func (s *Service) TrackFlowRun() {
	if s == nil {
		return
	}
	s.flowRuns.Inc()
}

// AddActivity prepends an entry to the feed, dropping the oldest past the cap.
func (s *Service) AddActivity(title, detail, severity string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activities = append([]Activity{{
		Time:     time.Now(),
		Title:    title,
		Detail:   detail,
		Severity: severity,
	}}, s.activities...)
	if len(s.activities) > maxActivities {
		s.activities = s.activities[:maxActivities]
	}
}

// Recent returns a copy of the activity feed, newest first.
func (s *Service) Recent() []Activity {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Activity, len(s.activities))
	copy(out, s.activities)
	return out
}
