// internal/trigger/poller.go
package trigger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/evoflow/backend/internal/analytics"
	"github.com/evoflow/backend/internal/flow"
	"github.com/evoflow/backend/internal/gateway"
	"github.com/evoflow/backend/internal/model"
	"github.com/evoflow/backend/internal/queue"
)

const (
	// DefaultInterval is how often active conversations are polled.
	DefaultInterval = 5 * time.Second
	// topConversations is how many recently-updated chats are checked per tick.
	topConversations = 5
	// runWorkers bounds concurrent flow runs launched by trigger matches.
	runWorkers = 4
	// runTopic is the queue topic flow-run jobs go through.
	runTopic = "flow_runs"
)

// Poller watches an instance's conversations for trigger keywords and
// launches flow runs for matching inbound messages. Runs go through a
// bounded worker queue, so one busy tick cannot fan out into unbounded
// gateway load, and the poll loop never blocks on run completion.
type Poller struct {
	Gateway   gateway.Client
	Processed ProcessedStore
	Queue     queue.Queue
	Analytics *analytics.Service
	Interval  time.Duration

	mu         sync.Mutex
	cancel     context.CancelFunc
	instance   string
	graph      model.Flow
	keywords   []string
	subscribed bool
}

func NewPoller(gw gateway.Client, store ProcessedStore, q queue.Queue, an *analytics.Service) *Poller {
	return &Poller{
		Gateway:   gw,
		Processed: store,
		Queue:     q,
		Analytics: an,
		Interval:  DefaultInterval,
	}
}

// Start begins polling the instance with a snapshot of the given flow.
// Edits to the flow after Start are not observed until the next Start.
func (p *Poller) Start(instance string, f *model.Flow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return fmt.Errorf("poller already active for %s", p.instance)
	}

	p.instance = instance
	p.graph = *f
	p.keywords = flow.Keywords(f)

	if !p.subscribed {
		err := p.Queue.Subscribe(runTopic, runWorkers, p.runFlow)
		if err != nil {
			return err
		}
		p.subscribed = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go p.loop(ctx)
	log.Println("👂 Auto-responder active for", instance)
	return nil
}

// Stop halts polling. In-flight flow runs are independent and keep going.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	log.Println("🔇 Auto-responder stopped for", p.instance)
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick checks the five most recently updated conversations for new inbound
// messages. Gateway errors skip the affected conversation; polling stays on
// schedule regardless.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	instance := p.instance
	keywords := p.keywords
	p.mu.Unlock()

	chats, err := p.Gateway.GetConversations(ctx, instance)
	if err != nil {
		log.Println("⚠️ Poll error:", err)
		return
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	if len(chats) > topConversations {
		chats = chats[:topConversations]
	}

	for _, chat := range chats {
		msg, err := p.Gateway.GetLatestMessage(ctx, instance, chat.ID)
		if err != nil {
			log.Println("⚠️ Skipping conversation", chat.ID, ":", err)
			continue
		}
		if msg == nil {
			continue
		}

		seen, err := p.Processed.Seen(ctx, instance, msg.ID)
		if err != nil {
			log.Println("⚠️ Dedup lookup failed:", err)
			continue
		}

		eligible := !msg.FromMe && msg.Text != "" && !seen
		if eligible && flow.MatchesKeyword(msg.Text, keywords) {
			sender := chat.Sender()
			p.Analytics.TrackTriggerMatch()
			p.Analytics.AddActivity("Trigger Match", fmt.Sprintf("%q from %s", msg.Text, sender), "success")
			log.Printf("🤖 Auto-trigger: match %q from %s", msg.Text, sender)

			if err := p.Queue.Publish(runTopic, sender); err != nil {
				log.Println("⚠️ Could not enqueue flow run:", err)
			}
		}

		// Mark every observed id, matched or not, so stale history is
		// never re-evaluated.
		if err := p.Processed.Mark(ctx, instance, msg.ID); err != nil {
			log.Println("⚠️ Dedup mark failed:", err)
		}
	}
}

// runFlow executes one queued flow run. Runs deliberately use a background
// context: stopping the poller must not abort automations already owed to
// a recipient.
func (p *Poller) runFlow(payload any) error {
	recipient, ok := payload.(string)
	if !ok {
		log.Println("⚠️ Invalid flow run payload, expected string")
		return nil
	}

	p.mu.Lock()
	graph := p.graph
	instance := p.instance
	p.mu.Unlock()

	p.Analytics.TrackFlowRun()
	runner := flow.NewRunner(&graph, instance, p.Gateway)
	_, err := runner.Run(context.Background(), recipient)
	return err
}
