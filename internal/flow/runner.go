// internal/flow/runner.go
package flow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/gateway"
	"github.com/evoflow/backend/internal/model"
)

// Log severities, mirrored in the API responses.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// LogEntry is one structured record of a flow run. Correctness never
// depends on anything consuming these.
type LogEntry struct {
	Time     time.Time `json:"time"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
}

// ExecutionLog is the full record of one run, newest first.
type ExecutionLog []LogEntry

// snapshot is an immutable copy of the graph taken when the runner is
// built. Edits to the original flow never affect an in-flight run.
type snapshot struct {
	nodes map[string]model.FlowNode
	order []string
	out   map[string][]string
}

func snapshotOf(f *model.Flow) snapshot {
	s := snapshot{
		nodes: make(map[string]model.FlowNode, len(f.Nodes)),
		order: make([]string, 0, len(f.Nodes)),
		out:   make(map[string][]string),
	}
	for _, n := range f.Nodes {
		s.nodes[n.ID] = n
		s.order = append(s.order, n.ID)
	}
	for _, e := range f.Edges {
		s.out[e.Source] = append(s.out[e.Source], e.Target)
	}
	return s
}

// delayTick is how often delays re-check cancellation.
const delayTick = 100 * time.Millisecond

// Runner executes one flow graph for one recipient at a time. A node with
// several outgoing edges forks into concurrent branches, all awaited before
// Run returns. A node reachable over two paths runs once per path; there is
// no fan-in deduplication.
type Runner struct {
	instance string
	gateway  gateway.Client
	snap     snapshot

	mu     sync.Mutex
	logs   ExecutionLog
	cancel context.CancelFunc

	// OnLog, when set, receives every entry as it is written.
	OnLog func(LogEntry)
}

func NewRunner(f *model.Flow, instance string, gw gateway.Client) *Runner {
	return &Runner{
		instance: instance,
		gateway:  gw,
		snap:     snapshotOf(f),
	}
}

func (r *Runner) log(severity, format string, args ...any) {
	entry := LogEntry{
		Time:     time.Now(),
		Message:  fmt.Sprintf(format, args...),
		Severity: severity,
	}

	r.mu.Lock()
	r.logs = append(ExecutionLog{entry}, r.logs...)
	onLog := r.OnLog
	r.mu.Unlock()

	if onLog != nil {
		onLog(entry)
	}
	log.Printf("[flow %s] %s", r.instance, entry.Message)
}

// Logs returns a copy of the run log so far, newest first.
func (r *Runner) Logs() ExecutionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(ExecutionLog, len(r.logs))
	copy(out, r.logs)
	return out
}

// Stop cancels the run cooperatively. Sends already in flight complete;
// every node boundary and delay tick observes the cancellation. Stopping a
// finished run is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run walks the graph for the given recipient, starting at the first
// trigger or start node in declaration order. A gateway failure aborts only
// its own path; sibling branches keep going and nothing is retried or
// rolled back.
func (r *Runner) Run(ctx context.Context, recipient string) (ExecutionLog, error) {
	if recipient == "" {
		r.log(SeverityError, "Target number is required")
		return r.Logs(), fmt.Errorf("target number is required")
	}

	entry := ""
	for _, id := range r.snap.order {
		kind := r.snap.nodes[id].Kind
		if kind == model.NodeTrigger || kind == model.NodeStart {
			entry = id
			break
		}
	}
	if entry == "" {
		r.log(SeverityError, "No start or trigger node found in flow")
		return r.Logs(), appErrors.NewConfigurationError("no start or trigger node")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.log(SeveritySuccess, "Starting flow for %s on %s", recipient, r.instance)
	r.processNode(ctx, entry, recipient)

	if ctx.Err() != nil {
		r.log(SeverityError, "Flow execution stopped")
	} else {
		r.log(SeveritySuccess, "Flow execution finished")
	}
	return r.Logs(), nil
}

func (r *Runner) processNode(ctx context.Context, nodeID, recipient string) {
	if ctx.Err() != nil {
		return
	}
	node, ok := r.snap.nodes[nodeID]
	if !ok {
		return
	}

	switch node.Kind {
	case model.NodeMessage:
		if node.Text == "" {
			r.log(SeverityWarning, "Skipping empty message node")
		} else {
			r.log(SeverityInfo, "Sending message: %q", truncate(node.Text, 30))
			if err := r.gateway.SendText(ctx, r.instance, recipient, node.Text); err != nil {
				r.log(SeverityError, "Send failed: %v", err)
				return // abort this path only
			}
		}

	case model.NodeDelay:
		seconds := node.Seconds
		if seconds <= 0 {
			seconds = 5
		}
		r.log(SeverityInfo, "Waiting %d seconds...", seconds)
		if !r.wait(ctx, time.Duration(seconds)*time.Second) {
			return
		}

	case model.NodeTrigger, model.NodeStart:
		// entry points, nothing to execute

	default:
		r.log(SeverityWarning, "Unknown node kind: %s", node.Kind)
	}

	next := r.snap.out[nodeID]
	switch len(next) {
	case 0:
	case 1:
		r.processNode(ctx, next[0], recipient)
	default:
		var wg sync.WaitGroup
		for _, target := range next {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				r.processNode(ctx, id, recipient)
			}(target)
		}
		wg.Wait()
	}
}

// wait sleeps for d, re-checking cancellation every delayTick. Returns
// false if the run was cancelled before the delay elapsed.
func (r *Runner) wait(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delayTick):
		}
	}
	return true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
