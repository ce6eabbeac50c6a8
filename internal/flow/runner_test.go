package flow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/flow"
	"github.com/evoflow/backend/internal/model"
)

// mockGateway records sends and can be told to fail specific texts.
type mockGateway struct {
	mu        sync.Mutex
	sent      []string // "number:text"
	failTexts map[string]bool
}

func (m *mockGateway) SendText(_ context.Context, _, number, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTexts[text] {
		return appErrors.NewGatewayError("sendText", errors.New("boom"))
	}
	m.sent = append(m.sent, number+":"+text)
	return nil
}

func (m *mockGateway) SendMedia(_ context.Context, _, number string, att *model.Attachment, caption string) error {
	return nil
}

func (m *mockGateway) GetConversations(_ context.Context, _ string) ([]model.Conversation, error) {
	return nil, nil
}

func (m *mockGateway) GetLatestMessage(_ context.Context, _, _ string) (*model.ChatMessage, error) {
	return nil, nil
}

func (m *mockGateway) sends() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func graph(nodes []model.FlowNode, edges []model.FlowEdge) *model.Flow {
	return &model.Flow{ID: "f1", Name: "test", Instance: "inst", Nodes: nodes, Edges: edges}
}

func TestRunFailsWithoutEntryNode(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{{ID: "m1", Kind: model.NodeMessage, Text: "hi"}},
		nil,
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")

	var cfgErr *appErrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, gw.sends(), "no gateway calls may happen on a config error")
}

func TestRunSingleMessage(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "hi"},
		},
		[]model.FlowEdge{{Source: "s1", Target: "m1"}},
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")

	require.NoError(t, err)
	assert.Equal(t, []string{"15551234567:hi"}, gw.sends())
}

func TestRunEmptyMessageSkipsWithWarning(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: ""},
		},
		[]model.FlowEdge{{Source: "s1", Target: "m1"}},
	)

	runner := flow.NewRunner(f, "inst", gw)
	logs, err := runner.Run(context.Background(), "15551234567")

	require.NoError(t, err)
	assert.Empty(t, gw.sends())

	warned := false
	for _, entry := range logs {
		if entry.Severity == flow.SeverityWarning {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning log for the empty message node")
}

func TestRunUnknownKindSkipped(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "x1", Kind: "webhook"},
			{ID: "m1", Kind: model.NodeMessage, Text: "after"},
		},
		[]model.FlowEdge{
			{Source: "s1", Target: "x1"},
			{Source: "x1", Target: "m1"},
		},
	)

	runner := flow.NewRunner(f, "inst", gw)
	logs, err := runner.Run(context.Background(), "15551234567")

	require.NoError(t, err)
	// unknown node warns but traversal continues
	assert.Equal(t, []string{"15551234567:after"}, gw.sends())

	warned := false
	for _, entry := range logs {
		if entry.Severity == flow.SeverityWarning {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRunDelayCancelledPromptly(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "d1", Kind: model.NodeDelay, Seconds: 2},
			{ID: "m1", Kind: model.NodeMessage, Text: "late"},
		},
		[]model.FlowEdge{
			{Source: "s1", Target: "d1"},
			{Source: "d1", Target: "m1"},
		},
	)

	runner := flow.NewRunner(f, "inst", gw)

	done := make(chan struct{})
	start := time.Now()
	go func() {
		runner.Run(context.Background(), "15551234567")
		close(done)
	}()

	time.Sleep(500 * time.Millisecond)
	runner.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	assert.Less(t, time.Since(start), 1500*time.Millisecond, "stop must take effect mid-delay")
	assert.Empty(t, gw.sends(), "downstream node must not execute after cancellation")
}

func TestRunFanOutAwaitsAllBranches(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "a"},
			{ID: "m2", Kind: model.NodeMessage, Text: "b"},
		},
		[]model.FlowEdge{
			{Source: "s1", Target: "m1"},
			{Source: "s1", Target: "m2"},
		},
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"15551234567:a", "15551234567:b"}, gw.sends())
}

func TestRunFanInExecutesOncePerPath(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "a"},
			{ID: "m2", Kind: model.NodeMessage, Text: "b"},
			{ID: "m3", Kind: model.NodeMessage, Text: "join"},
		},
		[]model.FlowEdge{
			{Source: "s1", Target: "m1"},
			{Source: "s1", Target: "m2"},
			{Source: "m1", Target: "m3"},
			{Source: "m2", Target: "m3"},
		},
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")
	require.NoError(t, err)

	joins := 0
	for _, s := range gw.sends() {
		if s == "15551234567:join" {
			joins++
		}
	}
	assert.Equal(t, 2, joins, "a fan-in node runs once per incoming path")
}

func TestGatewayErrorAbortsOnlyItsPath(t *testing.T) {
	gw := &mockGateway{failTexts: map[string]bool{"a": true}}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "a"},
			{ID: "m1b", Kind: model.NodeMessage, Text: "after-a"},
			{ID: "m2", Kind: model.NodeMessage, Text: "b"},
		},
		[]model.FlowEdge{
			{Source: "s1", Target: "m1"},
			{Source: "m1", Target: "m1b"},
			{Source: "s1", Target: "m2"},
		},
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")

	require.NoError(t, err, "a path failure is logged, not returned")
	assert.Equal(t, []string{"15551234567:b"}, gw.sends(),
		"the failing path stops before its next node; the sibling is unaffected")
}

func TestStopAfterCompletionIsNoop(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "hi"},
		},
		[]model.FlowEdge{{Source: "s1", Target: "m1"}},
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")
	require.NoError(t, err)

	runner.Stop() // must not panic or error
	runner.Stop()
}

func TestSnapshotIgnoresConcurrentEdits(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "original"},
		},
		[]model.FlowEdge{{Source: "s1", Target: "m1"}},
	)

	runner := flow.NewRunner(f, "inst", gw)

	// mutate the source graph after the runner captured its snapshot
	f.Nodes[1].Text = "edited"

	_, err := runner.Run(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, []string{"15551234567:original"}, gw.sends())
}

func TestEntryNodeIsFirstInDeclarationOrder(t *testing.T) {
	gw := &mockGateway{}
	// two entry candidates; the first declared one wins
	f := graph(
		[]model.FlowNode{
			{ID: "t1", Kind: model.NodeTrigger, Keywords: "hi"},
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "from-trigger"},
			{ID: "m2", Kind: model.NodeMessage, Text: "from-start"},
		},
		[]model.FlowEdge{
			{Source: "t1", Target: "m1"},
			{Source: "s1", Target: "m2"},
		},
	)

	runner := flow.NewRunner(f, "inst", gw)
	_, err := runner.Run(context.Background(), "15551234567")

	require.NoError(t, err)
	assert.Equal(t, []string{"15551234567:from-trigger"}, gw.sends())
}

func TestConcurrentRunsDoNotShareState(t *testing.T) {
	gw := &mockGateway{}
	f := graph(
		[]model.FlowNode{
			{ID: "s1", Kind: model.NodeStart},
			{ID: "m1", Kind: model.NodeMessage, Text: "hi"},
		},
		[]model.FlowEdge{{Source: "s1", Target: "m1"}},
	)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runner := flow.NewRunner(f, "inst", gw)
			_, err := runner.Run(context.Background(), fmt.Sprintf("155512345%02d", n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, gw.sends(), 5)
}
