package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoflow/backend/internal/dispatch"
	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/model"
)

type sendRecord struct {
	Number    string
	Text      string
	MediaType string
	Caption   string
}

type mockGateway struct {
	mu          sync.Mutex
	records     []sendRecord
	failNumbers map[string]bool
	afterSend   func(n int)
}

func (m *mockGateway) SendText(_ context.Context, _, number, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if m.afterSend != nil {
			m.afterSend(len(m.records))
		}
	}()
	if m.failNumbers[number] {
		m.records = append(m.records, sendRecord{Number: number, Text: text})
		return appErrors.NewGatewayError("sendText", errors.New("boom"))
	}
	m.records = append(m.records, sendRecord{Number: number, Text: text})
	return nil
}

func (m *mockGateway) SendMedia(_ context.Context, _, number string, att *model.Attachment, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, sendRecord{Number: number, MediaType: att.MediaType(), Caption: caption})
	return nil
}

func (m *mockGateway) GetConversations(_ context.Context, _ string) ([]model.Conversation, error) {
	return nil, nil
}

func (m *mockGateway) GetLatestMessage(_ context.Context, _, _ string) (*model.ChatMessage, error) {
	return nil, nil
}

func (m *mockGateway) attempts() []sendRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sendRecord, len(m.records))
	copy(out, m.records)
	return out
}

func TestSendCountsFailuresAndContinues(t *testing.T) {
	gw := &mockGateway{failNumbers: map[string]bool{"15550000002": true}}
	d := dispatch.NewDispatcher(gw, nil)

	recipients := []string{"15550000001", "15550000002", "15550000003"}
	result := d.Send(context.Background(), "inst", recipients, "hey", nil, 0, 0, nil, nil)

	assert.Equal(t, model.DispatchResult{Total: 3, Sent: 2, Failed: 1}, result)
	assert.Len(t, gw.attempts(), 3, "every recipient gets exactly one attempt")
}

func TestSendIteratesInOrder(t *testing.T) {
	gw := &mockGateway{}
	d := dispatch.NewDispatcher(gw, nil)

	recipients := []string{"15550000001", "15550000002", "15550000003"}
	d.Send(context.Background(), "inst", recipients, "hey", nil, 0, 0, nil, nil)

	attempts := gw.attempts()
	require.Len(t, attempts, 3)
	for i, number := range recipients {
		assert.Equal(t, number, attempts[i].Number)
	}
}

func TestSendReportsProgress(t *testing.T) {
	gw := &mockGateway{failNumbers: map[string]bool{"15550000002": true}}
	d := dispatch.NewDispatcher(gw, nil)

	var updates []model.DispatchProgress
	onProgress := func(p model.DispatchProgress) { updates = append(updates, p) }

	d.Send(context.Background(), "inst",
		[]string{"15550000001", "15550000002"}, "hey", nil, 0, 0, onProgress, nil)

	require.Len(t, updates, 2)
	assert.Equal(t, "15550000001", updates[0].Recipient)
	assert.Empty(t, updates[0].Error)
	assert.Equal(t, "15550000002", updates[1].Recipient)
	assert.NotEmpty(t, updates[1].Error, "failed sends carry the error detail")
	assert.Equal(t, 1, updates[1].Sent)
	assert.Equal(t, 1, updates[1].Failed)
}

func TestSendStopsWhenCancelled(t *testing.T) {
	gw := &mockGateway{}
	d := dispatch.NewDispatcher(gw, nil)

	sends := 0
	gw.afterSend = func(n int) { sends = n }
	isCancelled := func() bool { return sends >= 1 }

	result := d.Send(context.Background(), "inst",
		[]string{"15550000001", "15550000002", "15550000003"}, "hey", nil, 0, 0, nil, isCancelled)

	assert.Equal(t, 1, result.Sent, "cancellation before the second send returns the partial result")
	assert.Equal(t, 3, result.Total)
	assert.Len(t, gw.attempts(), 1)
}

func TestSendHonorsContextCancellation(t *testing.T) {
	gw := &mockGateway{}
	d := dispatch.NewDispatcher(gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := d.Send(ctx, "inst", []string{"15550000001"}, "hey", nil, 0, 0, nil, nil)

	assert.Equal(t, model.DispatchResult{Total: 1}, result)
	assert.Empty(t, gw.attempts())
}

func TestSendClassifiesMediaByMime(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"image/png", "image"},
		{"video/mp4", "video"},
		{"audio/ogg", "audio"},
		{"application/pdf", "document"},
	}

	for _, tc := range cases {
		gw := &mockGateway{}
		d := dispatch.NewDispatcher(gw, nil)

		att := &model.Attachment{Media: "data", FileName: "f", MimeType: tc.mime}
		d.Send(context.Background(), "inst", []string{"15550000001"}, "caption", att, 0, 0, nil, nil)

		attempts := gw.attempts()
		require.Len(t, attempts, 1)
		assert.Equal(t, tc.want, attempts[0].MediaType)
		assert.Equal(t, "caption", attempts[0].Caption)
	}
}
